package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/rankstack/rank-search/internal/bus"
	"github.com/rankstack/rank-search/internal/cache"
	"github.com/rankstack/rank-search/internal/config"
	"github.com/rankstack/rank-search/internal/index"
	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
	"github.com/rankstack/rank-search/internal/retrieve/sparse"
)

func testCorpus(t *testing.T) *index.Corpus {
	t.Helper()
	c := index.NewCorpus("docs", nil)

	docs := []*index.Document{
		index.NewDocument("go-concurrency", "goroutines channels select statements").
			WithEmbedding([]float32{1, 0, 0}),
		index.NewDocument("rust-ownership", "ownership borrowing lifetimes rust").
			WithEmbedding([]float32{0, 1, 0}),
		index.NewDocument("go-errors", "error handling wrapping goroutines").
			WithEmbedding([]float32{0.9, 0.1, 0}),
	}
	sv, err := sparse.NewVector([]uint32{3, 17}, []float64{0.5, 1.2})
	if err != nil {
		t.Fatalf("sparse vector: %v", err)
	}
	docs[1].WithSparseVector(sv)

	for _, doc := range docs {
		if _, err := c.Add(doc); err != nil {
			t.Fatalf("add %s: %v", doc.ID, err)
		}
	}
	return c
}

func testService(t *testing.T) *Service {
	t.Helper()
	s := NewService(DefaultConfig(), nil)
	if err := s.RegisterCorpus(testCorpus(t)); err != nil {
		t.Fatalf("register corpus: %v", err)
	}
	return s
}

func TestSearch_LexicalOnly(t *testing.T) {
	s := testService(t)

	resp, err := s.Search(context.Background(), Request{
		Query:  "goroutines channels",
		Corpus: "docs",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Total == 0 {
		t.Fatal("expected results")
	}
	if resp.Results[0].ID != "go-concurrency" {
		t.Errorf("top result = %s, want go-concurrency", resp.Results[0].ID)
	}
	if resp.Metadata.RetrieversUsed != 1 {
		t.Errorf("retrievers used = %d, want 1", resp.Metadata.RetrieversUsed)
	}
	if _, ok := resp.Results[0].Components[StageLexical]; !ok {
		t.Error("expected lexical component score")
	}
}

func TestSearch_Hybrid(t *testing.T) {
	s := testService(t)

	resp, err := s.Search(context.Background(), Request{
		Query:     "goroutines",
		Corpus:    "docs",
		Embedding: []float32{1, 0, 0},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Metadata.RetrieversUsed != 2 {
		t.Errorf("retrievers used = %d, want 2", resp.Metadata.RetrieversUsed)
	}
	if resp.Metadata.FusionMethod != "rrf" {
		t.Errorf("fusion method = %s, want rrf", resp.Metadata.FusionMethod)
	}
	// go-concurrency matches both the query terms and the embedding, so
	// it must beat documents matched by one retriever only.
	if resp.Results[0].ID != "go-concurrency" {
		t.Errorf("top result = %s, want go-concurrency", resp.Results[0].ID)
	}
}

func TestSearch_ThreeWayHybrid(t *testing.T) {
	s := testService(t)

	sv, err := sparse.NewVector([]uint32{3, 17}, []float64{0.5, 1.0})
	if err != nil {
		t.Fatalf("sparse vector: %v", err)
	}
	resp, err := s.Search(context.Background(), Request{
		Query:        "rust ownership",
		Corpus:       "docs",
		Embedding:    []float32{0, 1, 0},
		SparseVector: sv,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Metadata.RetrieversUsed != 3 {
		t.Errorf("retrievers used = %d, want 3", resp.Metadata.RetrieversUsed)
	}
	if resp.Results[0].ID != "rust-ownership" {
		t.Errorf("top result = %s, want rust-ownership", resp.Results[0].ID)
	}
}

func TestSearch_Validation(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	_, err := s.Search(ctx, Request{Corpus: "docs"})
	if !apperrors.IsCode(err, apperrors.CodeEmptyQuery) {
		t.Errorf("empty query: got %v, want EMPTY_QUERY", err)
	}

	_, err = s.Search(ctx, Request{Query: "goroutines", Corpus: "missing"})
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Errorf("unknown corpus: got %v, want NOT_FOUND", err)
	}

	empty := index.NewCorpus("empty", nil)
	if err := s.RegisterCorpus(empty); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err = s.Search(ctx, Request{Query: "goroutines", Corpus: "empty"})
	if !apperrors.IsCode(err, apperrors.CodeEmptyIndex) {
		t.Errorf("empty corpus: got %v, want EMPTY_INDEX", err)
	}

	_, err = s.Search(ctx, Request{
		Query:     "goroutines",
		Corpus:    "docs",
		Embedding: []float32{1, 0, 0},
		Fusion:    "bogus",
	})
	if !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Errorf("bad fusion method: got %v, want VALIDATION_ERROR", err)
	}
}

func TestSearch_TopK(t *testing.T) {
	s := testService(t)

	resp, err := s.Search(context.Background(), Request{
		Query:  "goroutines",
		Corpus: "docs",
		TopK:   1,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Errorf("results = %d, want 1", len(resp.Results))
	}
}

func TestSearch_FusionMethods(t *testing.T) {
	s := testService(t)

	for _, method := range []string{"rrf", "isr", "combsum", "combmnz", "borda", "dbsf", "weighted"} {
		resp, err := s.Search(context.Background(), Request{
			Query:     "goroutines",
			Corpus:    "docs",
			Embedding: []float32{1, 0, 0},
			Fusion:    method,
		})
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}
		if resp.Total == 0 {
			t.Errorf("%s: no results", method)
		}
		if resp.Metadata.FusionMethod != method {
			t.Errorf("%s: metadata method = %s", method, resp.Metadata.FusionMethod)
		}
	}
}

func TestSearch_WeightedOverride(t *testing.T) {
	s := testService(t)

	// Drown the lexical signal so the dense ranking dominates.
	resp, err := s.Search(context.Background(), Request{
		Query:     "goroutines",
		Corpus:    "docs",
		Embedding: []float32{0, 1, 0},
		Fusion:    "weighted",
		Weights:   []float64{0.01, 10},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Results[0].ID != "rust-ownership" {
		t.Errorf("top result = %s, want rust-ownership", resp.Results[0].ID)
	}
}

func TestSearch_Cache(t *testing.T) {
	s := testService(t)
	s.SetCache(cache.NewMemoryCache(16))

	req := Request{Query: "goroutines", Corpus: "docs"}
	ctx := context.Background()

	first, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	if first.Metadata.Cached {
		t.Error("first search should not be cached")
	}

	second, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if !second.Metadata.Cached {
		t.Error("second search should be served from cache")
	}
	if second.Total != first.Total {
		t.Errorf("cached total = %d, want %d", second.Total, first.Total)
	}

	bypass, err := s.Search(ctx, Request{Query: "goroutines", Corpus: "docs", NoCache: true})
	if err != nil {
		t.Fatalf("nocache search: %v", err)
	}
	if bypass.Metadata.Cached {
		t.Error("NoCache request must not be served from cache")
	}
}

func TestSearch_Rerank(t *testing.T) {
	c := index.NewCorpus("docs", nil)
	docs := []*index.Document{
		index.NewDocument("weak", "goroutines goroutines goroutines").
			WithTokenEmbeddings([][]float32{{0, 1, 0}}),
		index.NewDocument("strong", "goroutines once").
			WithTokenEmbeddings([][]float32{{1, 0, 0}, {0.8, 0.2, 0}}),
	}
	for _, doc := range docs {
		if _, err := c.Add(doc); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	cfg := DefaultConfig()
	cfg.EnableReranking = true
	s := NewService(cfg, nil)
	if err := s.RegisterCorpus(c); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, err := s.Search(context.Background(), Request{
		Query:       "goroutines",
		Corpus:      "docs",
		QueryTokens: [][]float32{{1, 0, 0}},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !resp.Metadata.RerankingApplied {
		t.Fatal("expected reranking to be applied")
	}
	// Late interaction prefers the document whose tokens align with the
	// query tokens even though BM25 ranks the other one higher.
	if resp.Results[0].ID != "strong" {
		t.Errorf("top result = %s, want strong", resp.Results[0].ID)
	}
}

func TestSearch_RerankSkippedWithoutQueryTokens(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableReranking = true
	s := NewService(cfg, nil)
	if err := s.RegisterCorpus(testCorpus(t)); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, err := s.Search(context.Background(), Request{
		Query:  "goroutines",
		Corpus: "docs",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Metadata.RerankingApplied {
		t.Error("reranking must be skipped without query tokens")
	}
}

func TestSearch_PublishesEvent(t *testing.T) {
	s := testService(t)
	b := bus.NewMemoryBus()
	defer b.Close()
	s.SetBus(b)

	received := make(chan bus.Event, 1)
	err := b.Subscribe(context.Background(), bus.TopicSearchExecuted, func(ctx context.Context, e bus.Event) error {
		received <- e
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if _, err := s.Search(context.Background(), Request{Query: "goroutines", Corpus: "docs"}); err != nil {
		t.Fatalf("search: %v", err)
	}

	select {
	case e := <-received:
		payload, ok := e.Payload.(map[string]any)
		if !ok {
			t.Fatalf("payload type %T", e.Payload)
		}
		if payload["corpus"] != "docs" {
			t.Errorf("event corpus = %v, want docs", payload["corpus"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for search event")
	}
}

func TestRegisterCorpus_Duplicate(t *testing.T) {
	s := testService(t)
	err := s.RegisterCorpus(index.NewCorpus("docs", nil))
	if !apperrors.IsCode(err, apperrors.CodeAlreadyExists) {
		t.Errorf("got %v, want ALREADY_EXISTS", err)
	}
}

func TestCorpusNames(t *testing.T) {
	s := NewService(DefaultConfig(), nil)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := s.RegisterCorpus(index.NewCorpus(name, nil)); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	names := s.CorpusNames()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestConfigFrom(t *testing.T) {
	appCfg := config.Default()
	appCfg.Search.DefaultTopK = 25
	appCfg.Search.FusionMethod = "combsum"
	appCfg.Search.EnableReranking = true
	appCfg.Index.BM25K1 = 0.9

	pc := ConfigFrom(appCfg)
	if pc.DefaultTopK != 25 {
		t.Errorf("DefaultTopK = %d", pc.DefaultTopK)
	}
	if pc.FusionMethod != "combsum" {
		t.Errorf("FusionMethod = %s", pc.FusionMethod)
	}
	if !pc.EnableReranking {
		t.Error("EnableReranking not carried over")
	}
	if pc.BM25Params.K1 != 0.9 {
		t.Errorf("BM25 K1 = %v", pc.BM25Params.K1)
	}
}
