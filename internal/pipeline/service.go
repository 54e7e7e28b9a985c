// Package pipeline orchestrates hybrid search: concurrent first-stage
// retrieval, rank fusion, and optional late-interaction reranking over
// a registry of corpora.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rankstack/rank-search/internal/bus"
	"github.com/rankstack/rank-search/internal/cache"
	"github.com/rankstack/rank-search/internal/config"
	"github.com/rankstack/rank-search/internal/fusion"
	"github.com/rankstack/rank-search/internal/index"
	"github.com/rankstack/rank-search/internal/metrics"
	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
	"github.com/rankstack/rank-search/internal/pkg/logger"
	"github.com/rankstack/rank-search/internal/rerank"
	"github.com/rankstack/rank-search/internal/retrieve"
	"github.com/rankstack/rank-search/internal/retrieve/bm25"
)

// Defaults applied when the configuration leaves a knob unset.
const (
	DefaultTopK        = 10
	MaxTopK            = 1000
	PrefetchMultiplier = 3
	DefaultCacheTTL    = 5 * time.Minute
)

// Config controls the search pipeline.
type Config struct {
	DefaultTopK      int
	FusionMethod     string
	FusionK          int
	LexicalWeight    float64
	DenseWeight      float64
	SparseWeight     float64
	EnableReranking  bool
	RerankCandidates int
	BM25Params       bm25.Params
	CacheTTL         time.Duration
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTopK:      DefaultTopK,
		FusionMethod:     "rrf",
		FusionK:          fusion.DefaultK,
		LexicalWeight:    1.0,
		DenseWeight:      1.0,
		SparseWeight:     1.0,
		EnableReranking:  false,
		RerankCandidates: 50,
		BM25Params:       bm25.DefaultParams(),
		CacheTTL:         DefaultCacheTTL,
	}
}

// ConfigFrom builds a pipeline config from the application config.
func ConfigFrom(cfg *config.Config) Config {
	pc := DefaultConfig()
	if cfg.Search.DefaultTopK > 0 {
		pc.DefaultTopK = cfg.Search.DefaultTopK
	}
	if cfg.Search.FusionMethod != "" {
		pc.FusionMethod = cfg.Search.FusionMethod
	}
	if cfg.Search.FusionK > 0 {
		pc.FusionK = cfg.Search.FusionK
	}
	pc.LexicalWeight = cfg.Search.LexicalWeight
	pc.DenseWeight = cfg.Search.DenseWeight
	pc.SparseWeight = cfg.Search.SparseWeight
	pc.EnableReranking = cfg.Search.EnableReranking
	if cfg.Search.RerankCandidates > 0 {
		pc.RerankCandidates = cfg.Search.RerankCandidates
	}
	if cfg.Index.BM25K1 > 0 {
		pc.BM25Params.K1 = cfg.Index.BM25K1
	}
	if cfg.Index.BM25B >= 0 {
		pc.BM25Params.B = cfg.Index.BM25B
	}
	return pc
}

// Service runs hybrid searches over registered corpora. Cache, bus and
// metrics are optional; a nil value disables the integration.
type Service struct {
	mu      sync.RWMutex
	corpora map[string]*index.Corpus

	cfg      Config
	cache    cache.Cache
	bus      bus.Bus
	metrics  *metrics.Metrics
	reranker *rerank.MultiPass
	log      *logger.Logger
}

// NewService creates a search service.
func NewService(cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		corpora:  make(map[string]*index.Corpus),
		cfg:      cfg,
		reranker: rerank.NewMultiPass(log),
		log:      log,
	}
}

// SetCache attaches a query result cache.
func (s *Service) SetCache(c cache.Cache) { s.cache = c }

// SetBus attaches an event bus for search notifications.
func (s *Service) SetBus(b bus.Bus) { s.bus = b }

// SetMetrics attaches the metrics registry.
func (s *Service) SetMetrics(m *metrics.Metrics) { s.metrics = m }

// RegisterCorpus adds a corpus to the registry. Registering a name
// twice is an error.
func (s *Service) RegisterCorpus(c *index.Corpus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.corpora[c.Name()]; ok {
		return apperrors.New(apperrors.CodeAlreadyExists,
			fmt.Sprintf("corpus %q is already registered", c.Name()))
	}
	s.corpora[c.Name()] = c
	if s.metrics != nil {
		s.metrics.UpdateCorpusCount(len(s.corpora))
	}
	return nil
}

// UnregisterCorpus removes a corpus from the registry.
func (s *Service) UnregisterCorpus(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.corpora[name]; !ok {
		return apperrors.NotFoundError(fmt.Sprintf("corpus %q", name))
	}
	delete(s.corpora, name)
	if s.metrics != nil {
		s.metrics.UpdateCorpusCount(len(s.corpora))
	}
	return nil
}

// Corpus returns a registered corpus by name.
func (s *Service) Corpus(name string) (*index.Corpus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.corpora[name]
	if !ok {
		return nil, apperrors.NotFoundError(fmt.Sprintf("corpus %q", name))
	}
	return c, nil
}

// CorpusNames returns the registered corpus names, sorted.
func (s *Service) CorpusNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.corpora))
	for name := range s.corpora {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// stageList is one retriever's output plus its timing.
type stageList struct {
	stage     string
	hits      []retrieve.Hit
	latencyMs int64
}

// Search runs the full hybrid pipeline for one request.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	resp, err := s.search(ctx, req)

	if s.metrics != nil {
		count := 0
		if resp != nil {
			count = len(resp.Results)
		}
		s.metrics.RecordSearch(time.Since(start).Milliseconds(), count, err)
	}
	return resp, err
}

func (s *Service) search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if req.Query == "" {
		return nil, apperrors.EmptyQueryError()
	}
	corpus, err := s.Corpus(req.Corpus)
	if err != nil {
		return nil, err
	}
	if corpus.Len() == 0 {
		return nil, apperrors.EmptyIndexError()
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	method := s.cfg.FusionMethod
	if req.Fusion != "" {
		method = req.Fusion
	}
	doRerank := s.cfg.EnableReranking
	if req.Rerank != nil {
		doRerank = *req.Rerank
	}
	doRerank = doRerank && len(req.QueryTokens) > 0

	cacheKey := s.cacheKey(req, topK, method, doRerank)
	if s.cache != nil && !req.NoCache {
		if cached, ok := s.cacheGet(ctx, cacheKey); ok {
			cached.Metadata.Cached = true
			return cached, nil
		}
	}

	// Pull more candidates than requested so fusion and reranking have
	// material to work with.
	candidateLimit := topK * PrefetchMultiplier
	if doRerank && candidateLimit < s.cfg.RerankCandidates {
		candidateLimit = s.cfg.RerankCandidates
	}

	lists, err := s.retrieve(ctx, corpus, req, candidateLimit)
	if err != nil {
		return nil, err
	}

	fusionStart := time.Now()
	fused, err := s.fuse(lists, req.Weights, method, topK, candidateLimit)
	if err != nil {
		return nil, err
	}
	fusionMs := time.Since(fusionStart).Milliseconds()
	s.recordStage(req.Corpus, StageFusion, fusionMs)
	candidatesFused := len(fused)

	meta := SearchMetadata{
		FusionMethod:    method,
		FusionTimeMs:    fusionMs,
		RetrieversUsed:  len(lists),
		CandidatesFused: candidatesFused,
	}
	for _, list := range lists {
		switch list.stage {
		case StageLexical:
			meta.LexicalTimeMs = list.latencyMs
		case StageDense:
			meta.DenseTimeMs = list.latencyMs
		case StageSparse:
			meta.SparseTimeMs = list.latencyMs
		}
	}

	if doRerank {
		reranked, rerankMs, applied := s.rerankHits(ctx, corpus, req.Corpus, req.QueryTokens, fused)
		if applied {
			fused = reranked
			meta.RerankingApplied = true
			meta.RerankTimeMs = rerankMs
		}
	}

	fused = retrieve.TopK(fused, topK)

	resp := &Response{
		Query:   req.Query,
		Corpus:  req.Corpus,
		Results: s.buildResults(corpus, fused, lists),
		Total:   len(fused),
	}
	meta.SearchTimeMs = time.Since(start).Milliseconds()
	resp.Metadata = meta

	if s.cache != nil && !req.NoCache {
		s.cacheSet(ctx, cacheKey, resp)
	}
	s.publishSearch(ctx, resp)

	return resp, nil
}

// retrieve runs every applicable first-stage retriever concurrently.
func (s *Service) retrieve(ctx context.Context, corpus *index.Corpus, req Request, limit int) ([]stageList, error) {
	terms := corpus.Analyzer().Tokenize(req.Query)
	if len(terms) == 0 && len(req.Embedding) == 0 && req.SparseVector.NNZ() == 0 {
		return nil, apperrors.EmptyQueryError()
	}

	var mu sync.Mutex
	var lists []stageList
	add := func(stage string, hits []retrieve.Hit, elapsed time.Duration) {
		ms := elapsed.Milliseconds()
		s.recordStage(corpus.Name(), stage, ms)
		mu.Lock()
		lists = append(lists, stageList{stage: stage, hits: hits, latencyMs: ms})
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	if len(terms) > 0 {
		g.Go(func() error {
			stageStart := time.Now()
			hits, err := corpus.Lexical().Retrieve(terms, limit, s.cfg.BM25Params)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeInternal, "lexical retrieval", err)
			}
			add(StageLexical, hits, time.Since(stageStart))
			return gctx.Err()
		})
	}
	if len(req.Embedding) > 0 {
		g.Go(func() error {
			stageStart := time.Now()
			hits, err := corpus.Dense().Retrieve(req.Embedding, limit)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeInternal, "dense retrieval", err)
			}
			add(StageDense, hits, time.Since(stageStart))
			return gctx.Err()
		})
	}
	if req.SparseVector.NNZ() > 0 {
		g.Go(func() error {
			stageStart := time.Now()
			hits, err := corpus.Sparse().Retrieve(req.SparseVector, limit)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeInternal, "sparse retrieval", err)
			}
			add(StageSparse, hits, time.Since(stageStart))
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deterministic stage order regardless of goroutine completion.
	sort.Slice(lists, func(i, j int) bool {
		return stageRank(lists[i].stage) < stageRank(lists[j].stage)
	})
	return lists, nil
}

func stageRank(stage string) int {
	switch stage {
	case StageLexical:
		return 0
	case StageDense:
		return 1
	case StageSparse:
		return 2
	}
	return 3
}

// fuse combines the per-retriever lists with the configured method.
// A single list passes through untouched.
func (s *Service) fuse(lists []stageList, reqWeights []float64, method string, topK, limit int) ([]retrieve.Hit, error) {
	if len(lists) == 0 {
		return nil, nil
	}
	if len(lists) == 1 {
		return lists[0].hits, nil
	}

	ranked := make([][]retrieve.Hit, len(lists))
	for i, list := range lists {
		ranked[i] = list.hits
	}

	switch method {
	case "rrf", "":
		return fusion.RRFMulti(ranked, s.cfg.FusionK), nil
	case "isr":
		return fusion.ISRMulti(ranked, s.cfg.FusionK), nil
	case "combsum":
		return fusion.CombSUMMulti(ranked), nil
	case "combmnz":
		return fusion.CombMNZMulti(ranked), nil
	case "borda":
		return fusion.BordaMulti(ranked), nil
	case "dbsf":
		return fusion.DBSFMulti(ranked), nil
	case "weighted":
		weights := reqWeights
		if len(weights) != len(lists) {
			weights = make([]float64, len(lists))
			for i, list := range lists {
				weights[i] = s.stageWeight(list.stage)
			}
		}
		return fusion.Weighted(ranked, weights, limit), nil
	}
	return nil, apperrors.ValidationError(fmt.Sprintf("unknown fusion method %q", method))
}

func (s *Service) stageWeight(stage string) float64 {
	switch stage {
	case StageLexical:
		return s.cfg.LexicalWeight
	case StageDense:
		return s.cfg.DenseWeight
	case StageSparse:
		return s.cfg.SparseWeight
	}
	return 1.0
}

// rerankHits reorders the fused candidates with multi-pass MaxSim.
// Failures degrade to the fused order rather than failing the search.
func (s *Service) rerankHits(ctx context.Context, corpus *index.Corpus, corpusName string, queryTokens [][]float32, fused []retrieve.Hit) ([]retrieve.Hit, int64, bool) {
	limit := s.cfg.RerankCandidates
	if limit <= 0 || limit > len(fused) {
		limit = len(fused)
	}

	candidates := make([]rerank.Candidate, 0, limit)
	for _, hit := range fused[:limit] {
		doc, ok := corpus.Document(hit.Doc)
		if !ok {
			continue
		}
		tokens := doc.TokenEmbeddings
		if len(tokens) == 0 && len(doc.Embedding) > 0 {
			tokens = [][]float32{doc.Embedding}
		}
		if len(tokens) == 0 {
			continue
		}
		candidates = append(candidates, rerank.Candidate{Doc: hit.Doc, Tokens: tokens})
	}
	if len(candidates) == 0 {
		return fused, 0, false
	}

	rerankStart := time.Now()
	result, err := s.reranker.Rerank(ctx, queryTokens, candidates)
	rerankMs := time.Since(rerankStart).Milliseconds()
	if err != nil {
		s.log.WithError(err).WithCorpus(corpusName).Warn("reranking failed, returning fused order")
		return fused, 0, false
	}
	s.recordStage(corpusName, StageRerank, rerankMs)
	if s.metrics != nil {
		s.metrics.RecordRerank(len(candidates), rerankMs)
	}

	// Candidates the reranker never saw keep their fused positions
	// behind the reranked head.
	seen := make(map[uint32]struct{}, len(result.Hits))
	for _, hit := range result.Hits {
		seen[hit.Doc] = struct{}{}
	}
	merged := make([]retrieve.Hit, 0, len(fused))
	merged = append(merged, result.Hits...)
	for _, hit := range fused {
		if _, ok := seen[hit.Doc]; !ok {
			merged = append(merged, hit)
		}
	}
	return merged, rerankMs, true
}

// buildResults maps ordinal hits back to external documents, attaching
// per-stage component scores.
func (s *Service) buildResults(corpus *index.Corpus, hits []retrieve.Hit, lists []stageList) []Result {
	components := make(map[uint32]map[string]float64)
	for _, list := range lists {
		for _, hit := range list.hits {
			m, ok := components[hit.Doc]
			if !ok {
				m = make(map[string]float64, len(lists))
				components[hit.Doc] = m
			}
			m[list.stage] = hit.Score
		}
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		doc, ok := corpus.Document(hit.Doc)
		if !ok {
			continue
		}
		results = append(results, Result{
			ID:         doc.ID,
			Score:      hit.Score,
			Content:    doc.Content,
			Components: components[hit.Doc],
		})
	}
	return results
}

func (s *Service) recordStage(corpus, stage string, latencyMs int64) {
	if s.metrics != nil {
		s.metrics.RecordSearchStage(corpus, stage, latencyMs)
	}
}

func (s *Service) cacheKey(req Request, topK int, method string, reranked bool) string {
	return fmt.Sprintf("search:%s:%s:%d:%s:%t:%t:%t",
		req.Corpus, req.Query, topK, method, reranked,
		len(req.Embedding) > 0, req.SparseVector.NNZ() > 0)
}

func (s *Service) cacheGet(ctx context.Context, key string) (*Response, bool) {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.WithError(err).Debug("cache lookup failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		s.log.WithError(err).Warn("discarding undecodable cached response")
		return nil, false
	}
	return &resp, true
}

func (s *Service) cacheSet(ctx context.Context, key string, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cfg.CacheTTL); err != nil {
		s.log.WithError(err).Debug("cache store failed")
	}
}

// publishSearch emits a search event. Failures are logged, never
// surfaced to the caller.
func (s *Service) publishSearch(ctx context.Context, resp *Response) {
	if s.bus == nil {
		return
	}
	event := bus.NewEvent(bus.TopicSearchExecuted, "pipeline", map[string]any{
		"corpus":         resp.Corpus,
		"query":          resp.Query,
		"result_count":   resp.Total,
		"search_time_ms": resp.Metadata.SearchTimeMs,
		"fusion_method":  resp.Metadata.FusionMethod,
		"reranked":       resp.Metadata.RerankingApplied,
	})
	err := s.bus.Publish(ctx, bus.TopicSearchExecuted, event)
	if err != nil {
		s.log.WithError(err).Warn("failed to publish search event")
	}
	if s.metrics != nil {
		s.metrics.RecordBusPublish(bus.TopicSearchExecuted, err)
	}
}
