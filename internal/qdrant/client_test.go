package qdrant

import (
	"testing"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

func TestDefaultClientConfig(t *testing.T) {
	cfg := DefaultClientConfig()

	if cfg.Host != DefaultHost {
		t.Errorf("expected host %s, got %s", DefaultHost, cfg.Host)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, cfg.Timeout)
	}
}

func TestDefaultCollectionConfig(t *testing.T) {
	cfg := DefaultCollectionConfig("docs", 768)

	if cfg.Name != "docs" {
		t.Errorf("expected name 'docs', got %s", cfg.Name)
	}
	if cfg.DenseVectorSize != 768 {
		t.Errorf("expected dense vector size 768, got %d", cfg.DenseVectorSize)
	}
	if !cfg.OnDiskPayload {
		t.Error("expected OnDiskPayload to be true")
	}
}

func TestQualify(t *testing.T) {
	tests := []struct {
		prefix   string
		input    string
		expected string
	}{
		{"", "default", "rank_default"},
		{"", "docs", "rank_docs"},
		{"", "test-corpus", "rank_test-corpus"},
		{"staging_", "docs", "staging_docs"},
	}

	for _, tt := range tests {
		cfg := DefaultClientConfig()
		if tt.prefix != "" {
			cfg.CollectionPrefix = tt.prefix
		}
		c := &Client{config: cfg}
		if result := c.qualify(tt.input); result != tt.expected {
			t.Errorf("qualify(%s) = %s, expected %s", tt.input, result, tt.expected)
		}
	}
}

func TestBuildSearchFilter(t *testing.T) {
	if f := buildSearchFilter(nil); f != nil {
		t.Error("nil filter should produce nil")
	}
	if f := buildSearchFilter(&SearchFilter{}); f != nil {
		t.Error("empty filter should produce nil")
	}

	f := buildSearchFilter(&SearchFilter{Corpus: "docs", ExternalID: "doc-1"})
	if f == nil {
		t.Fatal("expected non-nil filter")
	}
	if len(f.Must) != 2 {
		t.Errorf("expected 2 conditions, got %d", len(f.Must))
	}
}

func TestBuildDeleteFilter(t *testing.T) {
	if f := buildDeleteFilter(DeleteFilter{}); f != nil {
		t.Error("empty delete filter should produce nil")
	}

	f := buildDeleteFilter(DeleteFilter{ExternalID: "doc-1"})
	if f == nil || len(f.Must) != 1 {
		t.Fatalf("expected 1 condition, got %+v", f)
	}
}

func TestPointToQdrant(t *testing.T) {
	p := Point{
		ID:            "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		DenseVector:   []float32{0.1, 0.2},
		SparseIndices: []uint32{3, 7},
		SparseValues:  []float32{0.5, 0.9},
		Payload: PointPayload{
			Corpus:     "docs",
			ExternalID: "doc-1",
			Content:    "hello",
			IndexedAt:  time.Now(),
		},
	}

	qp := pointToQdrant(p)

	named := qp.Vectors.VectorsOptions.(*qdrant.Vectors_Vectors).Vectors.Vectors
	if len(named["dense"].Data) != 2 {
		t.Errorf("dense vector length = %d, want 2", len(named["dense"].Data))
	}
	if named["sparse"].Indices == nil || len(named["sparse"].Indices.Data) != 2 {
		t.Error("expected sparse indices to be set")
	}

	// Lexical-only points carry no sparse vector.
	p.SparseIndices = nil
	p.SparseValues = nil
	qp = pointToQdrant(p)
	named = qp.Vectors.VectorsOptions.(*qdrant.Vectors_Vectors).Vectors.Vectors
	if _, ok := named["sparse"]; ok {
		t.Error("expected no sparse vector for dense-only point")
	}
}

func TestExtractPayload(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	raw := qdrant.NewValueMap(map[string]any{
		"corpus":       "docs",
		"external_id":  "doc-1",
		"content":      "body text",
		"content_hash": "abc123",
		"indexed_at":   now.Format(time.RFC3339),
	})

	payload := extractPayload(raw)

	if payload.Corpus != "docs" {
		t.Errorf("Corpus = %s, want docs", payload.Corpus)
	}
	if payload.ExternalID != "doc-1" {
		t.Errorf("ExternalID = %s, want doc-1", payload.ExternalID)
	}
	if !payload.IndexedAt.Equal(now) {
		t.Errorf("IndexedAt = %v, want %v", payload.IndexedAt, now)
	}
}
