package pipeline

import (
	"github.com/rankstack/rank-search/internal/retrieve/sparse"
)

// Request describes one hybrid search. Query vectors are supplied by
// the caller; the service never computes embeddings itself.
type Request struct {
	Query  string `json:"query"`
	Corpus string `json:"corpus"`
	TopK   int    `json:"top_k,omitempty"`

	// Dense and sparse query representations. Either may be absent, in
	// which case the corresponding retriever is skipped.
	Embedding    []float32     `json:"embedding,omitempty"`
	SparseVector sparse.Vector `json:"sparse_vector,omitempty"`

	// QueryTokens are per-token embeddings for late-interaction
	// reranking. Reranking is skipped when they are absent.
	QueryTokens [][]float32 `json:"query_tokens,omitempty"`

	// Per-request overrides. Zero values fall back to the service
	// configuration.
	Fusion  string    `json:"fusion,omitempty"`
	Weights []float64 `json:"weights,omitempty"`
	Rerank  *bool     `json:"rerank,omitempty"`
	NoCache bool      `json:"no_cache,omitempty"`
}

// Result is a single ranked document.
type Result struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Content string  `json:"content,omitempty"`

	// Components holds the per-retriever scores that contributed to
	// the fused ranking, keyed by stage name.
	Components map[string]float64 `json:"components,omitempty"`
}

// SearchMetadata carries timing and provenance for one search.
type SearchMetadata struct {
	SearchTimeMs     int64  `json:"search_time_ms"`
	LexicalTimeMs    int64  `json:"lexical_time_ms"`
	DenseTimeMs      int64  `json:"dense_time_ms,omitempty"`
	SparseTimeMs     int64  `json:"sparse_time_ms,omitempty"`
	FusionTimeMs     int64  `json:"fusion_time_ms"`
	RerankTimeMs     int64  `json:"rerank_time_ms,omitempty"`
	FusionMethod     string `json:"fusion_method"`
	RetrieversUsed   int    `json:"retrievers_used"`
	CandidatesFused  int    `json:"candidates_fused"`
	RerankingApplied bool   `json:"reranking_applied"`
	Cached           bool   `json:"cached"`
}

// Response is the full result of a search.
type Response struct {
	Query    string         `json:"query"`
	Corpus   string         `json:"corpus"`
	Results  []Result       `json:"results"`
	Total    int            `json:"total"`
	Metadata SearchMetadata `json:"metadata"`
}

// Stage names used for component scores and stage metrics.
const (
	StageLexical = "lexical"
	StageDense   = "dense"
	StageSparse  = "sparse"
	StageFusion  = "fusion"
	StageRerank  = "rerank"
)
