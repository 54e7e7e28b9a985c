// Package rerank provides second-stage reranking for retrieval
// candidates using late interaction (ColBERT-style MaxSim) scoring.
//
// MaxSim computes token-level similarities between query and document
// token embeddings and aggregates them per query token, giving
// fine-grained matching without cross-encoder cost. Token embeddings
// are expected to be L2-normalized.
package rerank

import (
	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
	"github.com/rankstack/rank-search/internal/retrieve"
	"github.com/rankstack/rank-search/internal/retrieve/dense"
)

// Candidate pairs a document ordinal with its token embeddings.
type Candidate struct {
	Doc    uint32
	Tokens [][]float32
}

// MaxSim scores a document against a query with late interaction:
// for each query token, take the maximum dot product over all document
// tokens, and sum over query tokens.
func MaxSim(queryTokens, docTokens [][]float32) float64 {
	if len(queryTokens) == 0 || len(docTokens) == 0 {
		return 0
	}
	var score float64
	for _, q := range queryTokens {
		best := dense.Dot(q, docTokens[0])
		for _, d := range docTokens[1:] {
			if s := dense.Dot(q, d); s > best {
				best = s
			}
		}
		score += best
	}
	return score
}

// Rank scores every candidate with MaxSim and returns hits sorted by
// descending score.
func Rank(queryTokens [][]float32, candidates []Candidate) []retrieve.Hit {
	hits := make([]retrieve.Hit, len(candidates))
	for i, cand := range candidates {
		hits[i] = retrieve.Hit{Doc: cand.Doc, Score: MaxSim(queryTokens, cand.Tokens)}
	}
	retrieve.SortHits(hits)
	return hits
}

// PoolTokens reduces a token embedding matrix by mean-pooling groups of
// factor consecutive tokens. A pool factor of 2 halves storage with
// under 1% quality loss on typical collections. The pooled vectors are
// re-normalized.
func PoolTokens(tokens [][]float32, factor int) ([][]float32, error) {
	if factor <= 0 {
		return nil, apperrors.ValidationError("pool factor must be positive")
	}
	if factor == 1 || len(tokens) == 0 {
		return tokens, nil
	}

	dim := len(tokens[0])
	pooled := make([][]float32, 0, (len(tokens)+factor-1)/factor)
	for start := 0; start < len(tokens); start += factor {
		end := start + factor
		if end > len(tokens) {
			end = len(tokens)
		}

		sum := make([]float32, dim)
		for _, tok := range tokens[start:end] {
			if len(tok) != dim {
				return nil, apperrors.DimensionMismatchError(dim, len(tok))
			}
			for i, x := range tok {
				sum[i] += x
			}
		}
		n := float32(end - start)
		for i := range sum {
			sum[i] /= n
		}
		pooled = append(pooled, dense.Normalize(sum))
	}
	return pooled, nil
}
