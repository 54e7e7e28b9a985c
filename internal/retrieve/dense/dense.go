// Package dense implements dense vector retrieval over embedding
// vectors. The flat Retriever scores every document by cosine
// similarity; the hnsw subpackage provides approximate search for
// larger corpora.
//
// Embeddings are expected to be L2-normalized, so cosine similarity
// reduces to a dot product.
package dense

import (
	"math"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
	"github.com/rankstack/rank-search/internal/retrieve"
)

// Dot returns the dot product of two equally sized vectors.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Normalize returns an L2-normalized copy of v. A zero vector is
// returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	norm := math.Sqrt(sum)
	if norm < 1e-12 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

type docEntry struct {
	doc       uint32
	embedding []float32
}

// Retriever is a brute-force dense retriever. Suitable for corpora up
// to roughly 100k documents; beyond that use the hnsw subpackage.
type Retriever struct {
	docs []docEntry
	dim  int
}

// NewRetriever creates an empty flat retriever.
func NewRetriever() *Retriever {
	return &Retriever{}
}

// AddDocument stores a document embedding. The first document fixes
// the expected dimension; later mismatches are reported.
func (r *Retriever) AddDocument(doc uint32, embedding []float32) error {
	if r.dim == 0 {
		r.dim = len(embedding)
	} else if len(embedding) != r.dim {
		return apperrors.DimensionMismatchError(r.dim, len(embedding))
	}
	r.docs = append(r.docs, docEntry{doc: doc, embedding: embedding})
	return nil
}

// NumDocs returns the number of stored documents.
func (r *Retriever) NumDocs() int { return len(r.docs) }

// Dimension returns the embedding dimension, or 0 before any document
// was added.
func (r *Retriever) Dimension() int { return r.dim }

// Score returns the cosine similarity between the query and a stored
// document, or false if the document is unknown.
func (r *Retriever) Score(doc uint32, query []float32) (float64, bool) {
	for _, entry := range r.docs {
		if entry.doc == doc {
			if len(entry.embedding) != len(query) {
				return 0, true
			}
			return Dot(entry.embedding, query), true
		}
	}
	return 0, false
}

// Retrieve returns the top-k documents by cosine similarity, sorted by
// descending score.
func (r *Retriever) Retrieve(query []float32, k int) ([]retrieve.Hit, error) {
	if len(query) == 0 {
		return nil, apperrors.EmptyQueryError()
	}
	if len(r.docs) == 0 {
		return nil, apperrors.EmptyIndexError()
	}
	if len(query) != r.dim {
		return nil, apperrors.DimensionMismatchError(len(query), r.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	acc := retrieve.NewTopK(k)
	for _, entry := range r.docs {
		acc.Push(entry.doc, Dot(entry.embedding, query))
	}
	return acc.Results(), nil
}
