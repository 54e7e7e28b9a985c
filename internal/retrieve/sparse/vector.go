// Package sparse implements sparse vector retrieval for learned sparse
// representations such as SPLADE term weightings.
//
// Vectors are stored as parallel index/value slices with indices sorted
// ascending and unique, which allows dot products to run as a single
// two-pointer merge in O(nnz(a) + nnz(b)).
package sparse

import (
	"math"
	"sort"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
	"github.com/rankstack/rank-search/internal/retrieve"
)

// Vector is a sparse vector with sorted, unique indices.
type Vector struct {
	Indices []uint32
	Values  []float64
}

// NewVector creates a vector after validating that indices and values
// have equal length and indices are strictly ascending.
func NewVector(indices []uint32, values []float64) (Vector, error) {
	if len(indices) != len(values) {
		return Vector{}, apperrors.ValidationError("sparse vector indices and values length mismatch")
	}
	for i := 1; i < len(indices); i++ {
		if indices[i] <= indices[i-1] {
			return Vector{}, apperrors.ValidationError("sparse vector indices must be sorted and unique")
		}
	}
	return Vector{Indices: indices, Values: values}, nil
}

// NewVectorUnchecked creates a vector without validation. The caller
// must guarantee sorted unique indices and matching lengths.
func NewVectorUnchecked(indices []uint32, values []float64) Vector {
	return Vector{Indices: indices, Values: values}
}

// FromMap builds a vector from an index-to-weight map.
func FromMap(weights map[uint32]float64) Vector {
	indices := make([]uint32, 0, len(weights))
	for idx := range weights {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float64, len(indices))
	for i, idx := range indices {
		values[i] = weights[idx]
	}
	return Vector{Indices: indices, Values: values}
}

// NNZ returns the number of non-zero entries.
func (v Vector) NNZ() int { return len(v.Indices) }

// Norm returns the L2 norm of the vector.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy, or an empty vector when the
// norm is effectively zero.
func (v Vector) Normalize() Vector {
	norm := v.Norm()
	if norm < 1e-9 {
		return Vector{}
	}
	values := make([]float64, len(v.Values))
	for i, x := range v.Values {
		values[i] = x / norm
	}
	indices := make([]uint32, len(v.Indices))
	copy(indices, v.Indices)
	return Vector{Indices: indices, Values: values}
}

// Prune returns a copy without entries whose magnitude is below the
// threshold.
func (v Vector) Prune(threshold float64) Vector {
	indices := make([]uint32, 0, len(v.Indices))
	values := make([]float64, 0, len(v.Values))
	for i, x := range v.Values {
		if math.Abs(x) >= threshold {
			indices = append(indices, v.Indices[i])
			values = append(values, x)
		}
	}
	return Vector{Indices: indices, Values: values}
}

// TopK keeps only the k entries with the largest magnitude, preserving
// index order. Used to cap learned sparse vector sizes.
func (v Vector) TopK(k int) Vector {
	if k >= len(v.Indices) {
		indices := make([]uint32, len(v.Indices))
		values := make([]float64, len(v.Values))
		copy(indices, v.Indices)
		copy(values, v.Values)
		return Vector{Indices: indices, Values: values}
	}
	if k <= 0 {
		return Vector{}
	}

	order := make([]int, len(v.Values))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return math.Abs(v.Values[order[i]]) > math.Abs(v.Values[order[j]])
	})

	kept := order[:k]
	sort.Ints(kept)

	indices := make([]uint32, k)
	values := make([]float64, k)
	for i, pos := range kept {
		indices[i] = v.Indices[pos]
		values[i] = v.Values[pos]
	}
	return Vector{Indices: indices, Values: values}
}

// Dot computes the dot product of two sparse vectors with a two-pointer
// merge over the sorted index slices.
func Dot(a, b Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			sum += a.Values[i] * b.Values[j]
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Retriever scores documents by sparse dot product.
type Retriever struct {
	docs map[uint32]Vector
}

// NewRetriever creates an empty sparse retriever.
func NewRetriever() *Retriever {
	return &Retriever{docs: make(map[uint32]Vector)}
}

// AddDocument stores a document vector under the given ordinal,
// replacing any previous vector for that ordinal.
func (r *Retriever) AddDocument(doc uint32, vector Vector) {
	r.docs[doc] = vector
}

// NumDocs returns the number of stored documents.
func (r *Retriever) NumDocs() int { return len(r.docs) }

// Document returns the stored vector for a document ordinal.
func (r *Retriever) Document(doc uint32) (Vector, bool) {
	v, ok := r.docs[doc]
	return v, ok
}

// Score returns the dot product between the query and a document, or
// false if the document is not stored.
func (r *Retriever) Score(doc uint32, query Vector) (float64, bool) {
	v, ok := r.docs[doc]
	if !ok {
		return 0, false
	}
	return Dot(query, v), true
}

// Retrieve returns the top-k documents by dot product with the query,
// sorted by descending score.
func (r *Retriever) Retrieve(query Vector, k int) ([]retrieve.Hit, error) {
	if query.NNZ() == 0 {
		return nil, apperrors.EmptyQueryError()
	}
	if len(r.docs) == 0 {
		return nil, apperrors.EmptyIndexError()
	}
	if k <= 0 {
		return nil, nil
	}

	acc := retrieve.NewTopK(k)
	for doc, vector := range r.docs {
		acc.Push(doc, Dot(query, vector))
	}
	return acc.Results(), nil
}
