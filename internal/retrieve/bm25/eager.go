package bm25

import (
	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
	"github.com/rankstack/rank-search/internal/retrieve"
	"github.com/rankstack/rank-search/internal/retrieve/sparse"
)

// EagerIndex stores fully precomputed BM25 scores per document as
// sparse vectors over a term vocabulary. Retrieval reduces to a sparse
// dot product with a binary query vector, trading indexing time and
// memory for much faster repeated queries.
type EagerIndex struct {
	scores  map[uint32]sparse.Vector
	vocab   map[string]uint32
	terms   []string
	numDocs int
}

// NewEagerIndex creates an empty eager index.
func NewEagerIndex() *EagerIndex {
	return &EagerIndex{
		scores: make(map[uint32]sparse.Vector),
		vocab:  make(map[string]uint32),
	}
}

// NewEagerFromIndex precomputes an eager index from an inverted index
// using the given parameters. The source index is not modified.
func NewEagerFromIndex(idx *Index, params Params) *EagerIndex {
	e := NewEagerIndex()
	perDoc := make(map[uint32]map[string]float64)
	for _, term := range idx.Vocabulary() {
		idf := idx.IDF(term)
		if idf == 0 {
			continue
		}
		for doc, tf := range idx.postings[term] {
			docLen := float64(idx.docLengths[doc])
			scores, ok := perDoc[doc]
			if !ok {
				scores = make(map[string]float64)
				perDoc[doc] = scores
			}
			scores[term] = idf * idx.tfScore(float64(tf), docLen, params)
		}
	}
	for doc, scores := range perDoc {
		e.AddDocumentScores(doc, scores)
	}
	return e
}

// TermID returns the vocabulary ID of a term, or false if unknown.
func (e *EagerIndex) TermID(term string) (uint32, bool) {
	id, ok := e.vocab[term]
	return id, ok
}

func (e *EagerIndex) termID(term string) uint32 {
	if id, ok := e.vocab[term]; ok {
		return id
	}
	id := uint32(len(e.terms))
	e.vocab[term] = id
	e.terms = append(e.terms, term)
	return id
}

// NumDocs returns the number of indexed documents.
func (e *EagerIndex) NumDocs() int { return e.numDocs }

// AddDocumentScores stores precomputed per-term BM25 scores for a
// document.
func (e *EagerIndex) AddDocumentScores(doc uint32, termScores map[string]float64) {
	weights := make(map[uint32]float64, len(termScores))
	for term, score := range termScores {
		weights[e.termID(term)] = score
	}
	e.scores[doc] = sparse.FromMap(weights)
	e.numDocs++
}

// Retrieve returns the top-k documents for the query, sorted by
// descending precomputed score. Query terms outside the vocabulary are
// ignored; a query with no known terms returns no hits.
func (e *EagerIndex) Retrieve(queryTerms []string, k int) ([]retrieve.Hit, error) {
	if len(queryTerms) == 0 {
		return nil, apperrors.EmptyQueryError()
	}
	if e.numDocs == 0 {
		return nil, apperrors.EmptyIndexError()
	}
	if k <= 0 {
		return nil, nil
	}

	weights := make(map[uint32]float64, len(queryTerms))
	for _, term := range queryTerms {
		if id, ok := e.vocab[term]; ok {
			weights[id] = 1.0
		}
	}
	if len(weights) == 0 {
		return nil, nil
	}
	query := sparse.FromMap(weights)

	acc := retrieve.NewTopK(k)
	for doc, docScores := range e.scores {
		acc.Push(doc, sparse.Dot(query, docScores))
	}
	return acc.Results(), nil
}
