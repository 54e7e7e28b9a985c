// Package bm25 implements BM25 lexical retrieval over an inverted index.
//
// Three scoring variants are supported: standard Okapi BM25, BM25L
// (adds a delta to the term frequency component to counter the length
// penalty on long documents), and BM25+ (adds a delta that lower-bounds
// the contribution of any matching term).
//
// The IDF formula is ln((N - df + 0.5) / (df + 0.5) + 1), which stays
// positive even for terms appearing in nearly every document.
package bm25

import (
	"math"
	"sync"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
	"github.com/rankstack/rank-search/internal/retrieve"
)

// Variant selects the BM25 scoring formula.
type Variant string

const (
	// VariantStandard is classic Okapi BM25.
	VariantStandard Variant = "bm25"
	// VariantL is BM25L with a TF shift favoring longer documents.
	VariantL Variant = "bm25l"
	// VariantPlus is BM25+ with a lower bound on term contributions.
	VariantPlus Variant = "bm25plus"
)

// Params holds BM25 scoring parameters.
type Params struct {
	// K1 controls term frequency saturation.
	K1 float64
	// B controls document length normalization.
	B float64
	// Variant selects the scoring formula.
	Variant Variant
	// Delta is the variant shift, ignored for the standard variant.
	Delta float64
}

// DefaultParams returns standard Okapi BM25 parameters.
func DefaultParams() Params {
	return Params{K1: 1.2, B: 0.75, Variant: VariantStandard}
}

// LParams returns BM25L parameters with the conventional delta of 0.5.
func LParams() Params {
	return Params{K1: 1.2, B: 0.75, Variant: VariantL, Delta: 0.5}
}

// PlusParams returns BM25+ parameters with the conventional delta of 1.0.
func PlusParams() Params {
	return Params{K1: 1.2, B: 0.75, Variant: VariantPlus, Delta: 1.0}
}

// Index is an inverted index with BM25 scoring.
//
// Documents are added incrementally; IDF values are computed lazily on
// first retrieval after a mutation. Index is safe for concurrent reads
// once indexing has finished.
type Index struct {
	postings   map[string]map[uint32]uint32
	docFreq    map[string]uint32
	docLengths map[uint32]uint32
	totalLen   uint64
	avgDocLen  float64
	numDocs    uint32

	idfMu    sync.Mutex
	idf      map[string]float64
	idfValid bool
}

// NewIndex creates an empty BM25 index.
func NewIndex() *Index {
	return &Index{
		postings:   make(map[string]map[uint32]uint32),
		docFreq:    make(map[string]uint32),
		docLengths: make(map[uint32]uint32),
		idf:        make(map[string]float64),
	}
}

// AddDocument indexes a document's terms under the given ordinal.
// Re-adding an existing ordinal replaces nothing; callers are expected
// to assign fresh ordinals.
func (idx *Index) AddDocument(doc uint32, terms []string) {
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		posting, ok := idx.postings[term]
		if !ok {
			posting = make(map[uint32]uint32)
			idx.postings[term] = posting
		}
		posting[doc]++
		if _, dup := seen[term]; !dup {
			seen[term] = struct{}{}
			idx.docFreq[term]++
		}
	}

	idx.docLengths[doc] = uint32(len(terms))
	idx.totalLen += uint64(len(terms))
	idx.numDocs++
	idx.avgDocLen = float64(idx.totalLen) / float64(idx.numDocs)

	idx.idfMu.Lock()
	idx.idfValid = false
	idx.idfMu.Unlock()
}

// NumDocs returns the number of indexed documents.
func (idx *Index) NumDocs() int { return int(idx.numDocs) }

// TermFrequency returns the frequency of term in the given document.
func (idx *Index) TermFrequency(doc uint32, term string) int {
	return int(idx.postings[term][doc])
}

// DocumentLength returns the term count of the given document.
func (idx *Index) DocumentLength(doc uint32) int {
	return int(idx.docLengths[doc])
}

// AvgDocumentLength returns the mean document length.
func (idx *Index) AvgDocumentLength() float64 { return idx.avgDocLen }

// DocFrequency returns the number of documents containing the term.
func (idx *Index) DocFrequency(term string) int {
	return int(idx.docFreq[term])
}

// Postings returns the ordinals of documents containing the term, in
// unspecified order.
func (idx *Index) Postings(term string) []uint32 {
	posting := idx.postings[term]
	if len(posting) == 0 {
		return nil
	}
	docs := make([]uint32, 0, len(posting))
	for doc := range posting {
		docs = append(docs, doc)
	}
	return docs
}

// Vocabulary returns all indexed terms in unspecified order.
func (idx *Index) Vocabulary() []string {
	terms := make([]string, 0, len(idx.postings))
	for term := range idx.postings {
		terms = append(terms, term)
	}
	return terms
}

// IDF returns the inverse document frequency of a term, or 0 for terms
// absent from the index.
func (idx *Index) IDF(term string) float64 {
	idx.ensureIDF()
	idx.idfMu.Lock()
	v := idx.idf[term]
	idx.idfMu.Unlock()
	return v
}

func (idx *Index) ensureIDF() {
	idx.idfMu.Lock()
	defer idx.idfMu.Unlock()
	if idx.idfValid {
		return
	}
	n := float64(idx.numDocs)
	idx.idf = make(map[string]float64, len(idx.docFreq))
	for term, df := range idx.docFreq {
		idx.idf[term] = math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1.0)
	}
	idx.idfValid = true
}

// Score computes the BM25 score of a document against query terms.
func (idx *Index) Score(doc uint32, queryTerms []string, params Params) float64 {
	if idx.avgDocLen == 0 {
		return 0
	}
	idx.ensureIDF()

	docLen := float64(idx.docLengths[doc])
	var score float64
	for _, term := range queryTerms {
		idf := idx.IDF(term)
		if idf == 0 {
			continue
		}
		tf := float64(idx.postings[term][doc])
		if tf == 0 {
			continue
		}
		score += idf * idx.tfScore(tf, docLen, params)
	}
	return score
}

func (idx *Index) tfScore(tf, docLen float64, params Params) float64 {
	num := tf * (params.K1 + 1)
	den := tf + params.K1*(1-params.B+params.B*docLen/idx.avgDocLen)
	s := num / den
	if params.Variant == VariantL || params.Variant == VariantPlus {
		s += params.Delta
	}
	return s
}

// Retrieve returns the top-k documents for the query, sorted by
// descending BM25 score. Only documents containing at least one query
// term are considered.
func (idx *Index) Retrieve(queryTerms []string, k int, params Params) ([]retrieve.Hit, error) {
	if len(queryTerms) == 0 {
		return nil, apperrors.EmptyQueryError()
	}
	if idx.numDocs == 0 {
		return nil, apperrors.EmptyIndexError()
	}
	if k <= 0 {
		return nil, nil
	}

	idx.ensureIDF()

	seen := make(map[uint32]struct{})
	acc := retrieve.NewTopK(k)
	for _, term := range queryTerms {
		for doc := range idx.postings[term] {
			if _, dup := seen[doc]; dup {
				continue
			}
			seen[doc] = struct{}{}
			acc.Push(doc, idx.Score(doc, queryTerms, params))
		}
	}
	return acc.Results(), nil
}
