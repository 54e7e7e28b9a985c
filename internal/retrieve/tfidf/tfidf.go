// Package tfidf implements TF-IDF retrieval over the shared inverted
// index as a simpler baseline next to BM25.
package tfidf

import (
	"math"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
	"github.com/rankstack/rank-search/internal/retrieve"
	"github.com/rankstack/rank-search/internal/retrieve/bm25"
)

// TFVariant selects the term frequency weighting.
type TFVariant string

const (
	// TFLinear uses the raw term count.
	TFLinear TFVariant = "linear"
	// TFLogScaled uses 1 + ln(tf).
	TFLogScaled TFVariant = "log"
)

// IDFVariant selects the inverse document frequency formula.
type IDFVariant string

const (
	// IDFStandard uses ln(N / df).
	IDFStandard IDFVariant = "standard"
	// IDFSmoothed uses ln(1 + (N - df + 0.5) / (df + 0.5)).
	IDFSmoothed IDFVariant = "smoothed"
)

// Params holds TF-IDF weighting choices.
type Params struct {
	TF  TFVariant
	IDF IDFVariant
}

// DefaultParams returns log-scaled TF with standard IDF.
func DefaultParams() Params {
	return Params{TF: TFLogScaled, IDF: IDFStandard}
}

// LinearParams returns raw-count TF with standard IDF.
func LinearParams() Params {
	return Params{TF: TFLinear, IDF: IDFStandard}
}

// SmoothedParams returns log-scaled TF with smoothed IDF, which avoids
// a zero weight for terms present in every document.
func SmoothedParams() Params {
	return Params{TF: TFLogScaled, IDF: IDFSmoothed}
}

func termFreq(count int, variant TFVariant) float64 {
	switch variant {
	case TFLinear:
		return float64(count)
	default:
		if count == 0 {
			return 0
		}
		return 1 + math.Log(float64(count))
	}
}

func inverseDocFreq(numDocs, docFreq int, variant IDFVariant) float64 {
	if docFreq == 0 {
		return 0
	}
	n := float64(numDocs)
	df := float64(docFreq)
	switch variant {
	case IDFSmoothed:
		return math.Log(1 + (n-df+0.5)/(df+0.5))
	default:
		return math.Log(n / df)
	}
}

// Score computes the TF-IDF score of a document against query terms.
func Score(idx *bm25.Index, doc uint32, queryTerms []string, params Params) float64 {
	var score float64
	for _, term := range queryTerms {
		tf := idx.TermFrequency(doc, term)
		if tf == 0 {
			continue
		}
		idf := inverseDocFreq(idx.NumDocs(), idx.DocFrequency(term), params.IDF)
		if idf == 0 {
			continue
		}
		score += termFreq(tf, params.TF) * idf
	}
	return score
}

// Retrieve returns the top-k documents for the query by TF-IDF score.
func Retrieve(idx *bm25.Index, queryTerms []string, k int, params Params) ([]retrieve.Hit, error) {
	if len(queryTerms) == 0 {
		return nil, apperrors.EmptyQueryError()
	}
	if idx.NumDocs() == 0 {
		return nil, apperrors.EmptyIndexError()
	}
	if k <= 0 {
		return nil, nil
	}

	seen := make(map[uint32]struct{})
	acc := retrieve.NewTopK(k)
	for _, term := range queryTerms {
		for _, doc := range idx.Postings(term) {
			if _, dup := seen[doc]; dup {
				continue
			}
			seen[doc] = struct{}{}
			acc.Push(doc, Score(idx, doc, queryTerms, params))
		}
	}
	return acc.Results(), nil
}
