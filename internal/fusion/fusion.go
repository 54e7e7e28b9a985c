// Package fusion combines ranked lists from multiple retrievers into a
// single ranking for hybrid search.
//
// Rank-based methods (RRF, ISR, Borda) ignore raw scores and are robust
// to incomparable score scales. Score-based methods (CombSUM, CombMNZ,
// DBSF) normalize scores per list before combining. All methods return
// hits sorted by descending fused score with ties broken by ascending
// document ordinal.
package fusion

import (
	"math"

	"github.com/rankstack/rank-search/internal/retrieve"
)

// DefaultK is the RRF smoothing constant. Higher values reduce the
// impact of rank position differences.
const DefaultK = 60

// RRF fuses two ranked lists with reciprocal rank fusion using the
// default smoothing constant.
func RRF(a, b []retrieve.Hit) []retrieve.Hit {
	return RRFMulti([][]retrieve.Hit{a, b}, DefaultK)
}

// RRFMulti fuses any number of ranked lists with reciprocal rank
// fusion: score = sum over lists of 1/(k + rank).
func RRFMulti(lists [][]retrieve.Hit, k int) []retrieve.Hit {
	if k <= 0 {
		k = DefaultK
	}
	scores := make(map[uint32]float64)
	for _, list := range lists {
		for rank, hit := range list {
			scores[hit.Doc] += 1.0 / float64(k+rank+1)
		}
	}
	return toHits(scores)
}

// ISR fuses two ranked lists with inverse square rank fusion.
func ISR(a, b []retrieve.Hit) []retrieve.Hit {
	return ISRMulti([][]retrieve.Hit{a, b}, DefaultK)
}

// ISRMulti fuses ranked lists with inverse square rank fusion:
// score = sum over lists of 1/(k + rank)^2. The quadratic decay
// concentrates weight on top-ranked documents.
func ISRMulti(lists [][]retrieve.Hit, k int) []retrieve.Hit {
	if k <= 0 {
		k = DefaultK
	}
	scores := make(map[uint32]float64)
	for _, list := range lists {
		for rank, hit := range list {
			d := float64(k + rank + 1)
			scores[hit.Doc] += 1.0 / (d * d)
		}
	}
	return toHits(scores)
}

// CombSUM fuses two ranked lists by summing min-max normalized scores.
func CombSUM(a, b []retrieve.Hit) []retrieve.Hit {
	return CombSUMMulti([][]retrieve.Hit{a, b})
}

// CombSUMMulti sums min-max normalized scores across lists.
func CombSUMMulti(lists [][]retrieve.Hit) []retrieve.Hit {
	scores := make(map[uint32]float64)
	for _, list := range lists {
		for _, hit := range normalizeMinMax(list) {
			scores[hit.Doc] += hit.Score
		}
	}
	return toHits(scores)
}

// CombMNZ fuses two ranked lists with CombMNZ.
func CombMNZ(a, b []retrieve.Hit) []retrieve.Hit {
	return CombMNZMulti([][]retrieve.Hit{a, b})
}

// CombMNZMulti multiplies the CombSUM score by the number of lists
// that matched the document, rewarding agreement between retrievers.
func CombMNZMulti(lists [][]retrieve.Hit) []retrieve.Hit {
	sums := make(map[uint32]float64)
	counts := make(map[uint32]int)
	for _, list := range lists {
		for _, hit := range normalizeMinMax(list) {
			sums[hit.Doc] += hit.Score
			counts[hit.Doc]++
		}
	}
	scores := make(map[uint32]float64, len(sums))
	for doc, sum := range sums {
		scores[doc] = sum * float64(counts[doc])
	}
	return toHits(scores)
}

// Borda fuses two ranked lists by Borda count.
func Borda(a, b []retrieve.Hit) []retrieve.Hit {
	return BordaMulti([][]retrieve.Hit{a, b})
}

// BordaMulti awards each document len(list) - rank points per list.
func BordaMulti(lists [][]retrieve.Hit) []retrieve.Hit {
	scores := make(map[uint32]float64)
	for _, list := range lists {
		n := len(list)
		for rank, hit := range list {
			scores[hit.Doc] += float64(n - rank)
		}
	}
	return toHits(scores)
}

// DBSF fuses two ranked lists with distribution-based score fusion.
func DBSF(a, b []retrieve.Hit) []retrieve.Hit {
	return DBSFMulti([][]retrieve.Hit{a, b})
}

// DBSFMulti standardizes each list's scores to z-scores before
// summing, so lists with wider score spreads do not dominate.
func DBSFMulti(lists [][]retrieve.Hit) []retrieve.Hit {
	scores := make(map[uint32]float64)
	for _, list := range lists {
		for _, hit := range normalizeZScore(list) {
			scores[hit.Doc] += hit.Score
		}
	}
	return toHits(scores)
}

// Weighted fuses ranked lists with weighted reciprocal rank fusion.
// weights must have one entry per list; missing entries default to 1.
func Weighted(lists [][]retrieve.Hit, weights []float64, k int) []retrieve.Hit {
	if k <= 0 {
		k = DefaultK
	}
	scores := make(map[uint32]float64)
	for i, list := range lists {
		w := 1.0
		if i < len(weights) {
			w = weights[i]
		}
		for rank, hit := range list {
			scores[hit.Doc] += w / float64(k+rank+1)
		}
	}
	return toHits(scores)
}

// normalizeMinMax rescales a list's scores into [0, 1]. A constant
// list maps to all ones.
func normalizeMinMax(list []retrieve.Hit) []retrieve.Hit {
	if len(list) == 0 {
		return nil
	}
	min, max := list[0].Score, list[0].Score
	for _, hit := range list[1:] {
		if hit.Score < min {
			min = hit.Score
		}
		if hit.Score > max {
			max = hit.Score
		}
	}

	out := make([]retrieve.Hit, len(list))
	spread := max - min
	for i, hit := range list {
		score := 1.0
		if spread > 0 {
			score = (hit.Score - min) / spread
		}
		out[i] = retrieve.Hit{Doc: hit.Doc, Score: score}
	}
	return out
}

// normalizeZScore standardizes a list's scores to zero mean and unit
// variance. A constant list maps to all zeros.
func normalizeZScore(list []retrieve.Hit) []retrieve.Hit {
	if len(list) == 0 {
		return nil
	}
	var mean float64
	for _, hit := range list {
		mean += hit.Score
	}
	mean /= float64(len(list))

	var variance float64
	for _, hit := range list {
		d := hit.Score - mean
		variance += d * d
	}
	variance /= float64(len(list))
	std := math.Sqrt(variance)

	out := make([]retrieve.Hit, len(list))
	for i, hit := range list {
		score := 0.0
		if std > 0 {
			score = (hit.Score - mean) / std
		}
		out[i] = retrieve.Hit{Doc: hit.Doc, Score: score}
	}
	return out
}

func toHits(scores map[uint32]float64) []retrieve.Hit {
	hits := make([]retrieve.Hit, 0, len(scores))
	for doc, score := range scores {
		hits = append(hits, retrieve.Hit{Doc: doc, Score: score})
	}
	retrieve.SortHits(hits)
	return hits
}
