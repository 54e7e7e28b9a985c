// Package eval implements IR evaluation metrics over ranked results,
// TREC qrels/run file handling, and a batch evaluator.
//
// Graded metrics operate on relevance grades in ranked order, as
// produced by looking each result up in the judgments. Binary metrics
// operate on a ranked ID list plus a set of relevant IDs.
package eval

import (
	"math"
	"sort"
)

// NDCG calculates Normalized Discounted Cumulative Gain at k over
// relevance grades in ranked order.
func NDCG(relevances []int, k int) float64 {
	if k > len(relevances) {
		k = len(relevances)
	}
	if k == 0 {
		return 0
	}

	dcg := float64(relevances[0])
	for i := 1; i < k; i++ {
		dcg += float64(relevances[i]) / math.Log2(float64(i+2))
	}

	sorted := make([]int, len(relevances))
	copy(sorted, relevances)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	idcg := float64(sorted[0])
	for i := 1; i < k; i++ {
		idcg += float64(sorted[i]) / math.Log2(float64(i+2))
	}

	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// Recall calculates Recall at k. A grade at or above threshold counts
// as relevant.
func Recall(relevances []int, k int, threshold int) float64 {
	if k > len(relevances) {
		k = len(relevances)
	}

	totalRelevant := 0
	for _, r := range relevances {
		if r >= threshold {
			totalRelevant++
		}
	}
	if totalRelevant == 0 {
		return 0
	}

	relevantInK := 0
	for i := 0; i < k; i++ {
		if relevances[i] >= threshold {
			relevantInK++
		}
	}
	return float64(relevantInK) / float64(totalRelevant)
}

// Precision calculates Precision at k.
func Precision(relevances []int, k int, threshold int) float64 {
	if k > len(relevances) {
		k = len(relevances)
	}
	if k == 0 {
		return 0
	}

	relevant := 0
	for i := 0; i < k; i++ {
		if relevances[i] >= threshold {
			relevant++
		}
	}
	return float64(relevant) / float64(k)
}

// MRR returns the reciprocal rank of the first result at or above
// threshold, or 0 when none qualifies.
func MRR(relevances []int, threshold int) float64 {
	for i, r := range relevances {
		if r >= threshold {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// AveragePrecision calculates Average Precision over the full ranking.
func AveragePrecision(relevances []int, threshold int) float64 {
	relevant := 0
	sumPrecision := 0.0

	for i, r := range relevances {
		if r >= threshold {
			relevant++
			sumPrecision += float64(relevant) / float64(i+1)
		}
	}

	if relevant == 0 {
		return 0
	}
	return sumPrecision / float64(relevant)
}

// ERR calculates Expected Reciprocal Rank for graded judgments.
// Each grade maps to a stop probability (2^rel - 1) / 2^maxGrade; the
// cascade model accumulates 1/rank weighted by the chance the user
// reaches that rank and stops there.
func ERR(relevances []int, maxGrade int) float64 {
	if maxGrade <= 0 {
		return 0
	}

	denom := math.Pow(2, float64(maxGrade))
	err := 0.0
	pReach := 1.0
	for i, rel := range relevances {
		pStop := (math.Pow(2, float64(rel)) - 1) / denom
		err += pReach * pStop / float64(i+1)
		pReach *= 1 - pStop
	}
	return err
}
