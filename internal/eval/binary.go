package eval

import "math"

// Binary metrics take a ranked list of document IDs and a set of
// relevant IDs. They are convenience wrappers for evaluations where
// judgments carry no grades.

// PrecisionAtK returns the fraction of the top k results that are
// relevant.
func PrecisionAtK(ranked []string, relevant map[string]bool, k int) float64 {
	if k > len(ranked) {
		k = len(ranked)
	}
	if k == 0 {
		return 0
	}

	hits := 0
	for i := 0; i < k; i++ {
		if relevant[ranked[i]] {
			hits++
		}
	}
	return float64(hits) / float64(k)
}

// RecallAtK returns the fraction of relevant documents found in the
// top k results.
func RecallAtK(ranked []string, relevant map[string]bool, k int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	if k > len(ranked) {
		k = len(ranked)
	}

	hits := 0
	for i := 0; i < k; i++ {
		if relevant[ranked[i]] {
			hits++
		}
	}
	return float64(hits) / float64(len(relevant))
}

// ReciprocalRank returns 1/rank of the first relevant result, or 0.
func ReciprocalRank(ranked []string, relevant map[string]bool) float64 {
	for i, id := range ranked {
		if relevant[id] {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// BinaryAveragePrecision calculates Average Precision with binary
// judgments, normalized by the total number of relevant documents.
func BinaryAveragePrecision(ranked []string, relevant map[string]bool) float64 {
	if len(relevant) == 0 {
		return 0
	}

	hits := 0
	sumPrecision := 0.0
	for i, id := range ranked {
		if relevant[id] {
			hits++
			sumPrecision += float64(hits) / float64(i+1)
		}
	}
	return sumPrecision / float64(len(relevant))
}

// NDCGAtK calculates binary NDCG at k: gain 1 for relevant results,
// ideal DCG from placing all relevant documents first.
func NDCGAtK(ranked []string, relevant map[string]bool, k int) float64 {
	if k > len(ranked) {
		k = len(ranked)
	}
	if k == 0 || len(relevant) == 0 {
		return 0
	}

	dcg := 0.0
	for i := 0; i < k; i++ {
		if relevant[ranked[i]] {
			dcg += 1.0 / math.Log2(float64(i+2))
		}
	}

	ideal := len(relevant)
	if ideal > k {
		ideal = k
	}
	idcg := 0.0
	for i := 0; i < ideal; i++ {
		idcg += 1.0 / math.Log2(float64(i+2))
	}

	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}
