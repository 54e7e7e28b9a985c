// Package learn implements pairwise learning-to-rank gradient
// computation: LambdaRank with metric-aware gradients and Ranking SVM
// with hinge-loss gradients.
//
// Both operate on parallel score and relevance slices for a single
// query's ranked candidates. The returned gradients push high-relevance
// documents up and low-relevance documents down; callers feed them to
// whatever model update they train with.
package learn

import (
	"fmt"
	"math"
	"sort"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
)

const relEpsilon = 1e-10

// LambdaRankParams configures lambda gradient computation.
type LambdaRankParams struct {
	// Sigma controls the sharpness of the pairwise sigmoid.
	Sigma float64
	// QueryNormalization applies mu weights so queries with many
	// pairs do not dominate training.
	QueryNormalization bool
	// CostSensitivity applies tau weights so errors at top ranks
	// matter more.
	CostSensitivity bool
	// ScoreNormalization divides deltas by the pair's score distance.
	ScoreNormalization bool
	// ExponentialGain uses 2^rel - 1 gains; otherwise raw relevance.
	ExponentialGain bool
}

// DefaultLambdaRankParams returns the standard configuration.
func DefaultLambdaRankParams() LambdaRankParams {
	return LambdaRankParams{
		Sigma:              1.0,
		QueryNormalization: true,
		CostSensitivity:    true,
		ScoreNormalization: false,
		ExponentialGain:    true,
	}
}

func gain(rel float64, exponential bool) float64 {
	if exponential {
		return math.Pow(2, rel) - 1
	}
	return rel
}

// NDCGAtK computes NDCG over relevance grades in ranked order.
// k = 0 means all positions. k > len is an error.
func NDCGAtK(relevance []float64, k int, exponentialGain bool) (float64, error) {
	if len(relevance) == 0 {
		return 0, apperrors.ValidationError("relevance must not be empty")
	}
	if k == 0 {
		k = len(relevance)
	}
	if k > len(relevance) {
		return 0, apperrors.ValidationError(
			fmt.Sprintf("k %d exceeds relevance length %d", k, len(relevance)))
	}

	dcg := 0.0
	for i := 0; i < k; i++ {
		dcg += gain(relevance[i], exponentialGain) / math.Log2(float64(i+2))
	}

	ideal := make([]float64, len(relevance))
	copy(ideal, relevance)
	sort.Sort(sort.Reverse(sort.Float64Slice(ideal)))

	idcg := 0.0
	for i := 0; i < k; i++ {
		idcg += gain(ideal[i], exponentialGain) / math.Log2(float64(i+2))
	}

	if idcg == 0 {
		return 0, nil
	}
	return dcg / idcg, nil
}

// invIDCG precomputes 1/IDCG at k, or 0 when IDCG is 0.
func invIDCG(relevance []float64, k int, exponentialGain bool) float64 {
	ideal := make([]float64, len(relevance))
	copy(ideal, relevance)
	sort.Sort(sort.Reverse(sort.Float64Slice(ideal)))

	idcg := 0.0
	if k > len(ideal) {
		k = len(ideal)
	}
	for i := 0; i < k; i++ {
		idcg += gain(ideal[i], exponentialGain) / math.Log2(float64(i+2))
	}
	if idcg > 0 {
		return 1 / idcg
	}
	return 0
}

// deltaNDCG computes the NDCG change from swapping the documents at
// posI and posJ, using the identity
// delta = -(gain_i - gain_j) * (discount_i - discount_j) / IDCG.
// Positions at or beyond k carry zero discount.
func deltaNDCG(relevance []float64, posI, posJ, k int, exponentialGain bool, invIdcg float64) float64 {
	if posI >= len(relevance) || posJ >= len(relevance) {
		return 0
	}
	if posI >= k && posJ >= k {
		return 0
	}

	gainI := gain(relevance[posI], exponentialGain)
	gainJ := gain(relevance[posJ], exponentialGain)

	discountI := 0.0
	if posI < k {
		discountI = 1 / math.Log2(float64(posI+2))
	}
	discountJ := 0.0
	if posJ < k {
		discountJ = 1 / math.Log2(float64(posJ+2))
	}

	return -(gainI - gainJ) * (discountI - discountJ) * invIdcg
}

// ComputeLambdas computes LambdaRank gradients for one query's ranked
// list. scores and relevance are parallel, in current ranking order.
// k = 0 optimizes all positions. A length mismatch yields all zeros.
func ComputeLambdas(scores, relevance []float64, params LambdaRankParams, k int) []float64 {
	if len(scores) != len(relevance) {
		return make([]float64, len(scores))
	}

	n := len(scores)
	if k <= 0 || k > n {
		k = n
	}

	invIdcg := invIDCG(relevance, k, params.ExponentialGain)

	var minScore, maxScore float64
	scoreRange := 1.0
	if params.ScoreNormalization && n > 0 {
		minScore, maxScore = scores[0], scores[0]
		for _, s := range scores[1:] {
			minScore = math.Min(minScore, s)
			maxScore = math.Max(maxScore, s)
		}
		if maxScore != minScore {
			scoreRange = maxScore - minScore
		}
	}

	validPairs := 0
	for i := 0; i < n && i < k; i++ {
		for j := i + 1; j < n; j++ {
			if math.Abs(relevance[i]-relevance[j]) > relEpsilon {
				validPairs++
			}
		}
	}

	mu := 1.0
	if params.QueryNormalization && validPairs > 0 {
		mu = 1 / float64(validPairs)
	}

	lambdas := make([]float64, n)
	sumLambdas := 0.0

	// Pairs where both documents sit beyond k cannot move the metric.
	for i := 0; i < n && i < k; i++ {
		for j := i + 1; j < n; j++ {
			relDiff := relevance[i] - relevance[j]
			if math.Abs(relDiff) < relEpsilon {
				continue
			}

			highIdx, lowIdx := i, j
			if relDiff < 0 {
				highIdx, lowIdx = j, i
			}

			delta := deltaNDCG(relevance, highIdx, lowIdx, k, params.ExponentialGain, invIdcg)

			tau := 1.0
			if params.CostSensitivity {
				minRank := highIdx
				if lowIdx < minRank {
					minRank = lowIdx
				}
				tau = 1 / math.Log(float64(minRank+2))
			}

			scoreDiff := scores[highIdx] - scores[lowIdx]

			normalizedDelta := math.Abs(delta)
			if params.ScoreNormalization {
				normalizedDelta = math.Abs(delta) / (0.01 + math.Abs(scoreDiff)/math.Max(scoreRange, 0.01))
			}

			lambdaIJ := -params.Sigma / (1 + math.Exp(params.Sigma*scoreDiff)) *
				normalizedDelta * tau * mu

			lambdas[highIdx] += lambdaIJ
			lambdas[lowIdx] -= lambdaIJ
			sumLambdas += 2 * math.Abs(lambdaIJ)
		}
	}

	if params.QueryNormalization && sumLambdas > 0 {
		normFactor := math.Log2(1+sumLambdas) / sumLambdas
		for i := range lambdas {
			lambdas[i] *= normFactor
		}
	}

	return lambdas
}

// LambdaRankTrainer computes LambdaRank gradients with validation.
type LambdaRankTrainer struct {
	params LambdaRankParams
}

// NewLambdaRankTrainer creates a trainer with the given parameters.
func NewLambdaRankTrainer(params LambdaRankParams) *LambdaRankTrainer {
	return &LambdaRankTrainer{params: params}
}

// ComputeGradients returns lambda gradients for one query.
func (t *LambdaRankTrainer) ComputeGradients(scores, relevance []float64, k int) ([]float64, error) {
	if len(scores) == 0 || len(relevance) == 0 {
		return nil, apperrors.ValidationError("scores and relevance must not be empty")
	}
	if len(scores) != len(relevance) {
		return nil, apperrors.ValidationError(
			fmt.Sprintf("length mismatch: %d scores, %d relevance", len(scores), len(relevance)))
	}
	return ComputeLambdas(scores, relevance, t.params, k), nil
}

// ComputeGradientsBatch computes gradients for multiple queries with
// cross-query normalization: each query's lambdas are scaled by
// mu = pairs / maxPairs so pair-heavy queries do not dominate.
func (t *LambdaRankTrainer) ComputeGradientsBatch(batchScores, batchRelevance [][]float64, k int) ([][]float64, error) {
	if len(batchScores) != len(batchRelevance) {
		return nil, apperrors.ValidationError(
			fmt.Sprintf("batch length mismatch: %d score lists, %d relevance lists",
				len(batchScores), len(batchRelevance)))
	}
	if len(batchScores) == 0 {
		return nil, apperrors.ValidationError("batch must not be empty")
	}

	pairsPerQuery := make([]int, len(batchScores))
	maxPairs := 0
	for q := range batchScores {
		scores, relevance := batchScores[q], batchRelevance[q]
		if len(scores) != len(relevance) {
			return nil, apperrors.ValidationError(
				fmt.Sprintf("query %d length mismatch: %d scores, %d relevance",
					q, len(scores), len(relevance)))
		}

		pairs := 0
		for i := 0; i < len(relevance); i++ {
			for j := i + 1; j < len(relevance); j++ {
				if math.Abs(relevance[i]-relevance[j]) > relEpsilon {
					pairs++
				}
			}
		}
		pairsPerQuery[q] = pairs
		if pairs > maxPairs {
			maxPairs = pairs
		}
	}

	batchLambdas := make([][]float64, len(batchScores))
	for q := range batchScores {
		lambdas := ComputeLambdas(batchScores[q], batchRelevance[q], t.params, k)

		if t.params.QueryNormalization && maxPairs > 0 {
			mu := float64(pairsPerQuery[q]) / float64(maxPairs)
			for i := range lambdas {
				lambdas[i] *= mu
			}
		}
		batchLambdas[q] = lambdas
	}
	return batchLambdas, nil
}
