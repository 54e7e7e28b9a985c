package learn

import (
	"fmt"
	"math"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
)

// RankingSVMParams configures pairwise hinge-loss gradients.
type RankingSVMParams struct {
	// C is the regularization parameter.
	C float64
	// QueryNormalization applies mu weights over valid pairs.
	QueryNormalization bool
	// CostSensitivity applies tau weights favoring top ranks.
	CostSensitivity bool
	// Epsilon is the relevance comparison tolerance.
	Epsilon float64
}

// DefaultRankingSVMParams returns the standard configuration.
func DefaultRankingSVMParams() RankingSVMParams {
	return RankingSVMParams{
		C:                  1.0,
		QueryNormalization: true,
		CostSensitivity:    true,
		Epsilon:            relEpsilon,
	}
}

// PairwiseHingeLoss returns max(0, 1 - (scoreHigh - scoreLow)) for a
// pair where the first document should rank higher.
func PairwiseHingeLoss(scoreHigh, scoreLow float64) float64 {
	return math.Max(0, 1-(scoreHigh-scoreLow))
}

// ComputeSVMGradients computes Ranking SVM gradients for one query's
// ranked list. Each margin-violating pair contributes C*mu*tau toward
// the higher-relevance document and away from the lower one.
func ComputeSVMGradients(scores, relevance []float64, params RankingSVMParams) ([]float64, error) {
	if len(scores) != len(relevance) {
		return nil, apperrors.ValidationError(
			fmt.Sprintf("length mismatch: %d scores, %d relevance", len(scores), len(relevance)))
	}
	if len(scores) == 0 {
		return nil, apperrors.ValidationError("scores and relevance must not be empty")
	}

	n := len(scores)
	gradients := make([]float64, n)

	validPairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if math.Abs(relevance[i]-relevance[j]) > params.Epsilon {
				validPairs++
			}
		}
	}

	mu := 1.0
	if params.QueryNormalization && validPairs > 0 {
		mu = 1 / float64(validPairs)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			relDiff := relevance[i] - relevance[j]
			if math.Abs(relDiff) < params.Epsilon {
				continue
			}

			highIdx, lowIdx := i, j
			if relDiff < 0 {
				highIdx, lowIdx = j, i
			}

			scoreDiff := scores[highIdx] - scores[lowIdx]
			if scoreDiff >= 1 {
				continue
			}

			tau := 1.0
			if params.CostSensitivity {
				minRank := highIdx
				if lowIdx < minRank {
					minRank = lowIdx
				}
				tau = 1 / math.Log(float64(minRank+2))
			}

			contribution := params.C * mu * tau
			gradients[highIdx] += contribution
			gradients[lowIdx] -= contribution
		}
	}

	return gradients, nil
}

// RankingSVMTrainer computes Ranking SVM gradients.
type RankingSVMTrainer struct {
	params RankingSVMParams
}

// NewRankingSVMTrainer creates a trainer with the given parameters.
func NewRankingSVMTrainer(params RankingSVMParams) *RankingSVMTrainer {
	return &RankingSVMTrainer{params: params}
}

// ComputeGradients returns gradients for one query.
func (t *RankingSVMTrainer) ComputeGradients(scores, relevance []float64) ([]float64, error) {
	return ComputeSVMGradients(scores, relevance, t.params)
}
