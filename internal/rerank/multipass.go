package rerank

import (
	"context"
	"time"

	"github.com/rankstack/rank-search/internal/pkg/logger"
	"github.com/rankstack/rank-search/internal/retrieve"
)

// MultiPass performs two-pass MaxSim reranking with early exit.
//
// Pass 1 scores a small candidate prefix to settle the head of the
// ranking cheaply. When the score distribution already shows a clear
// winner, pass 2 is skipped; otherwise the full candidate window is
// rescored.
type MultiPass struct {
	pass1Candidates int
	pass2Candidates int
	earlyExitThresh float64
	earlyExitGap    float64
	log             *logger.Logger
}

// Config holds configuration for multi-pass reranking.
type Config struct {
	Pass1Candidates int
	Pass2Candidates int
	EarlyExitThresh float64
	EarlyExitGap    float64
}

// NewMultiPass creates a multi-pass reranker with default settings.
func NewMultiPass(log *logger.Logger) *MultiPass {
	return &MultiPass{
		pass1Candidates: 30,
		pass2Candidates: 100,
		earlyExitThresh: 1.5,
		earlyExitGap:    0.3,
		log:             log,
	}
}

// SetConfig overrides defaults for any positive field.
func (r *MultiPass) SetConfig(cfg Config) {
	if cfg.Pass1Candidates > 0 {
		r.pass1Candidates = cfg.Pass1Candidates
	}
	if cfg.Pass2Candidates > 0 {
		r.pass2Candidates = cfg.Pass2Candidates
	}
	if cfg.EarlyExitThresh > 0 {
		r.earlyExitThresh = cfg.EarlyExitThresh
	}
	if cfg.EarlyExitGap > 0 {
		r.earlyExitGap = cfg.EarlyExitGap
	}
}

// Result contains the reranked hits and pass metadata.
type Result struct {
	Hits            []retrieve.Hit
	Pass1Applied    bool
	Pass1LatencyMs  int64
	Pass2Applied    bool
	Pass2LatencyMs  int64
	EarlyExit       bool
	EarlyExitReason string
}

// DistributionShape describes the score distribution pattern.
type DistributionShape string

const (
	ShapePeaked  DistributionShape = "peaked"
	ShapeFlat    DistributionShape = "flat"
	ShapeBimodal DistributionShape = "bimodal"
)

// Signals contains the early exit decision inputs.
type Signals struct {
	ScoreGap           float64
	ScoreRatio         float64
	TopClusterSize     int
	DistributionShape  DistributionShape
	NormalizedVariance float64
}

// Rerank reranks the candidates against the query tokens. Candidates
// should arrive in first-stage ranking order.
func (r *MultiPass) Rerank(ctx context.Context, queryTokens [][]float32, candidates []Candidate) (*Result, error) {
	result := &Result{}
	if len(candidates) == 0 {
		return result, nil
	}

	pass1Start := time.Now()
	pass1Input := min(len(candidates), r.pass1Candidates)

	r.log.Debug("starting pass 1 rerank", "input_count", pass1Input)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pass1Hits := Rank(queryTokens, candidates[:pass1Input])
	result.Pass1Applied = true
	result.Pass1LatencyMs = time.Since(pass1Start).Milliseconds()
	result.Hits = pass1Hits

	if r.shouldExitEarly(pass1Hits, result) {
		r.log.Debug("early exit triggered",
			"reason", result.EarlyExitReason,
			"latency_ms", result.Pass1LatencyMs)
		return result, nil
	}

	pass2Start := time.Now()
	pass2Input := min(len(candidates), r.pass2Candidates)

	r.log.Debug("starting pass 2 rerank", "input_count", pass2Input)

	if err := ctx.Err(); err != nil {
		// Keep pass 1 ordering when the deadline hit between passes.
		return result, nil
	}
	result.Hits = Rank(queryTokens, candidates[:pass2Input])
	result.Pass2Applied = true
	result.Pass2LatencyMs = time.Since(pass2Start).Milliseconds()

	r.log.Debug("pass 2 complete",
		"output_count", len(result.Hits),
		"latency_ms", result.Pass2LatencyMs)

	return result, nil
}

// shouldExitEarly skips pass 2 when pass 1 already produced a decisive
// ranking.
func (r *MultiPass) shouldExitEarly(hits []retrieve.Hit, result *Result) bool {
	if len(hits) < 2 {
		result.EarlyExit = true
		result.EarlyExitReason = "insufficient_results"
		return true
	}

	signals := analyzeDistribution(hits)

	if signals.DistributionShape == ShapePeaked && signals.ScoreRatio > r.earlyExitThresh {
		result.EarlyExit = true
		result.EarlyExitReason = "peaked_distribution"
		return true
	}

	if signals.ScoreGap > r.earlyExitGap {
		result.EarlyExit = true
		result.EarlyExitReason = "high_score_gap"
		return true
	}

	return false
}

// analyzeDistribution computes early exit signals over sorted hits.
func analyzeDistribution(hits []retrieve.Hit) Signals {
	if len(hits) == 0 {
		return Signals{DistributionShape: ShapeFlat}
	}

	top := hits[0].Score
	second := 0.0
	if len(hits) > 1 {
		second = hits[1].Score
	}

	// Cluster: results within 10% of the top score.
	threshold := top * 0.9
	clusterSize := 0
	for _, h := range hits {
		if h.Score >= threshold {
			clusterSize++
		}
	}

	var sum float64
	for _, h := range hits {
		sum += h.Score
	}
	mean := sum / float64(len(hits))

	var variance float64
	for _, h := range hits {
		d := h.Score - mean
		variance += d * d
	}
	variance /= float64(len(hits))

	normalizedVariance := 0.0
	if mean > 0 {
		normalizedVariance = variance / (mean * mean)
	}

	shape := ShapeBimodal
	switch {
	case clusterSize == 1:
		shape = ShapePeaked
	case normalizedVariance < 0.01:
		shape = ShapeFlat
	}

	ratio := 0.0
	if second > 0 {
		ratio = top / second
	}

	return Signals{
		ScoreGap:           top - second,
		ScoreRatio:         ratio,
		TopClusterSize:     clusterSize,
		DistributionShape:  shape,
		NormalizedVariance: normalizedVariance,
	}
}
