package benchmark

// RecallAtK computes |retrieved ∩ ground truth| / min(|ground truth|, k)
// over the first k entries of each list.
func RecallAtK(groundTruth, retrieved []uint32, k int) float64 {
	if len(groundTruth) == 0 {
		return 0
	}

	gtSet := make(map[uint32]bool, k)
	for i, id := range groundTruth {
		if i >= k {
			break
		}
		gtSet[id] = true
	}

	hits := 0
	for i, id := range retrieved {
		if i >= k {
			break
		}
		if gtSet[id] {
			hits++
		}
	}

	denom := len(groundTruth)
	if k < denom {
		denom = k
	}
	return float64(hits) / float64(denom)
}

// RobustnessDeltaAtK returns the proportion of queries whose recall
// meets or exceeds delta. Average recall hides tail behavior; this
// exposes it per threshold.
func RobustnessDeltaAtK(recalls []float64, delta float64) float64 {
	if len(recalls) == 0 {
		return 0
	}
	above := 0
	for _, r := range recalls {
		if r >= delta {
			above++
		}
	}
	return float64(above) / float64(len(recalls))
}

// Robustness holds recall robustness at the standard thresholds.
type Robustness struct {
	At50 float64 `json:"robustness_50"`
	At70 float64 `json:"robustness_70"`
	At80 float64 `json:"robustness_80"`
	At90 float64 `json:"robustness_90"`
	At95 float64 `json:"robustness_95"`
	At99 float64 `json:"robustness_99"`
}

// ComputeRobustness evaluates the standard thresholds.
func ComputeRobustness(recalls []float64) Robustness {
	return Robustness{
		At50: RobustnessDeltaAtK(recalls, 0.5),
		At70: RobustnessDeltaAtK(recalls, 0.7),
		At80: RobustnessDeltaAtK(recalls, 0.8),
		At90: RobustnessDeltaAtK(recalls, 0.9),
		At95: RobustnessDeltaAtK(recalls, 0.95),
		At99: RobustnessDeltaAtK(recalls, 0.99),
	}
}

// Metrics holds raw per-query measurements for one algorithm/k pair.
type Metrics struct {
	Recalls      []float64
	QueryTimesMs []float64
	BuildTimeSec float64
	Throughput   float64
}

// Statistics is the aggregated summary of a Metrics sample.
type Statistics struct {
	RecallMean float64 `json:"recall_mean"`
	RecallStd  float64 `json:"recall_std"`
	RecallP50  float64 `json:"recall_p50"`
	RecallP95  float64 `json:"recall_p95"`
	RecallP99  float64 `json:"recall_p99"`

	Robustness Robustness `json:"robustness"`

	QueryTimeMeanMs float64 `json:"query_time_mean_ms"`
	QueryTimeP50Ms  float64 `json:"query_time_p50_ms"`
	QueryTimeP95Ms  float64 `json:"query_time_p95_ms"`
	QueryTimeP99Ms  float64 `json:"query_time_p99_ms"`

	BuildTimeSec float64 `json:"build_time_sec"`
	Throughput   float64 `json:"throughput_qps"`
}

// Summarize computes the statistical summary.
func (m Metrics) Summarize() Statistics {
	return Statistics{
		RecallMean: mean(m.Recalls),
		RecallStd:  stdDev(m.Recalls),
		RecallP50:  percentile(m.Recalls, 0.50),
		RecallP95:  percentile(m.Recalls, 0.95),
		RecallP99:  percentile(m.Recalls, 0.99),

		Robustness: ComputeRobustness(m.Recalls),

		QueryTimeMeanMs: mean(m.QueryTimesMs),
		QueryTimeP50Ms:  percentile(m.QueryTimesMs, 0.50),
		QueryTimeP95Ms:  percentile(m.QueryTimesMs, 0.95),
		QueryTimeP99Ms:  percentile(m.QueryTimesMs, 0.99),

		BuildTimeSec: m.BuildTimeSec,
		Throughput:   m.Throughput,
	}
}
