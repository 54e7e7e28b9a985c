package benchmark

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MarkdownReport renders benchmark results as a markdown table per
// dataset.
func MarkdownReport(results []Result) string {
	if len(results) == 0 {
		return "No benchmark results.\n"
	}

	byDataset := make(map[string][]Result)
	var order []string
	for _, r := range results {
		if _, ok := byDataset[r.Dataset]; !ok {
			order = append(order, r.Dataset)
		}
		byDataset[r.Dataset] = append(byDataset[r.Dataset], r)
	}

	var sb strings.Builder
	sb.WriteString("# Benchmark Report\n\n")
	for _, dataset := range order {
		fmt.Fprintf(&sb, "## %s\n\n", dataset)
		sb.WriteString("| Algorithm | K | Recall (mean) | Recall (p50) | Robustness@0.9 | Query p50 (ms) | Query p99 (ms) | Build (s) | QPS |\n")
		sb.WriteString("|-----------|---|---------------|--------------|----------------|----------------|----------------|-----------|-----|\n")
		for _, r := range byDataset[dataset] {
			fmt.Fprintf(&sb, "| %s | %d | %.4f | %.4f | %.2f | %.3f | %.3f | %.2f | %.0f |\n",
				r.Algorithm, r.K,
				r.Stats.RecallMean, r.Stats.RecallP50,
				r.Stats.Robustness.At90,
				r.Stats.QueryTimeP50Ms, r.Stats.QueryTimeP99Ms,
				r.Stats.BuildTimeSec, r.Stats.Throughput)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// CSVReport renders results as a flat CSV for plotting tools.
func CSVReport(results []Result) string {
	var sb strings.Builder
	sb.WriteString("algorithm,dataset,k,recall_mean,recall_std,recall_p50,recall_p95,recall_p99,query_time_mean,query_time_p50,query_time_p95,query_time_p99,build_time,throughput\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "%s,%s,%d,%.4f,%.4f,%.4f,%.4f,%.4f,%.4f,%.4f,%.4f,%.4f,%.4f,%.2f\n",
			r.Algorithm, r.Dataset, r.K,
			r.Stats.RecallMean, r.Stats.RecallStd,
			r.Stats.RecallP50, r.Stats.RecallP95, r.Stats.RecallP99,
			r.Stats.QueryTimeMeanMs, r.Stats.QueryTimeP50Ms,
			r.Stats.QueryTimeP95Ms, r.Stats.QueryTimeP99Ms,
			r.Stats.BuildTimeSec, r.Stats.Throughput)
	}
	return sb.String()
}

// JSONReport renders results as indented JSON.
func JSONReport(results []Result) ([]byte, error) {
	return json.MarshalIndent(results, "", "  ")
}
