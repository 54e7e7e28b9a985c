package benchmark

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/rankstack/rank-search/internal/pkg/logger"
	"github.com/rankstack/rank-search/internal/retrieve/dense/hnsw"
)

func TestGenerateUniform(t *testing.T) {
	vectors := GenerateUniform(50, 8, 42)
	if len(vectors) != 50 {
		t.Fatalf("len = %d, want 50", len(vectors))
	}
	for _, v := range vectors {
		if len(v) != 8 {
			t.Fatalf("dimension = %d, want 8", len(v))
		}
		norm := 0.0
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		if math.Abs(norm-1) > 1e-4 {
			t.Errorf("vector norm^2 = %f, want 1", norm)
		}
	}

	// Same seed reproduces the dataset.
	again := GenerateUniform(50, 8, 42)
	if again[10][3] != vectors[10][3] {
		t.Error("same seed should reproduce vectors")
	}
}

func TestGenerateClustered(t *testing.T) {
	vectors := GenerateClustered(100, 16, 4, 7)
	if len(vectors) != 100 {
		t.Fatalf("len = %d, want 100", len(vectors))
	}
	for _, v := range vectors {
		norm := 0.0
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		if math.Abs(norm-1) > 1e-4 {
			t.Errorf("vector norm^2 = %f, want 1", norm)
		}
	}
}

func TestNewDataset_Split(t *testing.T) {
	data := NewDataset(GenerateUniform(100, 4, 1), 4)
	if len(data.Train) != 80 || len(data.Test) != 20 {
		t.Errorf("split = %d/%d, want 80/20", len(data.Train), len(data.Test))
	}
}

func TestGroundTruth(t *testing.T) {
	train := [][]float32{
		{0, 1},
		{1, 0},
		{0.6, 0.8},
	}
	query := []float32{1, 0}

	gt := GroundTruth(query, train, 2)
	if len(gt) != 2 {
		t.Fatalf("len = %d, want 2", len(gt))
	}
	if gt[0] != 1 {
		t.Errorf("nearest = %d, want 1", gt[0])
	}
	if gt[1] != 2 {
		t.Errorf("second = %d, want 2", gt[1])
	}
}

func TestRecallAtK(t *testing.T) {
	gt := []uint32{1, 2, 3, 4}

	if got := RecallAtK(gt, []uint32{1, 2, 3, 4}, 4); got != 1.0 {
		t.Errorf("perfect recall = %f, want 1.0", got)
	}
	if got := RecallAtK(gt, []uint32{1, 2, 9, 9}, 4); got != 0.5 {
		t.Errorf("half recall = %f, want 0.5", got)
	}
	// k truncates both lists.
	if got := RecallAtK(gt, []uint32{1, 9, 9, 9}, 1); got != 1.0 {
		t.Errorf("recall@1 = %f, want 1.0", got)
	}
	if got := RecallAtK(nil, []uint32{1}, 1); got != 0 {
		t.Errorf("empty ground truth = %f, want 0", got)
	}
}

func TestRobustnessDeltaAtK(t *testing.T) {
	recalls := []float64{1.0, 0.9, 0.5, 0.2}

	if got := RobustnessDeltaAtK(recalls, 0.9); got != 0.5 {
		t.Errorf("robustness@0.9 = %f, want 0.5", got)
	}
	if got := RobustnessDeltaAtK(recalls, 0.1); got != 1.0 {
		t.Errorf("robustness@0.1 = %f, want 1.0", got)
	}
	if got := RobustnessDeltaAtK(nil, 0.5); got != 0 {
		t.Errorf("empty = %f, want 0", got)
	}
}

func TestMetrics_Summarize(t *testing.T) {
	m := Metrics{
		Recalls:      []float64{1.0, 0.8, 0.6},
		QueryTimesMs: []float64{1, 2, 3},
		BuildTimeSec: 0.5,
		Throughput:   100,
	}

	stats := m.Summarize()
	if math.Abs(stats.RecallMean-0.8) > 1e-9 {
		t.Errorf("RecallMean = %f, want 0.8", stats.RecallMean)
	}
	if stats.QueryTimeP50Ms != 2 {
		t.Errorf("QueryTimeP50Ms = %f, want 2", stats.QueryTimeP50Ms)
	}
	if stats.BuildTimeSec != 0.5 || stats.Throughput != 100 {
		t.Errorf("pass-through fields wrong: %+v", stats)
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{5, 1, 3, 2, 4}

	if got := percentile(values, 0); got != 1 {
		t.Errorf("p0 = %f, want 1", got)
	}
	if got := percentile(values, 1); got != 5 {
		t.Errorf("p100 = %f, want 5", got)
	}
	if got := percentile(values, 0.5); got != 3 {
		t.Errorf("p50 = %f, want 3", got)
	}
}

func TestRunner_FlatRecallIsPerfect(t *testing.T) {
	log := logger.New("error", "text")
	runner := NewRunner(log)
	runner.SetKValues([]int{5})
	runner.AddDataset("uniform", NewDataset(GenerateUniform(120, 8, 42), 8))

	ctx := context.Background()
	if err := runner.PrecomputeGroundTruth(ctx); err != nil {
		t.Fatalf("PrecomputeGroundTruth() error = %v", err)
	}

	results, err := runner.RunAlgorithm(ctx, "flat", NewFlatIndex(), "uniform")
	if err != nil {
		t.Fatalf("RunAlgorithm() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results len = %d, want 1", len(results))
	}

	r := results[0]
	if r.Algorithm != "flat" || r.Dataset != "uniform" || r.K != 5 {
		t.Errorf("result header wrong: %+v", r)
	}
	// Brute force matches the brute force ground truth exactly.
	if r.Stats.RecallMean < 0.999 {
		t.Errorf("flat RecallMean = %f, want 1.0", r.Stats.RecallMean)
	}
	if r.Stats.Throughput <= 0 {
		t.Errorf("Throughput = %f, want > 0", r.Stats.Throughput)
	}
}

func TestRunner_HNSW(t *testing.T) {
	log := logger.New("error", "text")
	runner := NewRunner(log)
	runner.SetKValues([]int{10})
	runner.AddDataset("clustered", NewDataset(GenerateClustered(300, 8, 4, 7), 8))

	params := hnsw.DefaultParams()
	params.Seed = 42
	index, err := NewHNSWIndex(8, params, 100)
	if err != nil {
		t.Fatalf("NewHNSWIndex() error = %v", err)
	}

	results, err := runner.RunAlgorithm(context.Background(), "hnsw", index, "clustered")
	if err != nil {
		t.Fatalf("RunAlgorithm() error = %v", err)
	}
	if results[0].Stats.RecallMean < 0.5 {
		t.Errorf("hnsw RecallMean = %f, want >= 0.5", results[0].Stats.RecallMean)
	}
}

func TestRunner_UnknownDataset(t *testing.T) {
	runner := NewRunner(logger.New("error", "text"))
	if _, err := runner.RunAlgorithm(context.Background(), "flat", NewFlatIndex(), "missing"); err == nil {
		t.Error("expected error for unregistered dataset")
	}
}

func TestReports(t *testing.T) {
	results := []Result{
		{
			Algorithm: "flat",
			Dataset:   "uniform",
			K:         10,
			Stats:     Statistics{RecallMean: 1.0, Throughput: 500},
		},
	}

	md := MarkdownReport(results)
	if !strings.Contains(md, "## uniform") || !strings.Contains(md, "| flat | 10 |") {
		t.Errorf("markdown report missing content:\n%s", md)
	}

	csv := CSVReport(results)
	if !strings.HasPrefix(csv, "algorithm,dataset,k,") {
		t.Errorf("csv header wrong:\n%s", csv)
	}
	if !strings.Contains(csv, "flat,uniform,10,") {
		t.Errorf("csv row missing:\n%s", csv)
	}

	data, err := JSONReport(results)
	if err != nil {
		t.Fatalf("JSONReport() error = %v", err)
	}
	if !strings.Contains(string(data), "\"algorithm\": \"flat\"") {
		t.Errorf("json report missing content:\n%s", data)
	}

	if got := MarkdownReport(nil); !strings.Contains(got, "No benchmark results") {
		t.Errorf("empty report = %q", got)
	}
}
