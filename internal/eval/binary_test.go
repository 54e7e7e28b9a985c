package eval

import (
	"math"
	"testing"
)

func relevantSet(ids ...string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func TestPrecisionAtK(t *testing.T) {
	ranked := []string{"a", "b", "c", "d"}
	relevant := relevantSet("a", "c")

	if got := PrecisionAtK(ranked, relevant, 1); !almostEqual(got, 1.0) {
		t.Errorf("P@1 = %f, want 1.0", got)
	}
	if got := PrecisionAtK(ranked, relevant, 4); !almostEqual(got, 0.5) {
		t.Errorf("P@4 = %f, want 0.5", got)
	}
	if got := PrecisionAtK(ranked, relevant, 0); got != 0 {
		t.Errorf("P@0 = %f, want 0", got)
	}
}

func TestRecallAtK(t *testing.T) {
	ranked := []string{"a", "b", "c"}
	relevant := relevantSet("a", "c", "z")

	if got := RecallAtK(ranked, relevant, 3); !almostEqual(got, 2.0/3) {
		t.Errorf("R@3 = %f, want 2/3", got)
	}
	if got := RecallAtK(ranked, nil, 3); got != 0 {
		t.Errorf("R@3 with no relevant = %f, want 0", got)
	}
}

func TestReciprocalRank(t *testing.T) {
	if got := ReciprocalRank([]string{"x", "y", "a"}, relevantSet("a")); !almostEqual(got, 1.0/3) {
		t.Errorf("RR = %f, want 1/3", got)
	}
	if got := ReciprocalRank([]string{"x"}, relevantSet("a")); got != 0 {
		t.Errorf("RR = %f, want 0", got)
	}
}

func TestBinaryAveragePrecision(t *testing.T) {
	// Relevant found at ranks 1 and 3, one relevant doc never
	// retrieved: AP = (1/1 + 2/3) / 3.
	ranked := []string{"a", "x", "b"}
	relevant := relevantSet("a", "b", "missing")

	want := (1.0 + 2.0/3.0) / 3
	if got := BinaryAveragePrecision(ranked, relevant); !almostEqual(got, want) {
		t.Errorf("AP = %f, want %f", got, want)
	}
}

func TestNDCGAtK(t *testing.T) {
	relevant := relevantSet("a", "b")

	if got := NDCGAtK([]string{"a", "b", "x"}, relevant, 3); !almostEqual(got, 1.0) {
		t.Errorf("NDCG@3 ideal = %f, want 1.0", got)
	}

	// Relevant at rank 2 only within k=2: DCG = 1/log2(3),
	// IDCG = 1 + 1/log2(3).
	want := (1 / math.Log2(3)) / (1 + 1/math.Log2(3))
	if got := NDCGAtK([]string{"x", "a"}, relevant, 2); !almostEqual(got, want) {
		t.Errorf("NDCG@2 = %f, want %f", got, want)
	}

	if got := NDCGAtK([]string{"x"}, relevant, 1); got != 0 {
		t.Errorf("NDCG@1 no hits = %f, want 0", got)
	}
}
