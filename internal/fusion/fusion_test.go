package fusion

import (
	"math"
	"testing"

	"github.com/rankstack/rank-search/internal/retrieve"
)

func hits(pairs ...interface{}) []retrieve.Hit {
	out := make([]retrieve.Hit, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, retrieve.Hit{
			Doc:   uint32(pairs[i].(int)),
			Score: pairs[i+1].(float64),
		})
	}
	return out
}

func TestRRF(t *testing.T) {
	a := hits(1, 10.0, 2, 8.0, 3, 6.0)
	b := hits(2, 0.9, 1, 0.8, 4, 0.7)

	fused := RRF(a, b)
	if len(fused) != 4 {
		t.Fatalf("RRF() len = %d, want 4", len(fused))
	}

	// Doc 1: 1/(60+1) + 1/(60+2); doc 2: 1/(60+2) + 1/(60+1). Equal
	// scores, tie broken by ordinal.
	if fused[0].Doc != 1 || fused[1].Doc != 2 {
		t.Errorf("top docs = %d, %d, want 1, 2", fused[0].Doc, fused[1].Doc)
	}
	want := 1.0/61 + 1.0/62
	if math.Abs(fused[0].Score-want) > 1e-12 {
		t.Errorf("fused score = %f, want %f", fused[0].Score, want)
	}

	// Docs present in only one list score lower.
	if fused[len(fused)-1].Doc != 4 && fused[len(fused)-1].Doc != 3 {
		t.Errorf("lowest doc = %d, want 3 or 4", fused[len(fused)-1].Doc)
	}
}

func TestRRF_EmptyLists(t *testing.T) {
	if got := RRF(nil, nil); len(got) != 0 {
		t.Errorf("RRF(nil, nil) = %v, want empty", got)
	}

	a := hits(1, 1.0)
	fused := RRF(a, nil)
	if len(fused) != 1 || fused[0].Doc != 1 {
		t.Errorf("RRF with one empty list = %v", fused)
	}
}

func TestISR_ConcentratesOnTopRanks(t *testing.T) {
	a := hits(1, 1.0, 2, 0.9)

	fused := ISRMulti([][]retrieve.Hit{a}, DefaultK)
	want0 := 1.0 / (61.0 * 61.0)
	if math.Abs(fused[0].Score-want0) > 1e-15 {
		t.Errorf("ISR score = %g, want %g", fused[0].Score, want0)
	}

	// Relative gap between ranks is larger than under plain RRF.
	rrf := RRFMulti([][]retrieve.Hit{a}, DefaultK)
	isrRatio := fused[0].Score / fused[1].Score
	rrfRatio := rrf[0].Score / rrf[1].Score
	if isrRatio <= rrfRatio {
		t.Errorf("ISR ratio %f should exceed RRF ratio %f", isrRatio, rrfRatio)
	}
}

func TestCombSUM(t *testing.T) {
	a := hits(1, 10.0, 2, 5.0, 3, 0.0)
	b := hits(2, 1.0, 3, 0.5)

	fused := CombSUM(a, b)

	// Normalized: list a gives doc1=1.0, doc2=0.5, doc3=0.0;
	// list b gives doc2=1.0, doc3=0.0. Doc 2 totals 1.5.
	if fused[0].Doc != 2 {
		t.Errorf("top doc = %d, want 2", fused[0].Doc)
	}
	if math.Abs(fused[0].Score-1.5) > 1e-12 {
		t.Errorf("top score = %f, want 1.5", fused[0].Score)
	}
}

func TestCombSUM_ConstantScores(t *testing.T) {
	a := hits(1, 5.0, 2, 5.0)
	fused := CombSUMMulti([][]retrieve.Hit{a})
	for _, h := range fused {
		if h.Score != 1.0 {
			t.Errorf("constant list should normalize to 1.0, got %f", h.Score)
		}
	}
}

func TestCombMNZ_RewardsAgreement(t *testing.T) {
	a := hits(1, 1.0, 2, 0.9)
	b := hits(2, 1.0)

	fused := CombMNZ(a, b)

	// Doc 2 appears in both lists, multiplier 2.
	if fused[0].Doc != 2 {
		t.Errorf("top doc = %d, want 2", fused[0].Doc)
	}
}

func TestBorda(t *testing.T) {
	a := hits(1, 1.0, 2, 0.9, 3, 0.8)
	b := hits(3, 1.0, 1, 0.9)

	fused := Borda(a, b)

	// Doc 1: 3 + 1 = 4; doc 3: 1 + 2 = 3; doc 2: 2.
	if fused[0].Doc != 1 {
		t.Errorf("top doc = %d, want 1", fused[0].Doc)
	}
	if fused[0].Score != 4 {
		t.Errorf("top score = %f, want 4", fused[0].Score)
	}
	if fused[1].Doc != 3 || fused[2].Doc != 2 {
		t.Errorf("order = %v", fused)
	}
}

func TestDBSF(t *testing.T) {
	a := hits(1, 100.0, 2, 50.0, 3, 0.0)
	b := hits(2, 0.9, 1, 0.5, 3, 0.1)

	fused := DBSF(a, b)
	if len(fused) != 3 {
		t.Fatalf("DBSF() len = %d, want 3", len(fused))
	}
	// Doc 3 is last in both lists.
	if fused[len(fused)-1].Doc != 3 {
		t.Errorf("lowest doc = %d, want 3", fused[len(fused)-1].Doc)
	}

	// Z-scores per list sum to zero, so total mass is ~0.
	var total float64
	for _, h := range fused {
		total += h.Score
	}
	if math.Abs(total) > 1e-9 {
		t.Errorf("total z-score mass = %f, want 0", total)
	}
}

func TestWeighted(t *testing.T) {
	a := hits(1, 1.0)
	b := hits(2, 1.0)

	fused := Weighted([][]retrieve.Hit{a, b}, []float64{2.0, 1.0}, DefaultK)
	if fused[0].Doc != 1 {
		t.Errorf("top doc = %d, want 1 (higher list weight)", fused[0].Doc)
	}
	want := 2.0 / 61
	if math.Abs(fused[0].Score-want) > 1e-12 {
		t.Errorf("weighted score = %f, want %f", fused[0].Score, want)
	}

	// Missing weights default to 1.
	fused = Weighted([][]retrieve.Hit{a, b}, []float64{2.0}, DefaultK)
	if math.Abs(fused[1].Score-1.0/61) > 1e-12 {
		t.Errorf("default weight score = %f, want %f", fused[1].Score, 1.0/61)
	}
}

func TestFusion_Deterministic(t *testing.T) {
	a := hits(5, 1.0, 2, 0.9, 9, 0.8)
	b := hits(9, 1.0, 5, 0.9, 2, 0.8)

	first := RRF(a, b)
	for i := 0; i < 10; i++ {
		again := RRF(a, b)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("RRF not deterministic at position %d", j)
			}
		}
	}
}
