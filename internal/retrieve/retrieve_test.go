package retrieve

import (
	"math"
	"testing"
)

func TestSortHits(t *testing.T) {
	hits := []Hit{{Doc: 2, Score: 1.0}, {Doc: 1, Score: 3.0}, {Doc: 3, Score: 2.0}}
	SortHits(hits)

	if hits[0].Doc != 1 || hits[1].Doc != 3 || hits[2].Doc != 2 {
		t.Errorf("SortHits() order = %v", hits)
	}
}

func TestSortHits_TieBreak(t *testing.T) {
	hits := []Hit{{Doc: 5, Score: 1.0}, {Doc: 2, Score: 1.0}, {Doc: 9, Score: 1.0}}
	SortHits(hits)

	if hits[0].Doc != 2 || hits[1].Doc != 5 || hits[2].Doc != 9 {
		t.Errorf("tie break order = %v, want ascending doc ordinal", hits)
	}
}

func TestTopK(t *testing.T) {
	hits := []Hit{{Doc: 1, Score: 0.5}, {Doc: 2, Score: 0.9}, {Doc: 3, Score: 0.1}}

	got := TopK(hits, 2)
	if len(got) != 2 {
		t.Fatalf("TopK() len = %d, want 2", len(got))
	}
	if got[0].Doc != 2 || got[1].Doc != 1 {
		t.Errorf("TopK() = %v", got)
	}

	if got := TopK(hits, 0); got != nil {
		t.Errorf("TopK(k=0) = %v, want nil", got)
	}
}

func TestTopKAccumulator(t *testing.T) {
	acc := NewTopK(3)
	scores := []float64{0.1, 0.9, 0.5, 0.7, 0.3}
	for i, s := range scores {
		acc.Push(uint32(i), s)
	}

	got := acc.Results()
	if len(got) != 3 {
		t.Fatalf("Results() len = %d, want 3", len(got))
	}
	want := []Hit{{Doc: 1, Score: 0.9}, {Doc: 3, Score: 0.7}, {Doc: 2, Score: 0.5}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Results()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTopKAccumulator_RejectsBadScores(t *testing.T) {
	acc := NewTopK(5)
	acc.Push(1, math.NaN())
	acc.Push(2, math.Inf(1))
	acc.Push(3, 0)
	acc.Push(4, -1)

	if acc.Len() != 0 {
		t.Errorf("accumulator accepted unusable scores, len = %d", acc.Len())
	}
}

func TestTopKAccumulator_FewerThanK(t *testing.T) {
	acc := NewTopK(10)
	acc.Push(1, 0.5)
	acc.Push(2, 0.8)

	got := acc.Results()
	if len(got) != 2 {
		t.Fatalf("Results() len = %d, want 2", len(got))
	}
	if got[0].Doc != 2 {
		t.Errorf("Results()[0] = %v, want doc 2", got[0])
	}
}
