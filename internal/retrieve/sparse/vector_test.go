package sparse

import (
	"math"
	"testing"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
)

func TestNewVector(t *testing.T) {
	v, err := NewVector([]uint32{1, 5, 9}, []float64{0.5, 0.3, 0.2})
	if err != nil {
		t.Fatalf("NewVector() error = %v", err)
	}
	if v.NNZ() != 3 {
		t.Errorf("NNZ() = %d, want 3", v.NNZ())
	}

	if _, err := NewVector([]uint32{1, 2}, []float64{0.5}); err == nil {
		t.Error("expected error for length mismatch")
	}
	if _, err := NewVector([]uint32{5, 1}, []float64{0.5, 0.3}); err == nil {
		t.Error("expected error for unsorted indices")
	}
	if _, err := NewVector([]uint32{1, 1}, []float64{0.5, 0.3}); err == nil {
		t.Error("expected error for duplicate indices")
	}
}

func TestFromMap(t *testing.T) {
	v := FromMap(map[uint32]float64{9: 0.2, 1: 0.5, 5: 0.3})
	want := []uint32{1, 5, 9}
	for i, idx := range want {
		if v.Indices[i] != idx {
			t.Errorf("Indices[%d] = %d, want %d", i, v.Indices[i], idx)
		}
	}
	if v.Values[0] != 0.5 || v.Values[2] != 0.2 {
		t.Errorf("values not aligned with sorted indices: %v", v.Values)
	}
}

func TestDot(t *testing.T) {
	a := NewVectorUnchecked([]uint32{0, 2, 4}, []float64{1, 2, 3})
	b := NewVectorUnchecked([]uint32{1, 2, 4}, []float64{5, 7, 11})

	got := Dot(a, b)
	want := 2*7.0 + 3*11.0
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Dot() = %f, want %f", got, want)
	}

	if Dot(a, Vector{}) != 0 {
		t.Error("Dot with empty vector should be 0")
	}

	disjoint := NewVectorUnchecked([]uint32{1, 3}, []float64{9, 9})
	if Dot(a, disjoint) != 0 {
		t.Error("Dot of disjoint vectors should be 0")
	}
}

func TestVector_Norm(t *testing.T) {
	v := NewVectorUnchecked([]uint32{0, 1}, []float64{3, 4})
	if got := v.Norm(); math.Abs(got-5) > 1e-12 {
		t.Errorf("Norm() = %f, want 5", got)
	}
}

func TestVector_Normalize(t *testing.T) {
	v := NewVectorUnchecked([]uint32{0, 1}, []float64{3, 4})
	n := v.Normalize()
	if math.Abs(n.Norm()-1) > 1e-9 {
		t.Errorf("normalized Norm() = %f, want 1", n.Norm())
	}

	zero := NewVectorUnchecked([]uint32{0}, []float64{0})
	if zero.Normalize().NNZ() != 0 {
		t.Error("normalizing zero vector should yield empty vector")
	}
}

func TestVector_Prune(t *testing.T) {
	v := NewVectorUnchecked([]uint32{0, 1, 2}, []float64{0.05, -0.5, 0.2})
	p := v.Prune(0.1)
	if p.NNZ() != 2 {
		t.Fatalf("Prune() NNZ = %d, want 2", p.NNZ())
	}
	if p.Indices[0] != 1 || p.Indices[1] != 2 {
		t.Errorf("Prune() indices = %v", p.Indices)
	}
}

func TestVector_TopK(t *testing.T) {
	v := NewVectorUnchecked([]uint32{0, 1, 2, 3}, []float64{0.1, -0.9, 0.5, 0.3})

	top := v.TopK(2)
	if top.NNZ() != 2 {
		t.Fatalf("TopK() NNZ = %d, want 2", top.NNZ())
	}
	// Largest magnitudes are at indices 1 and 2, kept in index order.
	if top.Indices[0] != 1 || top.Indices[1] != 2 {
		t.Errorf("TopK() indices = %v", top.Indices)
	}

	if v.TopK(10).NNZ() != 4 {
		t.Error("TopK with k >= nnz should keep all entries")
	}
	if v.TopK(0).NNZ() != 0 {
		t.Error("TopK(0) should be empty")
	}
}

func TestRetriever_Retrieve(t *testing.T) {
	r := NewRetriever()
	r.AddDocument(0, FromMap(map[uint32]float64{1: 1.0, 2: 1.0}))
	r.AddDocument(1, FromMap(map[uint32]float64{1: 0.5}))
	r.AddDocument(2, FromMap(map[uint32]float64{3: 1.0}))

	query := FromMap(map[uint32]float64{1: 1.0, 2: 1.0})
	hits, err := r.Retrieve(query, 10)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Retrieve() len = %d, want 2 (doc 2 has no overlap)", len(hits))
	}
	if hits[0].Doc != 0 {
		t.Errorf("top hit = %d, want 0", hits[0].Doc)
	}
}

func TestRetriever_Errors(t *testing.T) {
	r := NewRetriever()

	if _, err := r.Retrieve(Vector{}, 10); !apperrors.IsCode(err, apperrors.CodeEmptyQuery) {
		t.Errorf("empty query error = %v", err)
	}

	query := FromMap(map[uint32]float64{1: 1.0})
	if _, err := r.Retrieve(query, 10); !apperrors.IsCode(err, apperrors.CodeEmptyIndex) {
		t.Errorf("empty index error = %v", err)
	}
}
