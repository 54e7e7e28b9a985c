package sparse

import (
	"math"
	"sort"
	"testing"

	"pgregory.net/rapid"
)

func drawVector(rt *rapid.T, label string) Vector {
	n := rapid.IntRange(0, 50).Draw(rt, label+"_nnz")
	weights := make(map[uint32]float64, n)
	for i := 0; i < n; i++ {
		idx := rapid.Uint32Range(0, 1000).Draw(rt, label+"_idx")
		val := rapid.Float64Range(-10, 10).Draw(rt, label+"_val")
		weights[idx] = val
	}
	return FromMap(weights)
}

func TestProperty_DotSymmetric(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := drawVector(rt, "a")
		b := drawVector(rt, "b")

		ab := Dot(a, b)
		ba := Dot(b, a)
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("Dot not symmetric: %f vs %f", ab, ba)
		}
	})
}

func TestProperty_DotWithSelfIsSquaredNorm(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := drawVector(rt, "v")

		self := Dot(v, v)
		norm := v.Norm()
		if math.Abs(self-norm*norm) > 1e-6 {
			t.Errorf("Dot(v,v) = %f, norm^2 = %f", self, norm*norm)
		}
	})
}

func TestProperty_NormalizeUnitLength(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := drawVector(rt, "v")

		n := v.Normalize()
		if n.NNZ() == 0 {
			return
		}
		if math.Abs(n.Norm()-1) > 1e-9 {
			t.Errorf("normalized norm = %f, want 1", n.Norm())
		}
	})
}

func TestProperty_TopKIndicesSortedSubset(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := drawVector(rt, "v")
		k := rapid.IntRange(0, 60).Draw(rt, "k")

		top := v.TopK(k)
		if top.NNZ() > k && k >= 0 {
			t.Errorf("TopK(%d) kept %d entries", k, top.NNZ())
		}
		if !sort.SliceIsSorted(top.Indices, func(i, j int) bool {
			return top.Indices[i] < top.Indices[j]
		}) {
			t.Errorf("TopK indices not sorted: %v", top.Indices)
		}

		orig := make(map[uint32]float64, v.NNZ())
		for i, idx := range v.Indices {
			orig[idx] = v.Values[i]
		}
		for i, idx := range top.Indices {
			if orig[idx] != top.Values[i] {
				t.Errorf("TopK entry (%d, %f) not present in original", idx, top.Values[i])
			}
		}
	})
}

func TestProperty_PruneRemovesOnlySmallEntries(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := drawVector(rt, "v")
		threshold := rapid.Float64Range(0, 5).Draw(rt, "threshold")

		p := v.Prune(threshold)
		for _, val := range p.Values {
			if math.Abs(val) < threshold {
				t.Errorf("Prune(%f) kept value %f", threshold, val)
			}
		}
		for i, idx := range v.Indices {
			if math.Abs(v.Values[i]) >= threshold {
				if _, ok := find(p, idx); !ok {
					t.Errorf("Prune(%f) dropped value %f at index %d", threshold, v.Values[i], idx)
				}
			}
		}
	})
}

func find(v Vector, index uint32) (float64, bool) {
	for i, idx := range v.Indices {
		if idx == index {
			return v.Values[i], true
		}
	}
	return 0, false
}
