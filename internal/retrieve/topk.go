package retrieve

import (
	"container/heap"
	"math"
)

// TopKAccumulator collects the k highest-scoring hits from a stream of
// candidates using a bounded min-heap. Non-finite and non-positive
// scores are rejected by Push.
type TopKAccumulator struct {
	k    int
	heap hitHeap
}

// NewTopK creates an accumulator for the k best hits.
func NewTopK(k int) *TopKAccumulator {
	return &TopKAccumulator{k: k, heap: make(hitHeap, 0, k+1)}
}

// Push offers a candidate to the accumulator.
func (a *TopKAccumulator) Push(doc uint32, score float64) {
	if a.k <= 0 || !isUsable(score) {
		return
	}
	if a.heap.Len() < a.k {
		heap.Push(&a.heap, Hit{Doc: doc, Score: score})
		return
	}
	if score > a.heap[0].Score {
		a.heap[0] = Hit{Doc: doc, Score: score}
		heap.Fix(&a.heap, 0)
	}
}

// Results drains the accumulator and returns hits sorted by descending
// score. The accumulator must not be reused afterwards.
func (a *TopKAccumulator) Results() []Hit {
	hits := []Hit(a.heap)
	SortHits(hits)
	return hits
}

// Len reports the number of hits currently held.
func (a *TopKAccumulator) Len() int { return a.heap.Len() }

// isUsable rejects NaN, infinities, and non-positive scores.
func isUsable(score float64) bool {
	return score > 0 && !math.IsInf(score, 1)
}

type hitHeap []Hit

func (h hitHeap) Len() int            { return len(h) }
func (h hitHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h hitHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x interface{}) { *h = append(*h, x.(Hit)) }
func (h *hitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
