package hnsw

import (
	"container/heap"
	"math"
	"sort"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
)

// Search returns the k approximate nearest neighbors of the query,
// sorted by ascending cosine distance. ef bounds the candidate pool;
// values below k are raised to k, and 0 selects EfSearch.
func (idx *Index) Search(query []float32, k, ef int) ([]Result, error) {
	if !idx.built {
		return nil, apperrors.ValidationError("index must be built before search")
	}
	if len(query) != idx.dim {
		return nil, apperrors.DimensionMismatchError(len(query), idx.dim)
	}
	if idx.numNodes == 0 {
		return nil, apperrors.EmptyIndexError()
	}
	if k <= 0 {
		return nil, nil
	}
	if ef <= 0 {
		ef = idx.params.EfSearch
	}
	if ef < k {
		ef = k
	}

	entry, entryLayer := idx.entryPoint()

	// Greedy descent through the upper layers.
	closest := entry
	closestDist := math.Inf(1)
	for layer := entryLayer; layer >= 1; layer-- {
		if layer >= len(idx.layers) {
			continue
		}
		closest, closestDist = idx.descendLayer(query, closest, closestDist, layer)
	}

	// Best-first search in the base layer.
	results := idx.searchLayer(query, closest, 0, ef)
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// descendLayer greedily moves to the closest neighbor until no
// neighbor improves on the current position.
func (idx *Index) descendLayer(query []float32, start uint32, startDist float64, layer int) (uint32, float64) {
	closest := start
	dist := startDist
	visited := map[uint32]struct{}{}

	for changed := true; changed; {
		changed = false
		visited[closest] = struct{}{}
		for _, neighbor := range idx.layers[layer][closest] {
			if _, seen := visited[neighbor]; seen {
				continue
			}
			d := cosineDistance(query, idx.vector(neighbor))
			if d < dist {
				dist = d
				closest = neighbor
				changed = true
			}
		}
	}
	return closest, dist
}

// searchLayer runs a best-first search bounded by ef, returning up to
// ef results sorted by ascending distance.
func (idx *Index) searchLayer(query []float32, entry uint32, layer, ef int) []Result {
	visited := make(map[uint32]struct{}, ef*2)
	frontier := &candidateHeap{}
	heap.Init(frontier)
	heap.Push(frontier, candidate{node: entry, dist: cosineDistance(query, idx.vector(entry))})

	results := make([]Result, 0, ef)
	for frontier.Len() > 0 && len(results) < ef {
		cand := heap.Pop(frontier).(candidate)
		if _, seen := visited[cand.node]; seen {
			continue
		}
		visited[cand.node] = struct{}{}
		results = append(results, Result{Doc: idx.ids[cand.node], Distance: cand.dist})

		for _, neighbor := range idx.layers[layer][cand.node] {
			if _, seen := visited[neighbor]; !seen {
				heap.Push(frontier, candidate{
					node: neighbor,
					dist: cosineDistance(query, idx.vector(neighbor)),
				})
			}
		}
	}
	return results
}

// candidateHeap is a min-heap by distance.
type candidateHeap []candidate

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// cosDegrees returns the cosine of an angle given in degrees.
func cosDegrees(degrees float64) float64 {
	return math.Cos(degrees * math.Pi / 180)
}

// angleCosine returns the cosine of the angle formed at origin between
// the directions to a and b. Returns false when either direction is
// degenerate.
func angleCosine(origin, a, b []float32) (float64, bool) {
	var dotAB, normA, normB float64
	for i := range origin {
		da := float64(a[i]) - float64(origin[i])
		db := float64(b[i]) - float64(origin[i])
		dotAB += da * db
		normA += da * da
		normB += db * db
	}
	if normA <= 0 || normB <= 0 {
		return 0, false
	}
	return dotAB / math.Sqrt(normA*normB), true
}
