package hnsw

import (
	"sort"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
)

type candidate struct {
	node uint32
	dist float64
}

func sortByDist(cands []candidate) {
	sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
}

// Build constructs the multi-layer graph. It must be called once after
// all vectors are added and before Search. Calling Build on an already
// built index is a no-op.
func (idx *Index) Build() error {
	if idx.built {
		return nil
	}
	if idx.numNodes == 0 {
		return apperrors.EmptyIndexError()
	}

	maxLayer := 0
	for _, l := range idx.nodeLayer {
		if int(l) > maxLayer {
			maxLayer = int(l)
		}
	}

	idx.layers = make([][][]uint32, maxLayer+1)
	for l := range idx.layers {
		idx.layers[l] = make([][]uint32, idx.numNodes)
	}

	entry, _ := idx.entryPoint()

	for node := 0; node < idx.numNodes; node++ {
		idx.insert(uint32(node), entry, maxLayer)
	}

	idx.built = true
	return nil
}

// insert links one node into every layer it participates in, from its
// top layer down to the base layer.
func (idx *Index) insert(node, entry uint32, maxLayer int) {
	nodeVec := idx.vector(node)
	topLayer := int(idx.nodeLayer[node])
	if topLayer > maxLayer {
		topLayer = maxLayer
	}

	for layer := topLayer; layer >= 0; layer-- {
		start := entry
		if layer != topLayer {
			start = 0
		}
		candidates := idx.exploreLayer(nodeVec, start, layer)

		mActual := idx.params.M
		if layer == 0 {
			mActual = idx.params.MMax
		}

		selected := idx.selectNeighbors(nodeVec, candidates, mActual)
		for _, neighbor := range selected {
			if neighbor == node {
				continue
			}
			idx.link(layer, node, neighbor, mActual)
			idx.link(layer, neighbor, node, mActual)
		}
	}
}

// exploreLayer walks the current layer graph breadth-first from the
// start node, collecting up to EfConstruction scored candidates.
func (idx *Index) exploreLayer(query []float32, start uint32, layer int) []candidate {
	ef := idx.params.EfConstruction
	visited := make(map[uint32]struct{}, ef)
	queue := []uint32{start}
	candidates := make([]candidate, 0, ef)

	for len(queue) > 0 && len(candidates) < ef {
		node := queue[0]
		queue = queue[1:]
		if _, seen := visited[node]; seen {
			continue
		}
		visited[node] = struct{}{}

		candidates = append(candidates, candidate{
			node: node,
			dist: cosineDistance(query, idx.vector(node)),
		})

		for _, neighbor := range idx.layers[layer][node] {
			if _, seen := visited[neighbor]; !seen {
				queue = append(queue, neighbor)
			}
		}
	}
	return candidates
}

// link adds a directed edge from a to b, pruning a's neighbor list back
// to m entries by distance when it overflows.
func (idx *Index) link(layer int, a, b uint32, m int) {
	neighbors := idx.layers[layer][a]
	for _, existing := range neighbors {
		if existing == b {
			return
		}
	}
	neighbors = append(neighbors, b)

	if len(neighbors) > m {
		aVec := idx.vector(a)
		scored := make([]candidate, len(neighbors))
		for i, n := range neighbors {
			scored[i] = candidate{node: n, dist: cosineDistance(aVec, idx.vector(n))}
		}
		sortByDist(scored)
		neighbors = neighbors[:0]
		for _, c := range scored[:m] {
			neighbors = append(neighbors, c.node)
		}
	}
	idx.layers[layer][a] = neighbors
}

// selectNeighbors applies the configured diversification strategy.
func (idx *Index) selectNeighbors(query []float32, candidates []candidate, m int) []uint32 {
	if len(candidates) == 0 {
		return nil
	}
	sortByDist(candidates)

	switch idx.params.Diversification {
	case DiversifyMOND:
		return idx.selectMOND(query, candidates, m)
	case DiversifyRRND:
		return idx.selectRelative(query, candidates, m, idx.params.Alpha)
	default:
		return idx.selectRelative(query, candidates, m, 1)
	}
}

// selectRelative implements RND (alpha 1) and RRND (alpha > 1): a
// candidate is kept when its query distance is below alpha times its
// distance to every already selected neighbor.
func (idx *Index) selectRelative(query []float32, sorted []candidate, m int, alpha float64) []uint32 {
	selected := []uint32{sorted[0].node}

	for _, cand := range sorted[1:] {
		if len(selected) >= m {
			break
		}
		candVec := idx.vector(cand.node)
		keep := true
		for _, sel := range selected {
			inter := cosineDistance(idx.vector(sel), candVec)
			if cand.dist >= alpha*inter {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, cand.node)
		}
	}
	return idx.fillRemaining(selected, sorted, m)
}

// selectMOND keeps a candidate only when the angle at the query point
// between it and every selected neighbor is at least MinAngleDegrees.
func (idx *Index) selectMOND(query []float32, sorted []candidate, m int) []uint32 {
	minCos := cosDegrees(idx.params.MinAngleDegrees)
	selected := []uint32{sorted[0].node}

	for _, cand := range sorted[1:] {
		if len(selected) >= m {
			break
		}
		candVec := idx.vector(cand.node)
		keep := true
		for _, sel := range selected {
			cos, ok := angleCosine(query, candVec, idx.vector(sel))
			if ok && cos >= minCos {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, cand.node)
		}
	}
	return idx.fillRemaining(selected, sorted, m)
}

// fillRemaining tops up the selection with the closest unused
// candidates so nodes are never left under-connected.
func (idx *Index) fillRemaining(selected []uint32, sorted []candidate, m int) []uint32 {
	used := make(map[uint32]struct{}, len(selected))
	for _, s := range selected {
		used[s] = struct{}{}
	}
	for _, cand := range sorted {
		if len(selected) >= m {
			break
		}
		if _, dup := used[cand.node]; !dup {
			used[cand.node] = struct{}{}
			selected = append(selected, cand.node)
		}
	}
	return selected
}
