// Package benchmark implements an ann-benchmarks style harness for the
// dense retrieval indexes: synthetic datasets, exact ground truth,
// recall and robustness metrics, and a runner producing per-algorithm
// statistics.
package benchmark

import (
	"math"
	"math/rand"
	"sort"

	"github.com/rankstack/rank-search/internal/retrieve/dense"
)

// Dataset holds a train/test vector split.
type Dataset struct {
	Train     [][]float32
	Test      [][]float32
	Dimension int
}

// GenerateUniform generates seeded normalized random vectors.
func GenerateUniform(numVectors, dimension int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	vectors := make([][]float32, numVectors)
	for i := range vectors {
		v := make([]float32, dimension)
		for d := range v {
			v[d] = rng.Float32()*2 - 1
		}
		vectors[i] = dense.Normalize(v)
	}
	return vectors
}

// GenerateClustered generates seeded normalized vectors around
// Gaussian cluster centers, mimicking embedding distributions.
func GenerateClustered(numVectors, dimension, numClusters int, seed int64) [][]float32 {
	if numClusters < 1 {
		numClusters = 1
	}
	rng := rand.New(rand.NewSource(seed))

	centers := make([][]float64, numClusters)
	for c := range centers {
		center := make([]float64, dimension)
		for d := range center {
			center[d] = rng.NormFloat64()
		}
		centers[c] = center
	}

	vectors := make([][]float32, numVectors)
	for i := range vectors {
		center := centers[rng.Intn(numClusters)]
		v := make([]float32, dimension)
		for d := range v {
			v[d] = float32(center[d] + rng.NormFloat64()*0.1)
		}
		vectors[i] = dense.Normalize(v)
	}
	return vectors
}

// NewDataset splits generated vectors into train and test sets.
// Datasets above 10k vectors use a 90/10 split, smaller ones 80/20.
func NewDataset(vectors [][]float32, dimension int) Dataset {
	split := 0.8
	if len(vectors) > 10_000 {
		split = 0.9
	}
	numTrain := int(float64(len(vectors)) * split)
	return Dataset{
		Train:     vectors[:numTrain],
		Test:      vectors[numTrain:],
		Dimension: dimension,
	}
}

// GroundTruth computes the exact top k by brute force cosine distance.
func GroundTruth(query []float32, train [][]float32, k int) []uint32 {
	type scored struct {
		id   uint32
		dist float64
	}
	candidates := make([]scored, len(train))
	for i, v := range train {
		candidates[i] = scored{id: uint32(i), dist: 1 - dense.Dot(query, v)}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].id < candidates[j].id
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	ids := make([]uint32, k)
	for i := 0; i < k; i++ {
		ids[i] = candidates[i].id
	}
	return ids
}

// mean, stdDev and percentile summarize metric samples.

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		d := v - m
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	idx := int(math.Round(p * float64(len(sorted)-1)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
