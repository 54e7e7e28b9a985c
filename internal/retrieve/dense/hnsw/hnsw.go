// Package hnsw implements Hierarchical Navigable Small World graphs
// for approximate nearest neighbor search over normalized embeddings
// (Malkov & Yashunin, 2016).
//
// Vectors live in a single structure-of-arrays slice for cache
// locality. The graph is built once after all vectors are added; upper
// layers carry sparse long-range links for navigation, the base layer
// carries dense local links for precision.
package hnsw

import (
	"math"
	"math/rand"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
	"github.com/rankstack/rank-search/internal/retrieve/dense"
)

// Diversification selects the neighbor pruning strategy used during
// construction.
type Diversification string

const (
	// DiversifyRND keeps a candidate only when it is closer to the
	// query than to every already selected neighbor. Highest pruning
	// ratio and best overall recall/size trade-off.
	DiversifyRND Diversification = "rnd"
	// DiversifyMOND keeps a candidate only when the angle it forms at
	// the query with every selected neighbor exceeds MinAngleDegrees.
	DiversifyMOND Diversification = "mond"
	// DiversifyRRND relaxes RND by a factor Alpha, producing denser
	// graphs.
	DiversifyRRND Diversification = "rrnd"
)

// Params controls graph structure and search behavior.
type Params struct {
	// M is the maximum number of connections per node in upper layers.
	M int
	// MMax is the maximum number of connections in the base layer.
	MMax int
	// ML is the layer assignment parameter, typically 1/ln(2).
	ML float64
	// EfConstruction is the candidate pool width during construction.
	EfConstruction int
	// EfSearch is the default candidate pool width during search.
	EfSearch int
	// Diversification selects the neighbor pruning strategy.
	Diversification Diversification
	// MinAngleDegrees applies to DiversifyMOND.
	MinAngleDegrees float64
	// Alpha applies to DiversifyRRND.
	Alpha float64
	// Seed fixes the layer assignment RNG; 0 leaves it time-seeded.
	Seed int64
}

// DefaultParams returns the conventional HNSW parameters.
func DefaultParams() Params {
	return Params{
		M:               16,
		MMax:            16,
		ML:              1.0 / math.Ln2,
		EfConstruction:  200,
		EfSearch:        50,
		Diversification: DiversifyRND,
		MinAngleDegrees: 60,
		Alpha:           1.5,
	}
}

// Result is a single nearest neighbor.
type Result struct {
	Doc uint32
	// Distance is the cosine distance, lower is closer.
	Distance float64
}

// Index is an HNSW graph over normalized embeddings.
type Index struct {
	vectors   []float32
	dim       int
	numNodes  int
	ids       []uint32
	layers    [][][]uint32
	nodeLayer []uint8
	params    Params
	rng       *rand.Rand
	built     bool
}

// New creates an index for vectors of the given dimension.
func New(dimension int, params Params) (*Index, error) {
	if dimension <= 0 {
		return nil, apperrors.ValidationError("dimension must be positive")
	}
	if params.M <= 0 || params.MMax <= 0 {
		return nil, apperrors.ValidationError("m and m_max must be positive")
	}
	src := rand.NewSource(params.Seed)
	if params.Seed == 0 {
		src = rand.NewSource(rand.Int63())
	}
	return &Index{
		dim:    dimension,
		params: params,
		rng:    rand.New(src),
	}, nil
}

// Dimension returns the configured vector dimension.
func (idx *Index) Dimension() int { return idx.dim }

// Len returns the number of stored vectors.
func (idx *Index) Len() int { return idx.numNodes }

// Built reports whether the graph has been constructed.
func (idx *Index) Built() bool { return idx.built }

// Add stores a vector under the given document ordinal. Vectors must
// be L2-normalized. Adding after Build is rejected.
func (idx *Index) Add(doc uint32, vector []float32) error {
	if idx.built {
		return apperrors.ValidationError("cannot add vectors after the index is built")
	}
	if len(vector) != idx.dim {
		return apperrors.DimensionMismatchError(idx.dim, len(vector))
	}

	idx.vectors = append(idx.vectors, vector...)
	idx.ids = append(idx.ids, doc)
	idx.nodeLayer = append(idx.nodeLayer, idx.assignLayer())
	idx.numNodes++
	return nil
}

// assignLayer draws a node's top layer from the exponential
// distribution parameterized by ML.
func (idx *Index) assignLayer() uint8 {
	var layer uint8
	for idx.rng.Float64() < 1.0/idx.params.ML && layer < math.MaxUint8 {
		layer++
	}
	return layer
}

// vector returns the stored vector for a node.
func (idx *Index) vector(node uint32) []float32 {
	start := int(node) * idx.dim
	return idx.vectors[start : start+idx.dim]
}

// cosineDistance assumes normalized inputs, so distance is 1 - dot.
func cosineDistance(a, b []float32) float64 {
	return 1 - dense.Dot(a, b)
}

// entryPoint returns the node with the highest layer assignment.
func (idx *Index) entryPoint() (uint32, int) {
	var entry uint32
	var top uint8
	for node, layer := range idx.nodeLayer {
		if layer > top {
			entry = uint32(node)
			top = layer
		}
	}
	return entry, int(top)
}
