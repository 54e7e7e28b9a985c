package benchmark

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rankstack/rank-search/internal/pkg/logger"
	"github.com/rankstack/rank-search/internal/retrieve/dense"
	"github.com/rankstack/rank-search/internal/retrieve/dense/hnsw"
)

// AnnIndex is the surface the runner benchmarks. Search returns doc
// ordinals in ascending distance order.
type AnnIndex interface {
	Add(doc uint32, vector []float32) error
	Build() error
	Search(query []float32, k int) ([]uint32, error)
}

// FlatIndex adapts the brute-force dense retriever.
type FlatIndex struct {
	r *dense.Retriever
}

// NewFlatIndex creates a flat adapter.
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{r: dense.NewRetriever()}
}

func (f *FlatIndex) Add(doc uint32, vector []float32) error {
	return f.r.AddDocument(doc, vector)
}

func (f *FlatIndex) Build() error { return nil }

func (f *FlatIndex) Search(query []float32, k int) ([]uint32, error) {
	hits, err := f.r.Retrieve(query, k)
	if err != nil {
		return nil, err
	}
	ids := make([]uint32, len(hits))
	for i, h := range hits {
		ids[i] = h.Doc
	}
	return ids, nil
}

// HNSWIndex adapts the graph index.
type HNSWIndex struct {
	idx *hnsw.Index
	ef  int
}

// NewHNSWIndex creates an HNSW adapter. ef 0 uses the index default.
func NewHNSWIndex(dimension int, params hnsw.Params, ef int) (*HNSWIndex, error) {
	idx, err := hnsw.New(dimension, params)
	if err != nil {
		return nil, err
	}
	return &HNSWIndex{idx: idx, ef: ef}, nil
}

func (h *HNSWIndex) Add(doc uint32, vector []float32) error {
	return h.idx.Add(doc, vector)
}

func (h *HNSWIndex) Build() error { return h.idx.Build() }

func (h *HNSWIndex) Search(query []float32, k int) ([]uint32, error) {
	results, err := h.idx.Search(query, k, h.ef)
	if err != nil {
		return nil, err
	}
	ids := make([]uint32, len(results))
	for i, r := range results {
		ids[i] = r.Doc
	}
	return ids, nil
}

// Result holds the summary for one algorithm/dataset/k combination.
type Result struct {
	Algorithm string     `json:"algorithm"`
	Dataset   string     `json:"dataset"`
	K         int        `json:"k"`
	Stats     Statistics `json:"stats"`
}

type gtKey struct {
	dataset string
	k       int
}

// Runner benchmarks indexes over registered datasets.
type Runner struct {
	datasets []namedDataset
	kValues  []int

	mu      sync.Mutex
	gtCache map[gtKey][][]uint32

	maxTestQueries int
	log            *logger.Logger
}

type namedDataset struct {
	name string
	data Dataset
}

// NewRunner creates a runner with the standard k values 1, 10, 100.
func NewRunner(log *logger.Logger) *Runner {
	return &Runner{
		kValues: []int{1, 10, 100},
		gtCache: make(map[gtKey][][]uint32),
		log:     log,
	}
}

// SetKValues overrides the evaluated cutoffs.
func (r *Runner) SetKValues(ks []int) {
	if len(ks) > 0 {
		r.kValues = ks
	}
}

// SetMaxTestQueries caps the number of test queries per dataset.
func (r *Runner) SetMaxTestQueries(max int) {
	r.maxTestQueries = max
}

// AddDataset registers a dataset under a name.
func (r *Runner) AddDataset(name string, data Dataset) {
	r.datasets = append(r.datasets, namedDataset{name: name, data: data})
}

func (r *Runner) numQueries(data Dataset) int {
	n := len(data.Test)
	if r.maxTestQueries > 0 && r.maxTestQueries < n {
		n = r.maxTestQueries
	}
	return n
}

// PrecomputeGroundTruth fills the exact-search cache for every
// dataset and k. Queries are distributed across CPUs.
func (r *Runner) PrecomputeGroundTruth(ctx context.Context) error {
	for _, nd := range r.datasets {
		for _, k := range r.kValues {
			key := gtKey{dataset: nd.name, k: k}
			r.mu.Lock()
			_, ok := r.gtCache[key]
			r.mu.Unlock()
			if ok {
				continue
			}

			n := r.numQueries(nd.data)
			r.log.Debug("computing ground truth",
				"dataset", nd.name, "k", k, "queries", n)

			truths := make([][]uint32, n)
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(runtime.GOMAXPROCS(0))
			for i := 0; i < n; i++ {
				g.Go(func() error {
					if err := gctx.Err(); err != nil {
						return err
					}
					truths[i] = GroundTruth(nd.data.Test[i], nd.data.Train, k)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			r.mu.Lock()
			r.gtCache[key] = truths
			r.mu.Unlock()
		}
	}
	return nil
}

func (r *Runner) groundTruth(dataset string, k, query int, data Dataset) []uint32 {
	r.mu.Lock()
	cached, ok := r.gtCache[gtKey{dataset: dataset, k: k}]
	r.mu.Unlock()
	if ok && query < len(cached) {
		return cached[query]
	}
	return GroundTruth(data.Test[query], data.Train, k)
}

// RunAlgorithm builds the index on the dataset's train split and
// measures recall and latency over the test split at every k.
func (r *Runner) RunAlgorithm(ctx context.Context, algorithm string, index AnnIndex, datasetName string) ([]Result, error) {
	var data Dataset
	found := false
	for _, nd := range r.datasets {
		if nd.name == datasetName {
			data = nd.data
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("dataset %q not registered", datasetName)
	}

	buildStart := time.Now()
	for i, v := range data.Train {
		if err := index.Add(uint32(i), v); err != nil {
			return nil, err
		}
	}
	if err := index.Build(); err != nil {
		return nil, err
	}
	buildTime := time.Since(buildStart).Seconds()

	r.log.Info("index built",
		"algorithm", algorithm,
		"dataset", datasetName,
		"vectors", len(data.Train),
		"build_sec", buildTime)

	n := r.numQueries(data)
	results := make([]Result, 0, len(r.kValues))

	for _, k := range r.kValues {
		recalls := make([]float64, n)
		queryTimes := make([]float64, n)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i := 0; i < n; i++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				query := data.Test[i]
				gt := r.groundTruth(datasetName, k, i, data)

				start := time.Now()
				retrieved, err := index.Search(query, k)
				if err != nil {
					return err
				}
				queryTimes[i] = float64(time.Since(start).Microseconds()) / 1000
				recalls[i] = RecallAtK(gt, retrieved, k)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		totalMs := 0.0
		for _, qt := range queryTimes {
			totalMs += qt
		}
		throughput := 0.0
		if totalMs > 0 {
			throughput = float64(n) / (totalMs / 1000)
		}

		metrics := Metrics{
			Recalls:      recalls,
			QueryTimesMs: queryTimes,
			BuildTimeSec: buildTime,
			Throughput:   throughput,
		}
		results = append(results, Result{
			Algorithm: algorithm,
			Dataset:   datasetName,
			K:         k,
			Stats:     metrics.Summarize(),
		})
	}
	return results, nil
}
