package index

import (
	"context"
	"sync"

	"github.com/rankstack/rank-search/internal/pkg/logger"
)

// IngestConfig configures batch ingestion.
type IngestConfig struct {
	// BatchSize is the number of documents per batch.
	BatchSize int
	// Workers is the number of parallel batch workers.
	Workers int
}

// DefaultIngestConfig returns sensible defaults.
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		BatchSize: 32,
		Workers:   4,
	}
}

// Progress reports ingestion progress.
type Progress struct {
	Current int     `json:"current"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// ProgressCallback receives progress updates during ingestion.
type ProgressCallback func(Progress)

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	Indexed int      `json:"indexed"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// Ingestor loads documents into a corpus in parallel batches, with
// optional write-ahead logging for recovery.
type Ingestor struct {
	corpus   *Corpus
	wal      *WAL
	cfg      IngestConfig
	log      *logger.Logger
	progress ProgressCallback
}

// NewIngestor creates an ingestor. wal may be nil to skip durability.
func NewIngestor(corpus *Corpus, wal *WAL, cfg IngestConfig, log *logger.Logger) *Ingestor {
	if cfg.BatchSize <= 0 || cfg.Workers <= 0 {
		cfg = DefaultIngestConfig()
	}
	return &Ingestor{corpus: corpus, wal: wal, cfg: cfg, log: log}
}

// SetProgressCallback registers a progress listener.
func (in *Ingestor) SetProgressCallback(cb ProgressCallback) {
	in.progress = cb
}

// Ingest indexes the documents. Corpus ordinal assignment is
// serialized internally, so batches only parallelize validation and
// WAL encoding. Per-document failures are collected, not fatal.
func (in *Ingestor) Ingest(ctx context.Context, docs []*Document) (*IngestResult, error) {
	if len(docs) == 0 {
		return &IngestResult{}, nil
	}

	batches := splitBatches(docs, in.cfg.BatchSize)

	var mu sync.Mutex
	result := &IngestResult{}
	done := 0

	sem := make(chan struct{}, in.cfg.Workers)
	var wg sync.WaitGroup

	for _, batch := range batches {
		select {
		case <-ctx.Done():
			wg.Wait()
			return result, ctx.Err()
		default:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(batch []*Document) {
			defer wg.Done()
			defer func() { <-sem }()

			for _, doc := range batch {
				err := in.ingestOne(doc)

				mu.Lock()
				if err != nil {
					result.Failed++
					result.Errors = append(result.Errors, doc.ID+": "+err.Error())
					in.log.Warn("document rejected", "id", doc.ID, "error", err)
				} else {
					result.Indexed++
				}
				done++
				current := done
				mu.Unlock()

				if in.progress != nil {
					in.progress(Progress{
						Current: current,
						Total:   len(docs),
						Percent: float64(current) / float64(len(docs)) * 100,
					})
				}
			}
		}(batch)
	}
	wg.Wait()

	if in.wal != nil {
		if err := in.wal.Sync(); err != nil {
			return result, err
		}
	}

	in.log.Info("ingestion complete",
		"corpus", in.corpus.Name(),
		"indexed", result.Indexed,
		"failed", result.Failed)
	return result, nil
}

func (in *Ingestor) ingestOne(doc *Document) error {
	if _, err := in.corpus.Add(doc); err != nil {
		return err
	}
	if in.wal != nil {
		if err := in.wal.AppendAdd(doc); err != nil {
			return err
		}
	}
	return nil
}

// Recover replays the WAL into the corpus. Documents already present
// are skipped, so recovery after a partial flush is idempotent.
func Recover(corpus *Corpus, wal *WAL, log *logger.Logger) (int, error) {
	recovered := 0
	err := wal.Replay(ReplayHandler{
		OnAdd: func(doc *Document) error {
			if _, ok := corpus.Ordinal(doc.ID); ok {
				return nil
			}
			if _, err := corpus.Add(doc); err != nil {
				return err
			}
			recovered++
			return nil
		},
		OnTombstone: func(id string) error {
			// The in-memory indexes are append-only; tombstones only
			// matter when compacting segments.
			return nil
		},
	})
	if err != nil {
		return recovered, err
	}
	log.Info("wal recovery complete", "corpus", corpus.Name(), "documents", recovered)
	return recovered, nil
}

func splitBatches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	var batches [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}
