package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rankstack/rank-search/internal/bus"
	"github.com/rankstack/rank-search/internal/index"
	"github.com/rankstack/rank-search/internal/pipeline"
	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
	"github.com/rankstack/rank-search/internal/pkg/logger"
	"github.com/rankstack/rank-search/internal/qdrant"
)

// DefaultVectorDim is used for mirrored Qdrant collections when the
// create request does not name a dimension.
const DefaultVectorDim = 384

// CorpusHandler manages corpus lifecycle and document ingestion.
type CorpusHandler struct {
	svc    *pipeline.Service
	ingest index.IngestConfig
	bus    bus.Bus
	qdrant *qdrant.Client
	log    *logger.Logger

	// dataDir holds per-corpus WAL files; empty disables durability.
	dataDir string

	walMu sync.Mutex
	wals  map[string]*index.WAL
}

// NewCorpusHandler creates a corpus handler. Bus and qdrant are
// optional.
func NewCorpusHandler(svc *pipeline.Service, ingest index.IngestConfig, dataDir string, log *logger.Logger) *CorpusHandler {
	if log == nil {
		log = logger.Default()
	}
	return &CorpusHandler{
		svc:     svc,
		ingest:  ingest,
		dataDir: dataDir,
		log:     log,
		wals:    make(map[string]*index.WAL),
	}
}

// SetBus attaches the event bus.
func (h *CorpusHandler) SetBus(b bus.Bus) { h.bus = b }

// SetQdrant attaches a Qdrant client for mirrored vector storage.
func (h *CorpusHandler) SetQdrant(qc *qdrant.Client) { h.qdrant = qc }

// RegisterRoutes registers the corpus routes.
func (h *CorpusHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/corpora", h.handleList)
	mux.HandleFunc("PUT /v1/corpora/{corpus}", h.handleCreate)
	mux.HandleFunc("GET /v1/corpora/{corpus}", h.handleGet)
	mux.HandleFunc("DELETE /v1/corpora/{corpus}", h.handleDelete)
	mux.HandleFunc("POST /v1/corpora/{corpus}/documents", h.handleIngest)
	mux.HandleFunc("GET /v1/corpora/{corpus}/documents/{id}", h.handleGetDocument)
}

// createRequest is the body for PUT /v1/corpora/{corpus}.
type createRequest struct {
	VectorDim uint64 `json:"vector_dim,omitempty"`
}

// corpusInfo describes one corpus in list and get responses.
type corpusInfo struct {
	Name      string `json:"name"`
	Documents int    `json:"documents"`
	Recovered int    `json:"recovered,omitempty"`
}

func (h *CorpusHandler) handleList(w http.ResponseWriter, r *http.Request) {
	names := h.svc.CorpusNames()
	infos := make([]corpusInfo, 0, len(names))
	for _, name := range names {
		c, err := h.svc.Corpus(name)
		if err != nil {
			continue
		}
		infos = append(infos, corpusInfo{Name: name, Documents: c.Len()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"corpora": infos, "total": len(infos)})
}

func (h *CorpusHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("corpus")
	if name == "" {
		writeError(w, apperrors.ValidationError("corpus name is required"))
		return
	}

	if _, err := h.svc.Corpus(name); err == nil {
		writeError(w, apperrors.New(apperrors.CodeAlreadyExists,
			fmt.Sprintf("corpus %q already exists", name)))
		return
	}

	req := createRequest{VectorDim: DefaultVectorDim}
	if r.ContentLength > 0 {
		if err := readJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	corpus := index.NewCorpus(name, nil)

	recovered := 0
	if h.dataDir != "" {
		wal, n, err := h.openWAL(corpus)
		if err != nil {
			writeError(w, err)
			return
		}
		h.walMu.Lock()
		h.wals[name] = wal
		h.walMu.Unlock()
		recovered = n
	}

	if err := h.svc.RegisterCorpus(corpus); err != nil {
		writeError(w, err)
		return
	}

	if h.qdrant != nil {
		cfg := qdrant.DefaultCollectionConfig(name, req.VectorDim)
		if err := h.qdrant.CreateCollection(r.Context(), cfg); err != nil {
			h.log.WithError(err).WithCorpus(name).Warn("failed to create mirrored collection")
		}
	}

	h.publish(r.Context(), bus.TopicIndexRecovered, map[string]any{
		"corpus":    name,
		"recovered": recovered,
	})

	writeJSON(w, http.StatusCreated, corpusInfo{
		Name:      name,
		Documents: corpus.Len(),
		Recovered: recovered,
	})
}

// openWAL opens the per-corpus log and replays it into the corpus.
func (h *CorpusHandler) openWAL(corpus *index.Corpus) (*index.WAL, int, error) {
	if err := os.MkdirAll(h.dataDir, 0o755); err != nil {
		return nil, 0, apperrors.Wrap(apperrors.CodeStorageError, "creating data directory", err)
	}
	path := filepath.Join(h.dataDir, corpus.Name()+".wal")
	wal, err := index.OpenWAL(path)
	if err != nil {
		return nil, 0, err
	}
	recovered, err := index.Recover(corpus, wal, h.log)
	if err != nil {
		wal.Close()
		return nil, 0, err
	}
	return wal, recovered, nil
}

func (h *CorpusHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Corpus(r.PathValue("corpus"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, corpusInfo{Name: c.Name(), Documents: c.Len()})
}

func (h *CorpusHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("corpus")
	if err := h.svc.UnregisterCorpus(name); err != nil {
		writeError(w, err)
		return
	}
	h.walMu.Lock()
	if wal, ok := h.wals[name]; ok {
		wal.Close()
		delete(h.wals, name)
	}
	h.walMu.Unlock()
	if h.qdrant != nil {
		if err := h.qdrant.DeleteCollection(r.Context(), name); err != nil {
			h.log.WithError(err).WithCorpus(name).Warn("failed to delete mirrored collection")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ingestRequest is the body for POST /v1/corpora/{corpus}/documents.
type ingestRequest struct {
	Documents []*index.Document `json:"documents"`
}

func (h *CorpusHandler) handleIngest(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("corpus")
	corpus, err := h.svc.Corpus(name)
	if err != nil {
		writeError(w, err)
		return
	}

	var req ingestRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, apperrors.ValidationError("documents cannot be empty"))
		return
	}
	for _, doc := range req.Documents {
		if doc.Hash == "" {
			*doc = *index.NewDocument(doc.ID, doc.Content).
				WithEmbedding(doc.Embedding).
				WithTokenEmbeddings(doc.TokenEmbeddings).
				WithSparseVector(doc.SparseVector)
		}
	}

	start := time.Now()
	h.walMu.Lock()
	wal := h.wals[name]
	h.walMu.Unlock()
	ingestor := index.NewIngestor(corpus, wal, h.ingest, h.log)
	result, err := ingestor.Ingest(r.Context(), req.Documents)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.qdrant != nil {
		h.mirrorDocuments(r, name, req.Documents)
	}

	h.publish(r.Context(), bus.TopicBatchCompleted, map[string]any{
		"corpus":  name,
		"indexed": result.Indexed,
		"failed":  result.Failed,
	})

	h.log.WithCorpus(name).Info("batch indexed",
		"indexed", result.Indexed,
		"failed", result.Failed,
		"duration_ms", time.Since(start).Milliseconds())
	writeJSON(w, http.StatusOK, result)
}

// mirrorDocuments upserts the batch into Qdrant. Mirror failures are
// logged; the local index remains authoritative.
func (h *CorpusHandler) mirrorDocuments(r *http.Request, name string, docs []*index.Document) {
	points := make([]qdrant.Point, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) == 0 && doc.SparseVector.NNZ() == 0 {
			continue
		}
		values := make([]float32, len(doc.SparseVector.Values))
		for i, v := range doc.SparseVector.Values {
			values[i] = float32(v)
		}
		points = append(points, qdrant.Point{
			ID:            uuid.NewSHA1(uuid.NameSpaceOID, []byte(doc.StorageID())).String(),
			DenseVector:   doc.Embedding,
			SparseIndices: doc.SparseVector.Indices,
			SparseValues:  values,
			Payload: qdrant.PointPayload{
				Corpus:      name,
				ExternalID:  doc.ID,
				Content:     doc.Content,
				ContentHash: doc.Hash,
				IndexedAt:   doc.IndexedAt,
			},
		})
	}
	if len(points) == 0 {
		return
	}
	if err := h.qdrant.UpsertPointsBatch(r.Context(), name, points, 0); err != nil {
		h.log.WithError(err).WithCorpus(name).Warn("failed to mirror batch")
	}
}

func (h *CorpusHandler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	corpus, err := h.svc.Corpus(r.PathValue("corpus"))
	if err != nil {
		writeError(w, err)
		return
	}
	id := r.PathValue("id")
	doc, ok := corpus.DocumentByID(id)
	if !ok {
		writeError(w, apperrors.NotFoundError(fmt.Sprintf("document %q", id)))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *CorpusHandler) publish(ctx context.Context, topic string, payload map[string]any) {
	if h.bus == nil {
		return
	}
	event := bus.NewEvent(topic, "server", payload)
	if err := h.bus.Publish(ctx, topic, event); err != nil {
		h.log.WithError(err).Warn("failed to publish event", "topic", topic)
	}
}

// Close releases per-corpus resources.
func (h *CorpusHandler) Close() error {
	h.walMu.Lock()
	defer h.walMu.Unlock()
	for name, wal := range h.wals {
		if err := wal.Close(); err != nil {
			h.log.WithError(err).WithCorpus(name).Warn("failed to close log")
		}
	}
	return nil
}
