package server

import (
	"net/http"

	"github.com/rankstack/rank-search/internal/pipeline"
	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
	"github.com/rankstack/rank-search/internal/retrieve/sparse"
)

// SearchHandler exposes the search pipeline over HTTP.
type SearchHandler struct {
	svc *pipeline.Service
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(svc *pipeline.Service) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// RegisterRoutes registers the search routes.
func (h *SearchHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/corpora/{corpus}/search", h.handleSearch)
	mux.HandleFunc("POST /v1/corpora/{corpus}/search/lexical", h.handleLexicalSearch)
}

// handleSearch handles POST /v1/corpora/{corpus}/search.
func (h *SearchHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	corpus := r.PathValue("corpus")
	if corpus == "" {
		writeError(w, apperrors.ValidationError("corpus is required"))
		return
	}

	var req pipeline.Request
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.Corpus = corpus

	resp, err := h.svc.Search(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLexicalSearch handles POST /v1/corpora/{corpus}/search/lexical.
// Vector fields in the body are ignored so the ranking is BM25 only.
func (h *SearchHandler) handleLexicalSearch(w http.ResponseWriter, r *http.Request) {
	corpus := r.PathValue("corpus")
	if corpus == "" {
		writeError(w, apperrors.ValidationError("corpus is required"))
		return
	}

	var req pipeline.Request
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.Corpus = corpus
	req.Embedding = nil
	req.SparseVector = sparse.Vector{}
	req.QueryTokens = nil

	resp, err := h.svc.Search(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
