// Package index provides the document model, the external-to-ordinal
// ID mapping over the retrieval indexes, batch ingestion, and durable
// segment storage with a write-ahead log.
package index

import (
	"fmt"
	"time"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
	"github.com/rankstack/rank-search/internal/pkg/hash"
	"github.com/rankstack/rank-search/internal/retrieve/sparse"
)

// Content limits.
const (
	MaxDocumentSize = 10 * 1024 * 1024
	MaxIDLength     = 1024
)

// Document is a unit of indexed content. Embedding, TokenEmbeddings
// and SparseVector are optional; documents without them participate
// only in lexical retrieval. TokenEmbeddings feed late-interaction
// reranking and are never searched directly.
type Document struct {
	ID              string        `json:"id"`
	Content         string        `json:"content"`
	Embedding       []float32     `json:"embedding,omitempty"`
	TokenEmbeddings [][]float32   `json:"token_embeddings,omitempty"`
	SparseVector    sparse.Vector `json:"sparse_vector,omitempty"`
	Hash            string        `json:"hash"`
	IndexedAt       time.Time     `json:"indexed_at"`
}

// NewDocument creates a document and stamps its content hash.
func NewDocument(id, content string) *Document {
	return &Document{
		ID:        id,
		Content:   content,
		Hash:      hash.SHA256String(content),
		IndexedAt: time.Now().UTC(),
	}
}

// WithEmbedding attaches a dense embedding.
func (d *Document) WithEmbedding(embedding []float32) *Document {
	d.Embedding = embedding
	return d
}

// WithTokenEmbeddings attaches per-token embeddings for reranking.
func (d *Document) WithTokenEmbeddings(tokens [][]float32) *Document {
	d.TokenEmbeddings = tokens
	return d
}

// WithSparseVector attaches a learned sparse vector.
func (d *Document) WithSparseVector(v sparse.Vector) *Document {
	d.SparseVector = v
	return d
}

// StorageID returns the deterministic internal ID derived from the
// external ID and content hash.
func (d *Document) StorageID() string {
	return hash.DocumentID(d.ID, d.Hash)
}

// Validate checks a document before ingestion.
func Validate(doc *Document) error {
	if doc.ID == "" {
		return apperrors.ValidationError("document id cannot be empty")
	}
	if len(doc.ID) > MaxIDLength {
		return apperrors.ValidationError(
			fmt.Sprintf("document id exceeds maximum length of %d", MaxIDLength))
	}
	if doc.Content == "" {
		return apperrors.ValidationError("document content cannot be empty")
	}
	if len(doc.Content) > MaxDocumentSize {
		return apperrors.ValidationError(
			fmt.Sprintf("document size %d exceeds maximum of %d bytes", len(doc.Content), MaxDocumentSize))
	}
	return nil
}
