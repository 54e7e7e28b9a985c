// Package qdrant wraps the Qdrant Go client as an external vector
// backend for corpora that outgrow the in-process retrievers.
package qdrant

import (
	"time"
)

// CollectionConfig defines the configuration for creating a collection.
type CollectionConfig struct {
	// Name is the collection name (prefixed with "rank_").
	Name string

	// DenseVectorSize is the dimension of dense vectors.
	DenseVectorSize uint64

	// OnDiskPayload stores payload on disk to save RAM.
	OnDiskPayload bool

	// IndexingThreshold is the number of vectors before the HNSW index
	// is built.
	IndexingThreshold uint64
}

// DefaultCollectionConfig returns defaults for a document corpus.
func DefaultCollectionConfig(name string, dim uint64) CollectionConfig {
	return CollectionConfig{
		Name:              name,
		DenseVectorSize:   dim,
		OnDiskPayload:     true,
		IndexingThreshold: 20000,
	}
}

// Point represents a document point to upsert.
type Point struct {
	// ID is the unique point identifier (UUID).
	ID string

	// DenseVector is the embedding vector.
	DenseVector []float32

	// SparseIndices are the term IDs for the sparse vector.
	SparseIndices []uint32

	// SparseValues are the term weights for the sparse vector.
	SparseValues []float32

	// Payload is the metadata associated with this point.
	Payload PointPayload
}

// PointPayload contains the searchable document metadata.
type PointPayload struct {
	Corpus      string    `json:"corpus"`
	ExternalID  string    `json:"external_id"`
	Content     string    `json:"content"`
	ContentHash string    `json:"content_hash"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// SearchRequest defines parameters for a vector search.
type SearchRequest struct {
	// DenseVector for dense search.
	DenseVector []float32

	// SparseIndices and SparseValues for sparse search.
	SparseIndices []uint32
	SparseValues  []float32

	// Limit is the maximum number of results to return.
	Limit uint64

	// PrefetchLimit is the per-retriever candidate count for hybrid
	// search.
	PrefetchLimit uint64

	// Filter constrains the search to matching documents.
	Filter *SearchFilter

	// WithPayload includes payload in results.
	WithPayload bool

	// ScoreThreshold drops results below this score.
	ScoreThreshold *float32
}

// SearchFilter defines filter conditions for search.
type SearchFilter struct {
	// Corpus filters by corpus name.
	Corpus string

	// ExternalID filters by external document ID.
	ExternalID string

	// ContentHash filters by content hash.
	ContentHash string
}

// SearchResult represents a single search result.
type SearchResult struct {
	// ID is the point identifier.
	ID string

	// Score is the relevance score.
	Score float32

	// Payload contains the point metadata.
	Payload PointPayload
}

// DeleteFilter defines conditions for deleting points.
type DeleteFilter struct {
	// IDs deletes specific point IDs.
	IDs []string

	// ExternalID deletes all points with this external document ID.
	ExternalID string

	// ContentHash deletes all points with this content hash.
	ContentHash string
}

// CollectionInfo contains information about a collection.
type CollectionInfo struct {
	// Name is the collection name (without prefix).
	Name string

	// PointsCount is the total number of points.
	PointsCount uint64

	// Status is the collection health status.
	Status string

	// SegmentsCount is the number of segments.
	SegmentsCount uint64
}
