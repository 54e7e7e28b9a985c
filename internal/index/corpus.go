package index

import (
	"sync"

	"github.com/rankstack/rank-search/internal/analysis"
	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
	"github.com/rankstack/rank-search/internal/retrieve/bm25"
	"github.com/rankstack/rank-search/internal/retrieve/dense"
	"github.com/rankstack/rank-search/internal/retrieve/sparse"
)

// Corpus owns the retrieval indexes for one named collection and the
// mapping between external document IDs and the dense ordinals the
// retrievers operate on. Ordinals are assigned in insertion order and
// never reused.
type Corpus struct {
	name     string
	analyzer *analysis.Analyzer

	mu       sync.RWMutex
	ordinals map[string]uint32
	ids      []string
	docs     []*Document

	lexical *bm25.Index
	dense   *dense.Retriever
	sparse  *sparse.Retriever
}

// NewCorpus creates an empty corpus.
func NewCorpus(name string, analyzer *analysis.Analyzer) *Corpus {
	if analyzer == nil {
		analyzer = analysis.New()
	}
	return &Corpus{
		name:     name,
		analyzer: analyzer,
		ordinals: make(map[string]uint32),
		lexical:  bm25.NewIndex(),
		dense:    dense.NewRetriever(),
		sparse:   sparse.NewRetriever(),
	}
}

// Name returns the corpus name.
func (c *Corpus) Name() string { return c.name }

// Len returns the number of indexed documents.
func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}

// Add validates and indexes a document, assigning the next ordinal.
// Re-adding an existing external ID is an error; ingestion decides
// replace semantics above this layer.
func (c *Corpus) Add(doc *Document) (uint32, error) {
	if err := Validate(doc); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.ordinals[doc.ID]; exists {
		return 0, apperrors.New(apperrors.CodeAlreadyExists,
			"document already indexed: "+doc.ID)
	}

	ordinal := uint32(len(c.ids))
	tokens := c.analyzer.Tokenize(doc.Content)
	c.lexical.AddDocument(ordinal, tokens)

	if len(doc.Embedding) > 0 {
		if err := c.dense.AddDocument(ordinal, doc.Embedding); err != nil {
			// The lexical index has no removal; the caller sees the
			// error before the ordinal is published.
			return 0, err
		}
	}
	if doc.SparseVector.NNZ() > 0 {
		c.sparse.AddDocument(ordinal, doc.SparseVector)
	}

	c.ordinals[doc.ID] = ordinal
	c.ids = append(c.ids, doc.ID)
	c.docs = append(c.docs, doc)
	return ordinal, nil
}

// Ordinal resolves an external ID.
func (c *Corpus) Ordinal(id string) (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ord, ok := c.ordinals[id]
	return ord, ok
}

// ExternalID resolves an ordinal back to the external ID.
func (c *Corpus) ExternalID(ordinal uint32) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(ordinal) >= len(c.ids) {
		return "", false
	}
	return c.ids[ordinal], true
}

// Document returns the stored document for an ordinal.
func (c *Corpus) Document(ordinal uint32) (*Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(ordinal) >= len(c.docs) {
		return nil, false
	}
	return c.docs[ordinal], true
}

// DocumentByID returns the stored document for an external ID.
func (c *Corpus) DocumentByID(id string) (*Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ord, ok := c.ordinals[id]
	if !ok {
		return nil, false
	}
	return c.docs[ord], true
}

// Lexical exposes the BM25 index for retrieval.
func (c *Corpus) Lexical() *bm25.Index { return c.lexical }

// Dense exposes the dense retriever.
func (c *Corpus) Dense() *dense.Retriever { return c.dense }

// Sparse exposes the sparse retriever.
func (c *Corpus) Sparse() *sparse.Retriever { return c.sparse }

// Analyzer exposes the corpus analyzer so queries tokenize the same
// way documents did.
func (c *Corpus) Analyzer() *analysis.Analyzer { return c.analyzer }

// Documents returns all stored documents in ordinal order.
func (c *Corpus) Documents() []*Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Document, len(c.docs))
	copy(out, c.docs)
	return out
}
