package index

import (
	"strings"
	"testing"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
	"github.com/rankstack/rank-search/internal/retrieve/sparse"
)

func TestNewDocument(t *testing.T) {
	doc := NewDocument("doc-1", "the quick brown fox")

	if doc.ID != "doc-1" {
		t.Errorf("ID = %s", doc.ID)
	}
	if doc.Hash == "" {
		t.Error("Hash should be set")
	}
	if doc.IndexedAt.IsZero() {
		t.Error("IndexedAt should be set")
	}
	if doc.StorageID() == "" {
		t.Error("StorageID should be derivable")
	}

	// Same content yields the same hash.
	if NewDocument("doc-2", "the quick brown fox").Hash != doc.Hash {
		t.Error("content hash should be deterministic")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  *Document
		ok   bool
	}{
		{"valid", NewDocument("a", "content"), true},
		{"empty id", NewDocument("", "content"), false},
		{"empty content", NewDocument("a", ""), false},
		{"long id", NewDocument(strings.Repeat("x", MaxIDLength+1), "content"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.doc)
			if tt.ok && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCorpus_AddAndLookup(t *testing.T) {
	c := NewCorpus("test", nil)

	ord0, err := c.Add(NewDocument("alpha", "rust systems programming"))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	ord1, err := c.Add(NewDocument("beta", "go network programming"))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if ord0 != 0 || ord1 != 1 {
		t.Errorf("ordinals = %d, %d, want 0, 1", ord0, ord1)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	if ord, ok := c.Ordinal("beta"); !ok || ord != 1 {
		t.Errorf("Ordinal(beta) = %d, %v", ord, ok)
	}
	if id, ok := c.ExternalID(0); !ok || id != "alpha" {
		t.Errorf("ExternalID(0) = %s, %v", id, ok)
	}
	if _, ok := c.ExternalID(99); ok {
		t.Error("ExternalID(99) should miss")
	}
	if doc, ok := c.DocumentByID("alpha"); !ok || doc.ID != "alpha" {
		t.Errorf("DocumentByID(alpha) = %v, %v", doc, ok)
	}

	// Lexical index sees the tokens.
	if c.Lexical().NumDocs() != 2 {
		t.Errorf("lexical NumDocs = %d, want 2", c.Lexical().NumDocs())
	}
}

func TestCorpus_DuplicateID(t *testing.T) {
	c := NewCorpus("test", nil)

	if _, err := c.Add(NewDocument("a", "first")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	_, err := c.Add(NewDocument("a", "second"))
	if err == nil {
		t.Fatal("expected error for duplicate id")
	}
	if !apperrors.IsCode(err, apperrors.CodeAlreadyExists) {
		t.Errorf("error code wrong: %v", err)
	}
}

func TestCorpus_OptionalVectors(t *testing.T) {
	c := NewCorpus("test", nil)

	doc := NewDocument("dense", "vector document").
		WithEmbedding([]float32{0.6, 0.8}).
		WithSparseVector(sparse.NewVectorUnchecked([]uint32{1, 5}, []float64{0.5, 1.2}))

	if _, err := c.Add(doc); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if c.Dense().NumDocs() != 1 {
		t.Errorf("dense NumDocs = %d, want 1", c.Dense().NumDocs())
	}
	if c.Sparse().NumDocs() != 1 {
		t.Errorf("sparse NumDocs = %d, want 1", c.Sparse().NumDocs())
	}

	// Lexical-only documents skip the vector indexes.
	if _, err := c.Add(NewDocument("lexical", "plain text")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if c.Dense().NumDocs() != 1 {
		t.Errorf("dense NumDocs = %d, want 1 after lexical add", c.Dense().NumDocs())
	}
}

func TestDocumentCodec_RoundTrip(t *testing.T) {
	doc := NewDocument("codec-1", "round trip content").
		WithEmbedding([]float32{0.1, 0.2, 0.3}).
		WithSparseVector(sparse.NewVectorUnchecked([]uint32{2, 7, 9}, []float64{1.5, 0.25, 3.0}))

	data, err := MarshalDocument(doc)
	if err != nil {
		t.Fatalf("MarshalDocument() error = %v", err)
	}

	got, err := UnmarshalDocument(data)
	if err != nil {
		t.Fatalf("UnmarshalDocument() error = %v", err)
	}

	if got.ID != doc.ID || got.Content != doc.Content || got.Hash != doc.Hash {
		t.Errorf("scalar fields differ: %+v vs %+v", got, doc)
	}
	if !got.IndexedAt.Equal(doc.IndexedAt) {
		t.Errorf("IndexedAt = %v, want %v", got.IndexedAt, doc.IndexedAt)
	}
	if len(got.Embedding) != 3 || got.Embedding[1] != 0.2 {
		t.Errorf("Embedding = %v", got.Embedding)
	}
	if got.SparseVector.NNZ() != 3 || got.SparseVector.Values[2] != 3.0 {
		t.Errorf("SparseVector = %+v", got.SparseVector)
	}
}

func TestDocumentCodec_NoVectors(t *testing.T) {
	doc := NewDocument("plain", "lexical only")

	data, err := MarshalDocument(doc)
	if err != nil {
		t.Fatalf("MarshalDocument() error = %v", err)
	}
	got, err := UnmarshalDocument(data)
	if err != nil {
		t.Fatalf("UnmarshalDocument() error = %v", err)
	}
	if len(got.Embedding) != 0 || got.SparseVector.NNZ() != 0 {
		t.Errorf("expected no vectors, got %+v", got)
	}
}
