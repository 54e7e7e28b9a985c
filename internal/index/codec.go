package index

import (
	"github.com/viant/bintly"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
	"github.com/rankstack/rank-search/internal/retrieve/sparse"
)

// Binary codec for documents, used by the segment store and the WAL.
// Layout is positional; both directions must stay in sync.

// EncodeBinary encodes the document to a bintly stream.
func (d *Document) EncodeBinary(stream *bintly.Writer) error {
	stream.String(d.ID)
	stream.String(d.Content)
	stream.String(d.Hash)
	stream.Time(d.IndexedAt)
	stream.Float32s(d.Embedding)
	stream.Int(len(d.TokenEmbeddings))
	for _, tok := range d.TokenEmbeddings {
		stream.Float32s(tok)
	}
	stream.Uint32s(d.SparseVector.Indices)
	stream.Float64s(d.SparseVector.Values)
	return nil
}

// DecodeBinary decodes the document from a bintly stream.
func (d *Document) DecodeBinary(stream *bintly.Reader) error {
	stream.String(&d.ID)
	stream.String(&d.Content)
	stream.String(&d.Hash)
	stream.Time(&d.IndexedAt)
	stream.Float32s(&d.Embedding)

	var tokenCount int
	stream.Int(&tokenCount)
	if tokenCount > 0 {
		d.TokenEmbeddings = make([][]float32, tokenCount)
		for i := range d.TokenEmbeddings {
			stream.Float32s(&d.TokenEmbeddings[i])
		}
	}

	var indices []uint32
	var values []float64
	stream.Uint32s(&indices)
	stream.Float64s(&values)
	if len(indices) > 0 {
		v, err := sparse.NewVector(indices, values)
		if err != nil {
			return err
		}
		d.SparseVector = v
	} else {
		d.SparseVector = sparse.Vector{}
	}
	return nil
}

// MarshalDocument serializes a document to bytes.
func MarshalDocument(doc *Document) ([]byte, error) {
	data, err := bintly.Marshal(doc)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "encoding document", err)
	}
	return data, nil
}

// UnmarshalDocument deserializes a document from bytes.
func UnmarshalDocument(data []byte) (*Document, error) {
	doc := &Document{}
	if err := bintly.Unmarshal(data, doc); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "decoding document", err)
	}
	return doc, nil
}
