package index

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"os"
	"sync"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
)

// Record kinds in the write-ahead log.
const (
	walKindAdd       = 0x01
	walKindTombstone = 0xFE
)

// ErrCorrupt reports a record whose checksum does not match.
var ErrCorrupt = errors.New("wal: corrupt record")

// WAL is an append-only write-ahead log for document mutations.
// Record layout: [kind:1][len:uvarint][payload:len][crc32:4].
// A torn tail from a crashed writer is truncated on replay.
type WAL struct {
	mu   sync.Mutex
	f    *os.File
	path string
	size int64
}

// OpenWAL opens or creates the log at path.
func OpenWAL(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "opening wal", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "stat wal", err)
	}
	return &WAL{f: f, path: path, size: info.Size()}, nil
}

// AppendAdd appends a document record.
func (w *WAL) AppendAdd(doc *Document) error {
	payload, err := MarshalDocument(doc)
	if err != nil {
		return err
	}
	return w.append(walKindAdd, payload)
}

// AppendTombstone appends a deletion marker for an external ID.
func (w *WAL) AppendTombstone(id string) error {
	return w.append(walKindTombstone, []byte(id))
}

func (w *WAL) append(kind byte, payload []byte) error {
	var header [1 + binary.MaxVarintLen64]byte
	header[0] = kind
	n := binary.PutUvarint(header[1:], uint64(len(payload)))

	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc32.ChecksumIEEE(payload))

	record := make([]byte, 0, 1+n+len(payload)+4)
	record = append(record, header[:1+n]...)
	record = append(record, payload...)
	record = append(record, crcBuf[:]...)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.f.Write(record); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "appending wal record", err)
	}
	w.size += int64(len(record))
	return nil
}

// Sync flushes the log to stable storage.
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.f.Sync(); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "syncing wal", err)
	}
	return nil
}

// Close closes the underlying file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// ReplayHandler receives each valid record during replay.
type ReplayHandler struct {
	OnAdd       func(doc *Document) error
	OnTombstone func(id string) error
}

// Replay reads the log from the start and dispatches every complete,
// checksum-valid record. An incomplete tail record is discarded and
// the file truncated to the last valid offset. A checksum mismatch in
// the middle of the log is an error.
func (w *WAL) Replay(h ReplayHandler) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "seeking wal", err)
	}

	data, err := io.ReadAll(w.f)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "reading wal", err)
	}

	offset := 0
	validEnd := 0
	for offset < len(data) {
		rest := data[offset:]
		if len(rest) < 2 {
			break
		}
		kind := rest[0]
		payloadLen, n := binary.Uvarint(rest[1:])
		if n <= 0 {
			break
		}
		recordLen := 1 + n + int(payloadLen) + 4
		if len(rest) < recordLen {
			// Torn tail from an interrupted write.
			break
		}

		payload := rest[1+n : 1+n+int(payloadLen)]
		want := binary.LittleEndian.Uint32(rest[1+n+int(payloadLen) : recordLen])
		if crc32.ChecksumIEEE(payload) != want {
			if offset+recordLen >= len(data) {
				// Tail corruption is truncated like a torn record.
				break
			}
			return apperrors.Wrap(apperrors.CodeStorageError, "replaying wal", ErrCorrupt)
		}

		switch kind {
		case walKindAdd:
			doc, err := UnmarshalDocument(payload)
			if err != nil {
				return err
			}
			if h.OnAdd != nil {
				if err := h.OnAdd(doc); err != nil {
					return err
				}
			}
		case walKindTombstone:
			if h.OnTombstone != nil {
				if err := h.OnTombstone(string(payload)); err != nil {
					return err
				}
			}
		default:
			return apperrors.Wrap(apperrors.CodeStorageError, "replaying wal", ErrCorrupt)
		}

		offset += recordLen
		validEnd = offset
	}

	if int64(validEnd) < w.size {
		if err := w.f.Truncate(int64(validEnd)); err != nil {
			return apperrors.Wrap(apperrors.CodeStorageError, "truncating wal tail", err)
		}
		w.size = int64(validEnd)
	}
	if _, err := w.f.Seek(0, io.SeekEnd); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "seeking wal end", err)
	}
	return nil
}
