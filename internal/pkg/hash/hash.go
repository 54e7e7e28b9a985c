// Package hash provides hashing utilities for documents and index segments.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/minio/highwayhash"
)

var hhKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// SHA256 computes the SHA256 hash of data and returns it as a hex string.
func SHA256(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SHA256String computes the SHA256 hash of a string.
func SHA256String(s string) string {
	return SHA256([]byte(s))
}

// SHA256Short returns the first n characters of a SHA256 hash.
func SHA256Short(data []byte, n int) string {
	h := SHA256(data)
	if n > len(h) {
		return h
	}
	return h[:n]
}

// Content64 computes a fast 64-bit content hash used for segment
// fingerprints and change detection.
func Content64(data []byte) (uint64, error) {
	h, err := highwayhash.New64(hhKey)
	if err != nil {
		return 0, err
	}
	if _, err := h.Write(data); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// DocumentID generates a deterministic document ID from the document's
// external ID and content hash.
func DocumentID(externalID, contentHash string) string {
	return SHA256Short([]byte(externalID+":"+contentHash), 16)
}

// SegmentID generates a deterministic segment ID from a corpus name and
// the segment's ordinal.
func SegmentID(corpus string, ordinal int) string {
	return SHA256Short([]byte(fmt.Sprintf("%s:%d", corpus, ordinal)), 16)
}
