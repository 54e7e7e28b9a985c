// Package retrieve defines the shared types for first-stage retrieval.
//
// Retrievers score documents against a query and return the top-k hits
// ordered by descending score. Document identifiers are dense uint32
// ordinals assigned at indexing time; the mapping back to external IDs
// lives in the index layer.
package retrieve

import "sort"

// Hit is a single retrieval result.
type Hit struct {
	Doc   uint32
	Score float64
}

// SortHits orders hits by descending score, breaking ties by ascending
// document ordinal so results are deterministic.
func SortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Doc < hits[j].Doc
	})
}

// TopK sorts hits and truncates to at most k entries. A k of zero or
// less returns an empty slice.
func TopK(hits []Hit, k int) []Hit {
	if k <= 0 {
		return nil
	}
	SortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
