package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

const defaultSearchLimit = 20

// HybridSearch queries the dense and sparse vectors with server-side
// RRF fusion. At least one of the two query vectors must be set.
func (c *Client) HybridSearch(ctx context.Context, collection string, req SearchRequest) ([]SearchResult, error) {
	prefetchLimit := req.PrefetchLimit
	if prefetchLimit == 0 {
		prefetchLimit = 100
	}

	prefetch := make([]*qdrant.PrefetchQuery, 0, 2)
	if len(req.SparseIndices) > 0 && len(req.SparseValues) > 0 {
		prefetch = append(prefetch, &qdrant.PrefetchQuery{
			Query:  qdrant.NewQuerySparse(req.SparseIndices, req.SparseValues),
			Using:  qdrant.PtrOf("sparse"),
			Limit:  qdrant.PtrOf(prefetchLimit),
			Filter: buildSearchFilter(req.Filter),
		})
	}
	if len(req.DenseVector) > 0 {
		prefetch = append(prefetch, &qdrant.PrefetchQuery{
			Query:  qdrant.NewQueryDense(req.DenseVector),
			Using:  qdrant.PtrOf("dense"),
			Limit:  qdrant.PtrOf(prefetchLimit),
			Filter: buildSearchFilter(req.Filter),
		})
	}
	if len(prefetch) == 0 {
		return nil, fmt.Errorf("hybrid search needs a sparse or dense query vector")
	}

	query := &qdrant.QueryPoints{
		Prefetch: prefetch,
		Query:    qdrant.NewQueryFusion(qdrant.Fusion_RRF),
	}
	return c.runQuery(ctx, collection, query, req, "hybrid")
}

// DenseSearch queries the dense vector only.
func (c *Client) DenseSearch(ctx context.Context, collection string, req SearchRequest) ([]SearchResult, error) {
	if len(req.DenseVector) == 0 {
		return nil, fmt.Errorf("dense search needs a query vector")
	}

	query := &qdrant.QueryPoints{
		Query:  qdrant.NewQueryDense(req.DenseVector),
		Using:  qdrant.PtrOf("dense"),
		Filter: buildSearchFilter(req.Filter),
	}
	return c.runQuery(ctx, collection, query, req, "dense")
}

// SparseSearch queries the sparse vector only.
func (c *Client) SparseSearch(ctx context.Context, collection string, req SearchRequest) ([]SearchResult, error) {
	if len(req.SparseIndices) == 0 || len(req.SparseValues) == 0 {
		return nil, fmt.Errorf("sparse search needs query indices and values")
	}

	query := &qdrant.QueryPoints{
		Query:  qdrant.NewQuerySparse(req.SparseIndices, req.SparseValues),
		Using:  qdrant.PtrOf("sparse"),
		Filter: buildSearchFilter(req.Filter),
	}
	return c.runQuery(ctx, collection, query, req, "sparse")
}

// runQuery fills in the shared query fields and executes it.
func (c *Client) runQuery(ctx context.Context, collection string, query *qdrant.QueryPoints, req SearchRequest, kind string) ([]SearchResult, error) {
	ctx, cancel, err := c.opContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	limit := req.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}

	query.CollectionName = c.qualify(collection)
	query.Limit = qdrant.PtrOf(limit)
	query.WithPayload = qdrant.NewWithPayload(req.WithPayload)
	query.ScoreThreshold = req.ScoreThreshold

	points, err := c.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s search: %w", kind, err)
	}
	return scoredPointsToResults(points), nil
}

// buildSearchFilter builds a Qdrant filter from SearchFilter. A nil or
// empty filter yields nil, which Qdrant treats as match-all.
func buildSearchFilter(f *SearchFilter) *qdrant.Filter {
	if f == nil {
		return nil
	}

	var conditions []*qdrant.Condition
	if f.Corpus != "" {
		conditions = append(conditions, keywordCondition("corpus", f.Corpus))
	}
	if f.ExternalID != "" {
		conditions = append(conditions, keywordCondition("external_id", f.ExternalID))
	}
	if f.ContentHash != "" {
		conditions = append(conditions, keywordCondition("content_hash", f.ContentHash))
	}

	if len(conditions) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: conditions}
}

func scoredPointsToResults(points []*qdrant.ScoredPoint) []SearchResult {
	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		var id string
		switch v := p.Id.PointIdOptions.(type) {
		case *qdrant.PointId_Uuid:
			id = v.Uuid
		case *qdrant.PointId_Num:
			id = fmt.Sprintf("%d", v.Num)
		}

		results = append(results, SearchResult{
			ID:      id,
			Score:   p.Score,
			Payload: extractPayload(p.Payload),
		})
	}
	return results
}

// extractPayload reads the mirrored document fields from a Qdrant
// payload map, tolerating missing keys.
func extractPayload(payload map[string]*qdrant.Value) PointPayload {
	result := PointPayload{
		Corpus:      payloadString(payload, "corpus"),
		ExternalID:  payloadString(payload, "external_id"),
		Content:     payloadString(payload, "content"),
		ContentHash: payloadString(payload, "content_hash"),
	}

	if v := payloadString(payload, "indexed_at"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			result.IndexedAt = t
		}
	}
	return result
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		if sv, ok := v.Kind.(*qdrant.Value_StringValue); ok {
			return sv.StringValue
		}
	}
	return ""
}
