package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ziadkadry99/litreview/internal/vectordb"
)

// QueryResponse holds one list per query text, items ordered by ascending
// distance.
type QueryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float32        `json:"distances"`
}

// Retriever answers similarity queries against existing collections.
type Retriever struct {
	store  vectordb.Store
	policy CollectionPolicy
}

func NewRetriever(store vectordb.Store, policy CollectionPolicy) *Retriever {
	return &Retriever{store: store, policy: policy}
}

// Query runs req against collection. A missing collection is an error
// unless the policy allows creating it on read.
func (r *Retriever) Query(ctx context.Context, collection string, req vectordb.QueryRequest) (*QueryResponse, error) {
	if strings.TrimSpace(collection) == "" {
		return nil, &ValidationError{Field: "collection_name", Message: "is required"}
	}
	if len(req.QueryTexts) == 0 {
		return nil, &ValidationError{Field: "query_texts", Message: "at least one query text is required"}
	}
	if req.NResults <= 0 {
		req.NResults = vectordb.DefaultNResults
	}

	if _, err := r.store.GetCollection(ctx, collection); err != nil {
		if !r.policy.CreateOnRead || !errors.Is(err, vectordb.ErrCollectionNotFound) {
			return nil, err
		}
		if _, err := r.store.CreateCollection(ctx, collection, nil); err != nil && !errors.Is(err, vectordb.ErrCollectionExists) {
			return nil, fmt.Errorf("creating collection %s: %w", collection, err)
		}
	}

	results, err := r.store.Query(ctx, collection, req)
	if err != nil {
		return nil, err
	}

	resp := &QueryResponse{
		IDs:       make([][]string, len(req.QueryTexts)),
		Documents: make([][]string, len(req.QueryTexts)),
		Metadatas: make([][]map[string]any, len(req.QueryTexts)),
		Distances: make([][]float32, len(req.QueryTexts)),
	}
	for q := range req.QueryTexts {
		var items []vectordb.QueryResult
		if q < len(results) {
			items = results[q]
		}
		sort.SliceStable(items, func(a, b int) bool { return items[a].Distance < items[b].Distance })
		if len(items) > req.NResults {
			items = items[:req.NResults]
		}
		resp.IDs[q] = make([]string, len(items))
		resp.Documents[q] = make([]string, len(items))
		resp.Metadatas[q] = make([]map[string]any, len(items))
		resp.Distances[q] = make([]float32, len(items))
		for i, it := range items {
			resp.IDs[q][i] = it.ID
			resp.Documents[q][i] = it.Content
			resp.Metadatas[q][i] = it.Metadata
			resp.Distances[q][i] = it.Distance
		}
	}
	return resp, nil
}

// JoinContext concatenates the documents retrieved for the first query,
// separated by blank lines.
func JoinContext(resp *QueryResponse) string {
	if resp == nil || len(resp.Documents) == 0 {
		return ""
	}
	return strings.Join(resp.Documents[0], "\n\n")
}
