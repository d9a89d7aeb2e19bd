// Package vectordb stores chunk embeddings in named collections and answers
// nearest-neighbour queries over them.
package vectordb

import "context"

// Store is a collection-oriented vector store. Implementations must be safe
// for concurrent use.
type Store interface {
	// GetCollection returns the named collection or a *CollectionNotFoundError.
	GetCollection(ctx context.Context, name string) (*CollectionInfo, error)

	// CreateCollection creates an empty collection. It fails with
	// ErrCollectionExists if the name is taken.
	CreateCollection(ctx context.Context, name string, metadata map[string]any) (*CollectionInfo, error)

	// ListCollections returns all collections ordered by name.
	ListCollections(ctx context.Context) ([]CollectionInfo, error)

	// DeleteCollection drops a collection and everything in it.
	DeleteCollection(ctx context.Context, name string) error

	// Add writes documents; an existing ID is overwritten where the backend allows it.
	Add(ctx context.Context, collection string, docs []Document) error

	// Query returns, for each query text, up to NResults items ordered by
	// ascending distance.
	Query(ctx context.Context, collection string, req QueryRequest) ([][]QueryResult, error)

	// Get returns stored documents by ID and/or metadata filter.
	Get(ctx context.Context, collection string, req GetRequest) ([]Document, error)

	// Delete removes documents by ID and/or metadata filter.
	Delete(ctx context.Context, collection string, ids []string, where map[string]any) error

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, collection string) (int, error)

	// Heartbeat checks that the backend is reachable.
	Heartbeat(ctx context.Context) error

	Close() error
}
