// Package rag holds the retrieval-augmented generation core: indexing
// chunks into collections, retrieving neighbours and generating text.
package rag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ziadkadry99/litreview/internal/logging"
	"github.com/ziadkadry99/litreview/internal/vectordb"
)

// StatusSuccess and StatusError are the values of IndexResult.Status.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// IndexResult is returned after a document has been indexed.
type IndexResult struct {
	Status     string `json:"status"`
	Chunks     int    `json:"chunks"`
	Collection string `json:"collection"`
	Message    string `json:"message,omitempty"`
}

// Indexer writes chunks into a named collection.
type Indexer struct {
	store  vectordb.Store
	policy CollectionPolicy
	locks  *keyedMutex
	log    *logging.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithPolicy overrides DefaultPolicy.
func WithPolicy(p CollectionPolicy) IndexerOption {
	return func(ix *Indexer) { ix.policy = p }
}

// WithSerializedWrites makes concurrent Index calls on the same collection
// run one at a time within this process.
func WithSerializedWrites() IndexerOption {
	return func(ix *Indexer) { ix.locks = newKeyedMutex() }
}

// WithIndexerLogger sets the logger.
func WithIndexerLogger(l *logging.Logger) IndexerOption {
	return func(ix *Indexer) { ix.log = l }
}

func NewIndexer(store vectordb.Store, opts ...IndexerOption) *Indexer {
	ix := &Indexer{store: store, policy: DefaultPolicy, log: logging.NewNop()}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// SourceStem derives the chunk ID prefix from a filename: the base name
// without its final extension.
func SourceStem(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ChunkID is the stable identifier of chunk i of a source.
func ChunkID(stem string, i int) string {
	return fmt.Sprintf("%s_%d", stem, i)
}

// Index stores chunks under IDs {stem}_{i} with source metadata. Writes
// are not rolled back if the store fails part way.
func (ix *Indexer) Index(ctx context.Context, collection, stem string, chunks []string) (*IndexResult, error) {
	if strings.TrimSpace(collection) == "" {
		return nil, &ValidationError{Field: "collection", Message: "is required"}
	}
	if ix.locks != nil {
		unlock := ix.locks.Lock(collection)
		defer unlock()
	}

	if err := ix.ensureCollection(ctx, collection); err != nil {
		return nil, err
	}

	if len(chunks) > 0 {
		docs := make([]vectordb.Document, len(chunks))
		for i, c := range chunks {
			docs[i] = vectordb.Document{
				ID:       ChunkID(stem, i),
				Content:  c,
				Metadata: map[string]any{"source": stem, "chunk_index": i},
			}
		}
		if err := ix.store.Add(ctx, collection, docs); err != nil {
			return nil, fmt.Errorf("adding %d chunks to %s: %w", len(docs), collection, err)
		}
	}

	ix.log.Info("indexed document", "collection", collection, "source", stem, "chunks", len(chunks))
	return &IndexResult{Status: StatusSuccess, Chunks: len(chunks), Collection: collection}, nil
}

func (ix *Indexer) ensureCollection(ctx context.Context, name string) error {
	_, getErr := ix.store.GetCollection(ctx, name)
	if getErr == nil {
		return nil
	}
	if !ix.policy.CreateOnWrite {
		return getErr
	}
	if !errors.Is(getErr, vectordb.ErrCollectionNotFound) {
		ix.log.Warn("collection lookup failed, attempting create", "collection", name, "error", getErr)
	}

	_, err := ix.store.CreateCollection(ctx, name, nil)
	if err == nil || errors.Is(err, vectordb.ErrCollectionExists) {
		return nil
	}
	return fmt.Errorf("creating collection %s: %w", name, err)
}
