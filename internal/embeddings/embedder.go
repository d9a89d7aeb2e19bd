// Package embeddings turns text into vectors for the vector store.
package embeddings

import "context"

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector size, or 0 when the model is not known.
	Dimensions() int

	// Name identifies the embedding model.
	Name() string
}
