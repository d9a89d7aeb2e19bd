package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const maxBatchSize = 100

// knownDimensions lists vector sizes for common models. Unknown models report 0.
var knownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"bge-m3":                 1024,
	"nomic-embed-text":       768,
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. Pointing
// baseURL at a local server (Ollama, vLLM, LM Studio) works the same way.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates an embedder. An empty baseURL uses api.openai.com
// and a zero timeout leaves requests unbounded.
func NewOpenAIEmbedder(apiKey, model, baseURL string, timeout time.Duration) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (e *OpenAIEmbedder) Name() string {
	return e.model
}

func (e *OpenAIEmbedder) Dimensions() int {
	return knownDimensions[e.model]
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += maxBatchSize {
		batch := texts[i:min(i+maxBatchSize, len(texts))]

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("embedding endpoint returned %d vectors, expected %d", len(resp.Data), len(batch))
		}

		// The API may return items out of order; Index is authoritative.
		vecs := make([][]float32, len(batch))
		for _, emb := range resp.Data {
			if emb.Index < 0 || emb.Index >= len(batch) {
				return nil, fmt.Errorf("embedding index %d out of range", emb.Index)
			}
			vecs[emb.Index] = emb.Embedding
		}
		all = append(all, vecs...)
	}

	return all, nil
}
