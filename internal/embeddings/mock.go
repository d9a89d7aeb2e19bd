package embeddings

import (
	"context"
	"math"
)

// MockEmbedder returns deterministic unit vectors derived from the text's
// characters, so texts sharing characters land near each other. It is used
// by tests across packages.
type MockEmbedder struct {
	Dims int
	Err  error
}

func NewMockEmbedder(dims int) *MockEmbedder {
	return &MockEmbedder{Dims: dims}
}

func (m *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.vector(text)
	}
	return out, nil
}

func (m *MockEmbedder) Dimensions() int { return m.Dims }
func (m *MockEmbedder) Name() string    { return "mock" }

func (m *MockEmbedder) vector(text string) []float32 {
	vec := make([]float32, m.Dims)
	for i, ch := range text {
		vec[(int(ch)+i)%m.Dims] += 1
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
