package config

import (
	"path/filepath"
	"time"
)

// DefaultConfigFile is read when --config is not given.
const DefaultConfigFile = ".litreview.yml"

// KeylessPlaceholder is sent as the API key to local OpenAI-compatible
// servers that do not check it.
const KeylessPlaceholder = "API_KEY_IS_NOT_NEEDED"

// DefaultConfig returns a Config with sensible defaults: both services on
// localhost, an embedded vector store, and bge-m3 / qwen2.5:7b served by a
// local OpenAI-compatible endpoint.
func DefaultConfig() *Config {
	return &Config{
		Log:     LogConfig{Mode: "development"},
		DataDir: ".litreview",
		Algo: AlgoConfig{
			Host:           "0.0.0.0",
			Port:           8001,
			RequestTimeout: 120 * time.Second,
			MaxUploadMB:    64,
		},
		Backend: BackendConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			AllowedOrigins: []string{"http://localhost:3000"},
			RequestTimeout: 180 * time.Second,
			AlgoURL:        "http://localhost:8001",
			AlgoTimeout:    120 * time.Second,
			MaxUploadMB:    64,
			TokenTTL:       30 * time.Minute,
		},
		VectorDB: VectorDBConfig{
			Backend:   VectorChromem,
			ChromaURL: "http://localhost:8010",
			Timeout:   30 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider: ProviderOpenAI,
			Model:    "bge-m3",
			BaseURL:  "http://localhost:11434/v1",
			Timeout:  60 * time.Second,
		},
		LLM: LLMConfig{
			Provider: ProviderOpenAI,
			Model:    "qwen2.5:7b",
			BaseURL:  "http://localhost:11434/v1",
			Timeout:  120 * time.Second,
		},
		RAG: RAGConfig{
			ChunkWords:  1000,
			NResults:    5,
			Concurrency: 4,
		},
		Export: ExportConfig{
			PDFCommand: []string{"wkhtmltopdf", "--quiet", "-", "-"},
		},
	}
}

// VectorPath returns the chromem persistence directory.
func (c *Config) VectorPath() string {
	if c.VectorDB.Path != "" {
		return c.VectorDB.Path
	}
	return filepath.Join(c.DataDir, "vectors")
}

// DatabasePath returns the SQLite database file of the document service.
func (c *Config) DatabasePath() string {
	if c.Backend.DatabasePath != "" {
		return c.Backend.DatabasePath
	}
	return filepath.Join(c.DataDir, "litreview.db")
}

// UploadDir returns where uploaded files are stored.
func (c *Config) UploadDir() string {
	if c.Backend.UploadDir != "" {
		return c.Backend.UploadDir
	}
	return filepath.Join(c.DataDir, "uploads")
}
