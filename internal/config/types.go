package config

import "time"

// VectorBackend selects the vector store implementation.
type VectorBackend string

const (
	VectorChromem VectorBackend = "chromem"
	VectorChroma  VectorBackend = "chroma"
)

// ProviderType identifies an embedding or chat backend. ProviderOpenAI covers
// any OpenAI-compatible endpoint.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// Config is the top-level litreview configuration, corresponding to
// .litreview.yml.
type Config struct {
	Log       LogConfig       `yaml:"log" koanf:"log"`
	DataDir   string          `yaml:"data_dir" koanf:"data_dir"`
	Algo      AlgoConfig      `yaml:"algo" koanf:"algo"`
	Backend   BackendConfig   `yaml:"backend" koanf:"backend"`
	VectorDB  VectorDBConfig  `yaml:"vectordb" koanf:"vectordb"`
	Embedding EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	LLM       LLMConfig       `yaml:"llm" koanf:"llm"`
	RAG       RAGConfig       `yaml:"rag" koanf:"rag"`
	Export    ExportConfig    `yaml:"export" koanf:"export"`
}

// LogConfig selects the zap encoder. Mode is "development" or "production".
type LogConfig struct {
	Mode    string `yaml:"mode" koanf:"mode"`
	Verbose bool   `yaml:"verbose" koanf:"verbose"`
}

// AlgoConfig configures the algorithm service.
type AlgoConfig struct {
	Host           string        `yaml:"host" koanf:"host"`
	Port           int           `yaml:"port" koanf:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins" koanf:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout" koanf:"request_timeout"`
	MaxUploadMB    int64         `yaml:"max_upload_mb" koanf:"max_upload_mb"`
	// SerializeWrites takes a per-collection lock around index writes.
	SerializeWrites bool `yaml:"serialize_writes" koanf:"serialize_writes"`
}

// BackendConfig configures the document service.
type BackendConfig struct {
	Host           string        `yaml:"host" koanf:"host"`
	Port           int           `yaml:"port" koanf:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins" koanf:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout" koanf:"request_timeout"`
	AlgoURL        string        `yaml:"algo_url" koanf:"algo_url"`
	AlgoTimeout    time.Duration `yaml:"algo_timeout" koanf:"algo_timeout"`
	DatabasePath   string        `yaml:"database_path" koanf:"database_path"`
	UploadDir      string        `yaml:"upload_dir" koanf:"upload_dir"`
	MaxUploadMB    int64         `yaml:"max_upload_mb" koanf:"max_upload_mb"`
	JWTSecret      string        `yaml:"jwt_secret" koanf:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl" koanf:"token_ttl"`
}

// VectorDBConfig selects and configures the vector store.
type VectorDBConfig struct {
	Backend VectorBackend `yaml:"backend" koanf:"backend"`
	// Path is the chromem persistence directory; empty means
	// <data_dir>/vectors.
	Path      string        `yaml:"path" koanf:"path"`
	ChromaURL string        `yaml:"chroma_url" koanf:"chroma_url"`
	Tenant    string        `yaml:"tenant" koanf:"tenant"`
	Database  string        `yaml:"database" koanf:"database"`
	Timeout   time.Duration `yaml:"timeout" koanf:"timeout"`
}

// EmbeddingConfig configures the embedding model.
type EmbeddingConfig struct {
	Provider ProviderType  `yaml:"provider" koanf:"provider"`
	Model    string        `yaml:"model" koanf:"model"`
	BaseURL  string        `yaml:"base_url" koanf:"base_url"`
	Timeout  time.Duration `yaml:"timeout" koanf:"timeout"`
}

// LLMConfig configures the chat model used for generation.
type LLMConfig struct {
	Provider          ProviderType  `yaml:"provider" koanf:"provider"`
	Model             string        `yaml:"model" koanf:"model"`
	BaseURL           string        `yaml:"base_url" koanf:"base_url"`
	Timeout           time.Duration `yaml:"timeout" koanf:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	MaxTokens         int           `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature       float64       `yaml:"temperature" koanf:"temperature"`
	SystemPrompt      string        `yaml:"system_prompt" koanf:"system_prompt"`
}

// RAGConfig tunes chunking and retrieval.
type RAGConfig struct {
	ChunkWords int `yaml:"chunk_words" koanf:"chunk_words"`
	NResults   int `yaml:"n_results" koanf:"n_results"`
	// Concurrency bounds parallel file processing in `litreview ingest`.
	Concurrency int `yaml:"concurrency" koanf:"concurrency"`
}

// ExportConfig configures document export.
type ExportConfig struct {
	// PDFCommand reads HTML on stdin and writes a PDF to stdout.
	PDFCommand []string `yaml:"pdf_command" koanf:"pdf_command"`
}
