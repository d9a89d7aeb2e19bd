package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Algo.Port != 8001 {
		t.Errorf("expected algo port 8001, got %d", cfg.Algo.Port)
	}
	if cfg.Backend.Port != 8000 {
		t.Errorf("expected backend port 8000, got %d", cfg.Backend.Port)
	}
	if cfg.Embedding.Model != "bge-m3" || cfg.LLM.Model != "qwen2.5:7b" {
		t.Errorf("unexpected default models %q / %q", cfg.Embedding.Model, cfg.LLM.Model)
	}
	if cfg.VectorDB.Backend != VectorChromem {
		t.Errorf("expected chromem backend, got %q", cfg.VectorDB.Backend)
	}
	if cfg.Algo.SerializeWrites {
		t.Error("serialize_writes should default to off")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.litreview.yml")

	original := DefaultConfig()
	original.VectorDB.Backend = VectorChroma
	original.LLM.Model = "llama3"
	original.LLM.Temperature = 0.3
	original.Backend.TokenTTL = 2 * time.Hour
	original.Backend.AllowedOrigins = []string{"http://a", "http://b"}
	original.RAG.ChunkWords = 250

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.VectorDB.Backend != VectorChroma {
		t.Errorf("vectordb.backend: got %q", loaded.VectorDB.Backend)
	}
	if loaded.LLM.Model != "llama3" || loaded.LLM.Temperature != 0.3 {
		t.Errorf("llm: got %+v", loaded.LLM)
	}
	if loaded.Backend.TokenTTL != 2*time.Hour {
		t.Errorf("token_ttl: got %v", loaded.Backend.TokenTTL)
	}
	if len(loaded.Backend.AllowedOrigins) != 2 || loaded.Backend.AllowedOrigins[1] != "http://b" {
		t.Errorf("allowed_origins: got %v", loaded.Backend.AllowedOrigins)
	}
	if loaded.RAG.ChunkWords != 250 {
		t.Errorf("chunk_words: got %d", loaded.RAG.ChunkWords)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yml"))
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Algo.Port != 8001 {
		t.Errorf("expected defaults, got algo port %d", cfg.Algo.Port)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yml")
	if err := os.WriteFile(path, []byte("llm:\n  model: mistral\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Model != "mistral" {
		t.Errorf("llm.model: got %q", cfg.LLM.Model)
	}
	if cfg.LLM.BaseURL != "http://localhost:11434/v1" || cfg.Embedding.Model != "bge-m3" {
		t.Errorf("defaults lost: %+v %+v", cfg.LLM, cfg.Embedding)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yml")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("LITREVIEW_LLM__MODEL", "phi3")
	t.Setenv("LITREVIEW_DATA_DIR", "/var/lib/litreview")
	t.Setenv("LITREVIEW_ALGO__SERIALIZE_WRITES", "true")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.LLM.Model != "phi3" {
		t.Errorf("env override failed: got %q", loaded.LLM.Model)
	}
	if loaded.DataDir != "/var/lib/litreview" {
		t.Errorf("data_dir: got %q", loaded.DataDir)
	}
	if !loaded.Algo.SerializeWrites {
		t.Error("serialize_writes override failed")
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"LITREVIEW_LLM__MODEL":          "llm.model",
		"LITREVIEW_DATA_DIR":            "data_dir",
		"LITREVIEW_BACKEND__JWT_SECRET": "backend.jwt_secret",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig should be valid, got: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log mode", func(c *Config) { c.Log.Mode = "loud" }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"algo port", func(c *Config) { c.Algo.Port = 0 }},
		{"backend port", func(c *Config) { c.Backend.Port = 70000 }},
		{"vector backend", func(c *Config) { c.VectorDB.Backend = "faiss" }},
		{"chroma without url", func(c *Config) { c.VectorDB.Backend = VectorChroma; c.VectorDB.ChromaURL = "" }},
		{"embedding provider", func(c *Config) { c.Embedding.Provider = "cohere" }},
		{"empty llm model", func(c *Config) { c.LLM.Model = "" }},
		{"negative rpm", func(c *Config) { c.LLM.RequestsPerMinute = -1 }},
		{"negative chunk words", func(c *Config) { c.RAG.ChunkWords = -5 }},
		{"negative upload", func(c *Config) { c.Backend.MaxUploadMB = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/data"
	if got := cfg.VectorPath(); got != filepath.Join("/data", "vectors") {
		t.Errorf("VectorPath = %q", got)
	}
	if got := cfg.DatabasePath(); got != filepath.Join("/data", "litreview.db") {
		t.Errorf("DatabasePath = %q", got)
	}
	cfg.Backend.UploadDir = "/uploads"
	if got := cfg.UploadDir(); got != "/uploads" {
		t.Errorf("UploadDir = %q", got)
	}
}

func TestAPIKey(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "")
	if got := APIKey(); got != KeylessPlaceholder {
		t.Errorf("APIKey() = %q, want placeholder", got)
	}
	t.Setenv(APIKeyEnvVar, "sk-test")
	if got := APIKey(); got != "sk-test" {
		t.Errorf("APIKey() = %q", got)
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"http://localhost:3000", []string{"http://localhost:3000"}},
		{"", nil},
		{"  ,  , ", nil},
	}
	for _, tt := range tests {
		got := splitAndTrim(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitAndTrim(%q) len = %d, want %d", tt.input, len(got), len(tt.want))
			continue
		}
		for i, v := range got {
			if v != tt.want[i] {
				t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
			}
		}
	}
}
