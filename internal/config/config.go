// Package config loads litreview settings from defaults, a YAML file and
// LITREVIEW_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix marks environment overrides. A double underscore separates
// nesting levels: LITREVIEW_LLM__MODEL sets llm.model.
const EnvPrefix = "LITREVIEW_"

// APIKeyEnvVar holds the key for OpenAI-compatible endpoints.
const APIKeyEnvVar = "OPENAI_API_KEY"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
}

var validBackends = map[VectorBackend]bool{
	VectorChromem: true,
	VectorChroma:  true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Log.Mode != "development" && c.Log.Mode != "production" {
		return fmt.Errorf("invalid log.mode %q: must be development or production", c.Log.Mode)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	for name, port := range map[string]int{"algo.port": c.Algo.Port, "backend.port": c.Backend.Port} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%s must be between 1 and 65535", name)
		}
	}
	if c.Algo.MaxUploadMB < 0 || c.Backend.MaxUploadMB < 0 {
		return fmt.Errorf("max_upload_mb must be non-negative")
	}
	if c.Backend.AlgoURL == "" {
		return fmt.Errorf("backend.algo_url is required")
	}

	if !validBackends[c.VectorDB.Backend] {
		return fmt.Errorf("invalid vectordb.backend %q: must be chromem or chroma", c.VectorDB.Backend)
	}
	if c.VectorDB.Backend == VectorChroma && c.VectorDB.ChromaURL == "" {
		return fmt.Errorf("vectordb.chroma_url is required for the chroma backend")
	}

	if !validProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding.provider %q: must be openai or ollama", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid llm.provider %q: must be openai or ollama", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.RequestsPerMinute < 0 || c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.requests_per_minute and llm.max_tokens must be non-negative")
	}

	if c.RAG.ChunkWords < 0 || c.RAG.NResults < 0 || c.RAG.Concurrency < 0 {
		return fmt.Errorf("rag values must be non-negative")
	}

	return nil
}

// APIKey returns the key from the environment, or a placeholder accepted by
// keyless local servers.
func APIKey() string {
	if k := os.Getenv(APIKeyEnvVar); k != "" {
		return k
	}
	return KeylessPlaceholder
}
