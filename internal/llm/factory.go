package llm

import (
	"fmt"
	"time"
)

// ProviderConfig selects and configures a Provider.
type ProviderConfig struct {
	// Type is "openai" (any OpenAI-compatible endpoint) or "ollama".
	Type              string
	Model             string
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerMinute int
}

// NewProvider builds the provider described by cfg, wrapped in a rate
// limiter when RequestsPerMinute is positive.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	var p Provider
	switch cfg.Type {
	case "openai", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("an API key is required for the openai provider")
		}
		p = NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout)
	case "ollama":
		base := cfg.BaseURL
		if base == "" {
			base = "http://localhost:11434"
		}
		p = NewOllamaProvider(base, cfg.Model, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Type)
	}

	if cfg.RequestsPerMinute > 0 {
		p = NewRateLimitedProvider(p, cfg.RequestsPerMinute)
	}
	return p, nil
}
