package config

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// modelPresets suggests chat and embedding models per provider.
var modelPresets = map[ProviderType]struct {
	Model          string
	EmbeddingModel string
	BaseURL        string
}{
	ProviderOpenAI: {Model: "qwen2.5:7b", EmbeddingModel: "bge-m3", BaseURL: "http://localhost:11434/v1"},
	ProviderOllama: {Model: "qwen2.5:7b", EmbeddingModel: "bge-m3", BaseURL: "http://localhost:11434"},
}

// RunWizard asks for the essential settings and saves a starter
// configuration to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to litreview! Let's configure your workspace.")
	fmt.Println()

	cfg := DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Model backend",
		Items: []string{"openai (any OpenAI-compatible endpoint)", "ollama (native API)"},
	}
	providerIdx, _, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	provider := []ProviderType{ProviderOpenAI, ProviderOllama}[providerIdx]
	preset := modelPresets[provider]

	baseURL, err := ask("Model server base URL", preset.BaseURL)
	if err != nil {
		return nil, err
	}
	model, err := ask("Chat model", preset.Model)
	if err != nil {
		return nil, err
	}
	embeddingModel, err := ask("Embedding model", preset.EmbeddingModel)
	if err != nil {
		return nil, err
	}

	backendPrompt := promptui.Select{
		Label: "Vector store",
		Items: []string{"chromem (embedded, stored under the data dir)", "chroma (remote server)"},
	}
	backendIdx, _, err := backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("vector store selection: %w", err)
	}
	cfg.VectorDB.Backend = []VectorBackend{VectorChromem, VectorChroma}[backendIdx]
	if cfg.VectorDB.Backend == VectorChroma {
		if cfg.VectorDB.ChromaURL, err = ask("Chroma URL", cfg.VectorDB.ChromaURL); err != nil {
			return nil, err
		}
	}

	if cfg.DataDir, err = ask("Data directory", cfg.DataDir); err != nil {
		return nil, err
	}
	origins, err := ask("Allowed browser origins (comma-separated)", strings.Join(cfg.Backend.AllowedOrigins, ","))
	if err != nil {
		return nil, err
	}
	cfg.Backend.AllowedOrigins = splitAndTrim(origins)

	cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.BaseURL = provider, model, baseURL
	cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.BaseURL = provider, embeddingModel, baseURL

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	fmt.Printf("Set %s if your model server needs a key, and %sBACKEND__JWT_SECRET before running the backend.\n", APIKeyEnvVar, EnvPrefix)
	return cfg, nil
}

func ask(label, def string) (string, error) {
	p := promptui.Prompt{Label: label, Default: def}
	v, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("%s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(v), nil
}

// splitAndTrim splits a comma-separated string and drops empty items.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
