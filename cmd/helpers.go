package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/ziadkadry99/litreview/internal/chunker"
	"github.com/ziadkadry99/litreview/internal/config"
	"github.com/ziadkadry99/litreview/internal/embeddings"
	"github.com/ziadkadry99/litreview/internal/extract"
	"github.com/ziadkadry99/litreview/internal/llm"
	"github.com/ziadkadry99/litreview/internal/logging"
	"github.com/ziadkadry99/litreview/internal/rag"
	"github.com/ziadkadry99/litreview/internal/server"
	"github.com/ziadkadry99/litreview/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `litreview init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	log, err := logging.New(cfg.Log.Mode, verbose || cfg.Log.Verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return log, nil
}

// createEmbedder builds the embedder selected by the embedding section.
func createEmbedder(cfg *config.Config) embeddings.Embedder {
	e := cfg.Embedding
	if e.Provider == config.ProviderOllama {
		return embeddings.NewOllamaEmbedder(e.Model, e.BaseURL, e.Timeout)
	}
	return embeddings.NewOpenAIEmbedder(config.APIKey(), e.Model, e.BaseURL, e.Timeout)
}

func createLLMProvider(cfg *config.Config) (llm.Provider, error) {
	return llm.NewProvider(llm.ProviderConfig{
		Type:              string(cfg.LLM.Provider),
		Model:             cfg.LLM.Model,
		BaseURL:           cfg.LLM.BaseURL,
		APIKey:            config.APIKey(),
		Timeout:           cfg.LLM.Timeout,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	})
}

// openVectorStore opens the configured backend. The embedded store is
// persisted under the data directory.
func openVectorStore(cfg *config.Config, log *logging.Logger, embedder embeddings.Embedder) (vectordb.Store, error) {
	if cfg.VectorDB.Backend == config.VectorChroma {
		store, err := vectordb.NewChromaStore(log, vectordb.ChromaConfig{
			URL:      cfg.VectorDB.ChromaURL,
			Tenant:   cfg.VectorDB.Tenant,
			Database: cfg.VectorDB.Database,
			Timeout:  cfg.VectorDB.Timeout,
		}, embedder)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	dir := cfg.VectorPath()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating vector dir %s: %w", dir, err)
	}
	store, err := vectordb.NewChromemStore(embedder, dir)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// ragStack is everything needed to index and answer against the vector store.
type ragStack struct {
	store     vectordb.Store
	embedder  embeddings.Embedder
	retriever *rag.Retriever
	generator *rag.Generator
	processor *rag.Processor
}

// buildRAG wires the store, embedder and pipeline. withLLM=false skips the
// chat provider for commands that never generate.
func buildRAG(cfg *config.Config, log *logging.Logger, withLLM bool) (*ragStack, error) {
	embedder := createEmbedder(cfg)
	store, err := openVectorStore(cfg, log, embedder)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	opts := []rag.IndexerOption{rag.WithPolicy(rag.DefaultPolicy), rag.WithIndexerLogger(log)}
	if cfg.Algo.SerializeWrites {
		opts = append(opts, rag.WithSerializedWrites())
	}
	chunkWords := cfg.RAG.ChunkWords
	if chunkWords <= 0 {
		chunkWords = chunker.DefaultMaxWords
	}

	s := &ragStack{
		store:     store,
		embedder:  embedder,
		retriever: rag.NewRetriever(store, rag.DefaultPolicy),
		processor: rag.NewProcessor(extract.New(), rag.NewIndexer(store, opts...), chunkWords),
	}

	if withLLM {
		provider, err := createLLMProvider(cfg)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("creating LLM provider: %w", err)
		}
		s.generator = rag.NewGenerator(provider, rag.GeneratorConfig{
			Model:        cfg.LLM.Model,
			SystemPrompt: cfg.LLM.SystemPrompt,
			MaxTokens:    cfg.LLM.MaxTokens,
			Temperature:  cfg.LLM.Temperature,
		})
	}
	return s, nil
}

// runServer starts srv and shuts it down gracefully on SIGINT/SIGTERM.
func runServer(srv *server.Server, log *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info("shutting down", "addr", srv.Addr())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	return srv.Start()
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}
