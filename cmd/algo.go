package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/litreview/internal/algoapi"
	"github.com/ziadkadry99/litreview/internal/server"
)

var algoCmd = &cobra.Command{
	Use:   "algo",
	Short: "Start the algorithm service",
	Long: `Starts the algorithm service: embeddings, vector collections, similarity
queries, chat and section generation, and document processing over HTTP.`,
	RunE: runAlgo,
}

func init() {
	algoCmd.Flags().Int("port", 0, "listen port (overrides algo.port)")
	rootCmd.AddCommand(algoCmd)
}

func runAlgo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Algo.Port = port
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	stack, err := buildRAG(cfg, log, true)
	if err != nil {
		return err
	}
	defer stack.store.Close()

	srv := server.New(server.Config{
		Name:           "algo",
		Host:           cfg.Algo.Host,
		Port:           cfg.Algo.Port,
		AllowedOrigins: cfg.Algo.AllowedOrigins,
		AllowAll:       len(cfg.Algo.AllowedOrigins) == 0,
		RequestTimeout: cfg.Algo.RequestTimeout,
	}, log)

	algoapi.RegisterRoutes(srv.Router(), algoapi.RoutesDeps{
		Store:          stack.store,
		Embedder:       stack.embedder,
		Retriever:      stack.retriever,
		Generator:      stack.generator,
		Processor:      stack.processor,
		MaxUploadBytes: cfg.Algo.MaxUploadMB << 20,
		Log:            log,
	})

	log.Info("algorithm service starting",
		"version", Version,
		"addr", srv.Addr(),
		"vector_backend", cfg.VectorDB.Backend,
		"embedding_model", cfg.Embedding.Model,
		"llm_model", cfg.LLM.Model,
	)
	return runServer(srv, log)
}
