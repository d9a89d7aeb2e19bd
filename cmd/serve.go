package cmd

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/litreview/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing collection
listing, semantic search and section generation tools to AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
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

		mcpserver.Version = Version
		log.Info("MCP server started on stdio", "vector_backend", cfg.VectorDB.Backend)

		srv := mcpserver.NewServer(stack.store, stack.retriever, stack.generator)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
