package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/litreview/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "litreview",
	Short: "Retrieval-augmented literature review writing",
	Long: `litreview indexes research papers (PDF, LaTeX source archives, HTML)
into a vector store and drafts literature review sections grounded on them.
It runs the algorithm service, the document service for the web editor,
and an MCP server for AI agents.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
