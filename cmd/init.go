package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/litreview/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a litreview configuration with an interactive wizard",
	Long:  `Asks for the model server, models and vector store, and writes them to the config file (.litreview.yml unless --config is given).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
