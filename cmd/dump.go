package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/litreview/internal/walker"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [dir]",
	Short: "Print every text file under a directory",
	Long: `Prints "<path>:" followed by the content of every UTF-8 text file under
dir. Dependency, editor and build directories (node_modules, .git, venv,
.vscode, .nuxt, .output) are skipped, as are binary files.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := walker.Dump(os.Stdout, args[0])
		if err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "%d file(s) dumped\n", n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
