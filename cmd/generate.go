package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/litreview/internal/algoapi"
	"github.com/ziadkadry99/litreview/internal/algoclient"
	"github.com/ziadkadry99/litreview/internal/rag"
	"github.com/ziadkadry99/litreview/internal/vectordb"
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Draft a review section from indexed papers",
	Long: `Retrieves the chunks closest to the topic (the prompt by default) from a
collection and asks the chat model to write a section that follows the
prompt, grounded on them.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringP("collection", "c", algoapi.DefaultCollection, "collection to retrieve context from")
	generateCmd.Flags().String("topic", "", "text used for retrieval (default: the prompt)")
	generateCmd.Flags().Int("related", algoclient.DefaultRelated, "number of chunks used as context")
	generateCmd.Flags().Bool("show-context", false, "print the retrieved context to stderr")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	prompt := args[0]

	collection, _ := cmd.Flags().GetString("collection")
	topic, _ := cmd.Flags().GetString("topic")
	related, _ := cmd.Flags().GetInt("related")
	showContext, _ := cmd.Flags().GetBool("show-context")
	if topic == "" {
		topic = prompt
	}

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

	var retrieved string
	resp, err := stack.retriever.Query(ctx, collection, vectordb.QueryRequest{QueryTexts: []string{topic}, NResults: related})
	switch {
	case err == nil:
		retrieved = rag.JoinContext(resp)
	case errors.Is(err, vectordb.ErrCollectionNotFound):
		log.Warn("collection not found, generating without context", "collection", collection)
	default:
		return fmt.Errorf("retrieving context: %w", err)
	}
	if showContext {
		fmt.Fprintf(os.Stderr, "--- context ---\n%s\n---------------\n", retrieved)
	}

	content, err := stack.generator.Generate(ctx, prompt, retrieved)
	if err != nil {
		return err
	}
	fmt.Println(content)
	return nil
}
