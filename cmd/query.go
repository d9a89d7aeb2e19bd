package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/litreview/internal/algoapi"
	"github.com/ziadkadry99/litreview/internal/vectordb"
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Search a collection of indexed papers",
	Long:  `Embeds the query text and prints the closest chunks of a collection with their source and distance.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringP("collection", "c", algoapi.DefaultCollection, "collection to search")
	queryCmd.Flags().Int("limit", 0, "maximum number of results (default rag.n_results)")
	queryCmd.Flags().String("source", "", "only return chunks of this source file stem")
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	collection, _ := cmd.Flags().GetString("collection")
	limit, _ := cmd.Flags().GetInt("limit")
	source, _ := cmd.Flags().GetString("source")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if limit <= 0 {
		limit = cfg.RAG.NResults
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	stack, err := buildRAG(cfg, log, false)
	if err != nil {
		return err
	}
	defer stack.store.Close()

	req := vectordb.QueryRequest{QueryTexts: []string{args[0]}, NResults: limit}
	if source != "" {
		req.Where = map[string]any{"source": source}
	}

	resp, err := stack.retriever.Query(ctx, collection, req)
	if errors.Is(err, vectordb.ErrCollectionNotFound) {
		return fmt.Errorf("collection %q does not exist\nRun `litreview ingest <dir> --collection %s` first", collection, collection)
	}
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	printQueryResults(resp.IDs[0], resp.Documents[0], resp.Metadatas[0], resp.Distances[0])
	return nil
}

func printQueryResults(ids, docs []string, metas []map[string]any, distances []float32) {
	if len(ids) == 0 {
		fmt.Println("No results found.")
		return
	}
	fmt.Printf("Found %d results:\n\n", len(ids))
	for i := range ids {
		fmt.Printf("  %d. [%.4f] %s", i+1, distances[i], ids[i])
		if src, ok := metas[i]["source"]; ok {
			fmt.Printf(" (source: %v)", src)
		}
		fmt.Printf("\n     %s\n\n", truncate(docs[i], 160))
	}
}
