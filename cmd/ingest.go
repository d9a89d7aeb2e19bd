package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/litreview/internal/algoapi"
	"github.com/ziadkadry99/litreview/internal/extract"
	"github.com/ziadkadry99/litreview/internal/progress"
	"github.com/ziadkadry99/litreview/internal/rag"
	"github.com/ziadkadry99/litreview/internal/walker"
)

// defaultIngestInclude matches every file type the extractor understands.
var defaultIngestInclude = []string{"**/*.pdf", "**/*.zip", "**/*.html", "**/*.htm"}

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index a directory of papers into a collection",
	Long: `Walks a directory, extracts the text of every PDF, LaTeX source archive
and HTML page, splits it into chunks and stores them in a vector collection.
Files with identical content are indexed once.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringP("collection", "c", algoapi.DefaultCollection, "target collection")
	ingestCmd.Flags().Int("concurrency", 0, "files processed in parallel (overrides rag.concurrency)")
	ingestCmd.Flags().StringSlice("include", nil, "glob patterns to include (default: pdf, zip, html)")
	ingestCmd.Flags().StringSlice("exclude", nil, "glob patterns to exclude")
	ingestCmd.Flags().Bool("gitignore", true, "honour a .gitignore in the directory")
	rootCmd.AddCommand(ingestCmd)
}

type ingestFailure struct {
	path string
	err  error
}

func runIngest(cmd *cobra.Command, args []string) error {
	collection, _ := cmd.Flags().GetString("collection")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	include, _ := cmd.Flags().GetStringSlice("include")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	gitignore, _ := cmd.Flags().GetBool("gitignore")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency <= 0 {
		concurrency = cfg.RAG.Concurrency
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if len(include) == 0 {
		include = defaultIngestInclude
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	files, err := walker.Walk(walker.Config{
		RootDir:   args[0],
		Include:   include,
		Exclude:   exclude,
		Gitignore: gitignore,
		Hash:      true,
	})
	if err != nil {
		return err
	}
	files = uniqueFiles(files, func(skipped, kept walker.FileInfo, reason string) {
		log.Info("skipping file", "path", skipped.RelPath, "reason", reason, "kept", kept.RelPath)
	})
	if len(files) == 0 {
		fmt.Println("No supported files found.")
		return nil
	}

	stack, err := buildRAG(cfg, log, false)
	if err != nil {
		return err
	}
	defer stack.store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := progress.NewReporter("Indexing papers")
	reporter.Start(len(files))

	var (
		done     atomic.Int64
		chunks   atomic.Int64
		mu       sync.Mutex
		failures []ingestFailure
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, f := range files {
		g.Go(func() error {
			res, err := stack.processor.ProcessFile(gctx, f.Path, extract.TypeForExtension(f.Path), collection)
			if err != nil {
				mu.Lock()
				failures = append(failures, ingestFailure{path: f.RelPath, err: err})
				mu.Unlock()
				log.Warn("indexing failed", "path", f.RelPath, "error", err)
			} else {
				chunks.Add(int64(res.Chunks))
			}
			reporter.Update(int(done.Add(1)), f.RelPath)
			// Per-file failures do not stop the run; cancellation does.
			return gctx.Err()
		})
	}
	waitErr := g.Wait()
	reporter.Finish()

	fmt.Printf("Indexed %d of %d file(s) into %q (%d chunks).\n",
		len(files)-len(failures), len(files), collection, chunks.Load())
	for _, f := range failures {
		fmt.Fprintf(os.Stderr, "  failed: %s: %v\n", f.path, f.err)
	}
	if waitErr != nil {
		return fmt.Errorf("ingest interrupted: %w", waitErr)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d file(s) could not be indexed", len(failures))
	}
	return nil
}

// uniqueFiles drops files whose content hash or source stem was already
// seen; a repeated stem would overwrite the earlier file's chunks.
func uniqueFiles(files []walker.FileInfo, onSkip func(skipped, kept walker.FileInfo, reason string)) []walker.FileInfo {
	byHash := make(map[string]walker.FileInfo, len(files))
	byStem := make(map[string]walker.FileInfo, len(files))
	out := files[:0:0]
	for _, f := range files {
		if kept, ok := byHash[f.ContentHash]; ok && f.ContentHash != "" {
			onSkip(f, kept, "identical content")
			continue
		}
		stem := rag.SourceStem(f.RelPath)
		if kept, ok := byStem[stem]; ok {
			onSkip(f, kept, "same source name")
			continue
		}
		byHash[f.ContentHash] = f
		byStem[stem] = f
		out = append(out, f)
	}
	return out
}
