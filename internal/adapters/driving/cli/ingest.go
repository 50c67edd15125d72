package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

var (
	ingestBatchSize int
	ingestResume    bool
	ingestRebuild   bool
	ingestPattern   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Index documents for retrieval",
	Long: `Loads each document, splits it into overlapping chunks, embeds them and
stores them in the vector index of the configured embedding model.

Directories are scanned recursively for supported files. Chunks are
committed in batches, so an interrupted run keeps everything indexed so
far. Re-running without --resume appends duplicates; use --resume to
continue after a failure, or --rebuild to start from an empty index.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVarP(&ingestBatchSize, "batch-size", "b", 0,
		fmt.Sprintf("chunks per batch (default %d)", domain.DefaultBatchSize))
	ingestCmd.Flags().BoolVar(&ingestResume, "resume", false, "skip chunks already in the index")
	ingestCmd.Flags().BoolVar(&ingestRebuild, "rebuild", false, "clear the index before ingesting")
	ingestCmd.Flags().StringVar(&ingestPattern, "pattern", "", "file pattern for directories, e.g. '**/*.pdf'")
	ingestCmd.MarkFlagsMutuallyExclusive("resume", "rebuild")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return notConfigured("ingest service")
	}

	total := &domain.IngestionReport{}
	rebuild := ingestRebuild
	for _, path := range args {
		progress := newIngestProgress(cmd.OutOrStdout())
		opts := driving.IngestOptions{
			BatchSize: ingestBatchSize,
			Resume:    ingestResume,
			Rebuild:   rebuild,
			Pattern:   ingestPattern,
			Progress:  progress.update,
		}

		cmd.Printf("Ingesting %s\n", path)
		report, err := ingestService.Ingest(cmd.Context(), path, opts)
		progress.finish()
		if err != nil {
			var batchErr *domain.BatchError
			if errors.As(err, &batchErr) {
				cmd.Printf("Stopped at batch %d/%d with %d chunks indexed.\n",
					batchErr.Batch, batchErr.TotalBatches, batchErr.ChunksIndexed)
				cmd.Println("Committed batches are kept; re-run with --resume to continue.")
			}
			return fmt.Errorf("ingest %s: %w", path, err)
		}

		printIngestReport(cmd, report)
		total.Add(report)
		// Later paths append to the index the first one rebuilt.
		rebuild = false
	}

	if len(args) > 1 {
		cmd.Printf("Total: %d chunks indexed from %d paths\n", total.ChunksIndexed, len(args))
	}
	return nil
}

func printIngestReport(cmd *cobra.Command, r *domain.IngestionReport) {
	switch {
	case r.ChunksCreated == 0:
		cmd.Printf("No text found in %s\n", r.Source)
	case r.ChunksSkipped > 0:
		cmd.Printf("Indexed %d chunks (%d already indexed) in %s\n",
			r.ChunksIndexed, r.ChunksSkipped, r.Duration.Round(time.Millisecond))
	default:
		cmd.Printf("Indexed %d chunks in %d batches in %s\n",
			r.ChunksIndexed, r.BatchesCommitted, r.Duration.Round(time.Millisecond))
	}
}

// ingestProgress draws a progress bar on terminals and prints one line per
// batch elsewhere.
type ingestProgress struct {
	out io.Writer
	tty bool
	bar *progressbar.ProgressBar
}

func newIngestProgress(out io.Writer) *ingestProgress {
	return &ingestProgress{out: out, tty: isTerminal(out)}
}

func (p *ingestProgress) update(ev domain.IngestProgress) {
	if !p.tty {
		fmt.Fprintf(p.out, "Processed %d/%d chunks...\n", ev.ChunksIndexed, ev.TotalChunks)
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(ev.TotalChunks,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("Embedding"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(p.out) }),
		)
	}
	_ = p.bar.Set(ev.ChunksIndexed)
}

func (p *ingestProgress) finish() {
	if p.bar != nil && !p.bar.IsFinished() {
		_ = p.bar.Exit()
		fmt.Fprintln(p.out)
	}
}
