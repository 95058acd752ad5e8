package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
	"github.com/custodia-labs/fiches/internal/core/ports/driving"
	coreservices "github.com/custodia-labs/fiches/internal/core/services"
)

var (
	ingestWorkers      int
	ingestBatchSize    int
	ingestReset        bool
	ingestWatch        bool
	ingestS3Prefix     string
	ingestFailedReport string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Ingest the data sheets of a directory or S3 bucket",
	Long: `Extracts text from every supported document, splits it into fragments,
embeds the fragments and stores them, replacing earlier fragments of the
same document.

A document that fails is reported and the batch continues. Documents that
failed are listed in the failed-document report. Interrupting the command
lets running documents finish their current step, then skips everything
that has not been stored.

With --s3-prefix the configured S3 bucket is read instead of a directory.
With --watch the command keeps running and re-ingests changed files.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVarP(&ingestWorkers, "workers", "w", 0, "documents processed in parallel (0 = configured value)")
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 0, "fragments per embedding call (0 = configured value)")
	ingestCmd.Flags().BoolVar(&ingestReset, "reset", false, "delete every stored fragment before ingesting")
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "keep running and re-ingest changed files")
	ingestCmd.Flags().StringVar(&ingestS3Prefix, "s3-prefix", "", "read the configured S3 bucket under this key prefix")
	ingestCmd.Flags().StringVar(&ingestFailedReport, "failed-report", "", "path of the failed-document report (default from config)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	spec := SourceSpec{Dir: ".", S3Prefix: ingestS3Prefix, UseS3: cmd.Flags().Changed("s3-prefix")}
	if len(args) > 0 {
		if spec.UseS3 {
			return errors.New("give either a directory or --s3-prefix, not both")
		}
		spec.Dir = args[0]
	}
	if ingestWatch && spec.UseS3 {
		return errors.New("--watch is only supported for directories")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := services(ctx, func(s *domain.Settings) {
		if ingestWorkers > 0 {
			s.Ingest.Workers = ingestWorkers
		}
		if ingestBatchSize > 0 {
			s.Ingest.BatchSize = ingestBatchSize
		}
	})
	if err != nil {
		return err
	}
	if svc.Ingestion == nil || svc.Source == nil {
		return errors.New("ingestion service not configured")
	}

	source, err := svc.Source(ctx, spec)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer func() { _ = source.Close() }()

	if err := source.Validate(ctx); err != nil {
		return fmt.Errorf("source %s: %w", source.SourceID(), err)
	}

	if ingestReset {
		if err := svc.Ingestion.ResetAll(ctx); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		cmd.Println("Index vidé.")
	}

	cmd.Printf("Ingestion de %s\n", source.SourceID())
	summary, err := ingestWithProgress(cmd.OutOrStdout(), func(events chan<- domain.ProgressEvent) (*domain.Summary, error) {
		return svc.Ingestion.Ingest(ctx, source, events)
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	renderSummary(cmd.OutOrStdout(), summary)

	reportPath := ingestFailedReport
	if reportPath == "" {
		reportPath = settings.Ingest.FailedReport
	}
	if len(summary.Failed) > 0 && reportPath != "" {
		if err := writeFailedReport(reportPath, summary.Failed); err != nil {
			return err
		}
		cmd.Printf("Documents en échec listés dans %s\n", reportPath)
	}

	if summary.Aborted {
		return fmt.Errorf("ingestion interrupted: %w", domain.ErrBatchAborted)
	}

	if ingestWatch {
		return watch(ctx, cmd, svc.Ingestion, source)
	}
	return nil
}

// ingestWithProgress runs fn while printing one line per finished document.
func ingestWithProgress(
	w io.Writer,
	fn func(events chan<- domain.ProgressEvent) (*domain.Summary, error),
) (*domain.Summary, error) {
	events := make(chan domain.ProgressEvent)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range events {
			fmt.Fprintln(w, renderProgress(ev))
		}
	}()

	summary, err := fn(events)
	close(events)
	wg.Wait()
	return summary, err
}

// writeFailedReport lists failed documents, sorted by path, with their stage and cause.
func writeFailedReport(path string, failed []domain.DocumentResult) error {
	sorted := make([]domain.DocumentResult, len(failed))
	copy(sorted, failed)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Document.Path < sorted[j].Document.Path })

	var b strings.Builder
	b.WriteString("# Documents en échec\n")
	fmt.Fprintf(&b, "# Total : %d\n\n", len(sorted))
	for _, r := range sorted {
		fmt.Fprintf(&b, "%s\t%s\t%v\n", r.Document.Path, r.Stage(), domain.Cause(r.Err))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing failed report: %w", err)
	}
	return nil
}

// watch re-ingests changed files until the context ends.
func watch(ctx context.Context, cmd *cobra.Command, ingestion driving.IngestionService, source driven.DocumentSource) error {
	ws, ok := source.(driven.WatchableSource)
	if !ok {
		return fmt.Errorf("source %s cannot be watched", source.SourceID())
	}

	cmd.Println("Surveillance des modifications (Ctrl+C pour arrêter)...")
	w := coreservices.NewWatcher(ingestion, ws, coreservices.DefaultDebounce, func(s *domain.Summary, err error) {
		if err != nil {
			cmd.PrintErrf("re-ingestion failed: %v\n", err)
			return
		}
		cmd.Printf("Ré-ingestion : %d traités, %d en échec, %d ignorés\n", s.Succeeded, len(s.Failed), len(s.Skipped))
	})
	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
