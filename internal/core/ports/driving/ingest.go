package driving

import (
	"context"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
)

// IngestionService drives batch ingestion and reset operations.
type IngestionService interface {
	// Ingest processes every document the source lists.
	// One ProgressEvent is sent on events per document; events may be nil.
	// The caller owns events and must keep draining it until Ingest returns.
	// Per-document failures are reported in the summary, not as an error.
	Ingest(ctx context.Context, source driven.DocumentSource, events chan<- domain.ProgressEvent) (*domain.Summary, error)

	// IngestPaths processes only the given paths relative to the source root.
	IngestPaths(
		ctx context.Context,
		source driven.DocumentSource,
		paths []string,
		events chan<- domain.ProgressEvent,
	) (*domain.Summary, error)

	// Reset deletes every stored fragment of a document so it can be re-ingested.
	// Returns the number of fragments removed.
	Reset(ctx context.Context, documentID string) (int, error)

	// ResetAll deletes every stored fragment.
	ResetAll(ctx context.Context) error
}

// RunHistoryService exposes persisted ingestion runs.
type RunHistoryService interface {
	// LatestRun returns the most recent run and its document outcomes.
	LatestRun(ctx context.Context) (*domain.RunRecord, []domain.DocumentOutcome, error)

	// ListRuns returns up to limit runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)
}
