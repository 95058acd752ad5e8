package driven

import (
	"context"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

// RunStore persists ingestion run history.
type RunStore interface {
	// SaveRun stores or updates a run record.
	SaveRun(ctx context.Context, run domain.RunRecord) error

	// SaveOutcome stores one document outcome for a run.
	SaveOutcome(ctx context.Context, outcome domain.DocumentOutcome) error

	// LatestRun returns the most recently started run.
	// Returns domain.ErrNotFound when no run exists.
	LatestRun(ctx context.Context) (*domain.RunRecord, error)

	// ListRuns returns up to limit runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)

	// Outcomes returns every document outcome for a run.
	Outcomes(ctx context.Context, runID string) ([]domain.DocumentOutcome, error)
}
