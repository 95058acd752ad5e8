package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
	"github.com/custodia-labs/fiches/internal/core/ports/driving"
)

// Ensure RunHistoryService implements the interface.
var _ driving.RunHistoryService = (*RunHistoryService)(nil)

// RunHistoryService reads the run ledger.
type RunHistoryService struct {
	store driven.RunStore
}

// NewRunHistoryService creates a run history service.
// A nil store reports no runs.
func NewRunHistoryService(store driven.RunStore) *RunHistoryService {
	return &RunHistoryService{store: store}
}

// LatestRun returns the most recent run and its document outcomes.
func (s *RunHistoryService) LatestRun(ctx context.Context) (*domain.RunRecord, []domain.DocumentOutcome, error) {
	if s.store == nil {
		return nil, nil, domain.ErrNotFound
	}
	run, err := s.store.LatestRun(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("latest run: %w", err)
	}
	outcomes, err := s.store.Outcomes(ctx, run.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("outcomes for run %s: %w", run.ID, err)
	}
	return run, outcomes, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *RunHistoryService) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
