package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore.
type RunStore struct {
	mu       sync.RWMutex
	runs     map[string]domain.RunRecord
	order    []string
	outcomes map[string]map[string]domain.DocumentOutcome
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs:     make(map[string]domain.RunRecord),
		outcomes: make(map[string]map[string]domain.DocumentOutcome),
	}
}

// SaveRun stores or updates a run record.
func (s *RunStore) SaveRun(_ context.Context, run domain.RunRecord) error {
	if run.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		s.order = append(s.order, run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

// SaveOutcome stores one document outcome for a run.
func (s *RunStore) SaveOutcome(_ context.Context, outcome domain.DocumentOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[outcome.RunID]; !ok {
		return domain.ErrNotFound
	}
	byDoc, ok := s.outcomes[outcome.RunID]
	if !ok {
		byDoc = make(map[string]domain.DocumentOutcome)
		s.outcomes[outcome.RunID] = byDoc
	}
	byDoc[outcome.DocumentID] = outcome
	return nil
}

// LatestRun returns the most recently started run.
func (s *RunStore) LatestRun(ctx context.Context) (*domain.RunRecord, error) {
	runs, _ := s.ListRuns(ctx, 1)
	if len(runs) == 0 {
		return nil, domain.ErrNotFound
	}
	return &runs[0], nil
}

// ListRuns returns up to limit runs, newest first.
func (s *RunStore) ListRuns(_ context.Context, limit int) ([]domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]domain.RunRecord, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		runs = append(runs, s.runs[s.order[i]])
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Outcomes returns every document outcome for a run, ordered by path.
func (s *RunStore) Outcomes(_ context.Context, runID string) ([]domain.DocumentOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.DocumentOutcome, 0, len(s.outcomes[runID]))
	for _, o := range s.outcomes[runID] {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
