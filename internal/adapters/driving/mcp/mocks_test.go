package mcp

import (
	"context"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
)

// mockSearchService implements driving.SearchService for testing.
type mockSearchService struct {
	results   []domain.SearchResult
	err       error
	lastQuery string
	lastLimit int
}

func (m *mockSearchService) Search(
	_ context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastLimit = opts.Limit
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

// mockIngestionService implements driving.IngestionService for testing.
type mockIngestionService struct {
	removed int
	err     error
	resetID string
}

func (m *mockIngestionService) Ingest(
	_ context.Context, _ driven.DocumentSource, _ chan<- domain.ProgressEvent,
) (*domain.Summary, error) {
	return &domain.Summary{}, nil
}

func (m *mockIngestionService) IngestPaths(
	_ context.Context, _ driven.DocumentSource, _ []string, _ chan<- domain.ProgressEvent,
) (*domain.Summary, error) {
	return &domain.Summary{}, nil
}

func (m *mockIngestionService) Reset(_ context.Context, documentID string) (int, error) {
	m.resetID = documentID
	return m.removed, m.err
}

func (m *mockIngestionService) ResetAll(_ context.Context) error {
	return m.err
}

// mockRunHistory implements driving.RunHistoryService for testing.
type mockRunHistory struct {
	run      *domain.RunRecord
	outcomes []domain.DocumentOutcome
	runs     []domain.RunRecord
	err      error
}

func (m *mockRunHistory) LatestRun(_ context.Context) (*domain.RunRecord, []domain.DocumentOutcome, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	if m.run == nil {
		return nil, nil, domain.ErrNotFound
	}
	return m.run, m.outcomes, nil
}

func (m *mockRunHistory) ListRuns(_ context.Context, _ int) ([]domain.RunRecord, error) {
	return m.runs, m.err
}
