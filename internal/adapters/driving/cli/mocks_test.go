package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/pflag"

	"github.com/custodia-labs/fiches/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
)

// --- Mock implementations ---

type mockSearchService struct {
	results   []domain.SearchResult
	err       error
	lastQuery string
	lastOpts  domain.SearchOptions
	calls     int
}

func (m *mockSearchService) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.calls++
	m.lastQuery = query
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

type mockIngestionService struct {
	events     []domain.ProgressEvent
	summary    *domain.Summary
	err        error
	resetCount int
	resetErr   error
	resetID    string
	resetAll   bool
}

func (m *mockIngestionService) Ingest(
	_ context.Context, _ driven.DocumentSource, events chan<- domain.ProgressEvent,
) (*domain.Summary, error) {
	for _, ev := range m.events {
		events <- ev
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.summary == nil {
		return &domain.Summary{}, nil
	}
	return m.summary, nil
}

func (m *mockIngestionService) IngestPaths(
	ctx context.Context, source driven.DocumentSource, _ []string, events chan<- domain.ProgressEvent,
) (*domain.Summary, error) {
	return m.Ingest(ctx, source, events)
}

func (m *mockIngestionService) Reset(_ context.Context, documentID string) (int, error) {
	m.resetID = documentID
	return m.resetCount, m.resetErr
}

func (m *mockIngestionService) ResetAll(_ context.Context) error {
	m.resetAll = true
	return m.resetErr
}

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

func (m *mockRunHistory) ListRuns(_ context.Context, limit int) ([]domain.RunRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

type mockSource struct {
	id          string
	validateErr error
	closed      bool
}

func (m *mockSource) Type() string                     { return "mock" }
func (m *mockSource) SourceID() string                 { return m.id }
func (m *mockSource) Validate(_ context.Context) error { return m.validateErr }
func (m *mockSource) Close() error {
	m.closed = true
	return nil
}

func (m *mockSource) Documents(_ context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error)
	close(docs)
	close(errs)
	return docs, errs
}

func (m *mockSource) Fetch(_ context.Context, _ string) (domain.RawDocument, error) {
	return domain.RawDocument{}, domain.ErrNotFound
}

// testEnv holds the mocks installed by setupTestServices.
type testEnv struct {
	search    *mockSearchService
	ingestion *mockIngestionService
	runs      *mockRunHistory
	source    *mockSource
	store     *memory.ConfigStore
	spec      SourceSpec
	built     *domain.Settings
}

// setupTestServices installs mocks behind the service builder and restores
// the package state when the test ends.
func setupTestServices(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		search:    &mockSearchService{},
		ingestion: &mockIngestionService{},
		runs:      &mockRunHistory{},
		source:    &mockSource{id: "file:///fiches"},
		store:     memory.NewConfigStore(),
	}

	prevSettings, prevStore, prevBuilder := settings, configStore, builder
	Configure(domain.DefaultSettings(), env.store, func(_ context.Context, s domain.Settings) (*Services, error) {
		env.built = &s
		return &Services{
			Ingestion: env.ingestion,
			Search:    env.search,
			Runs:      env.runs,
			Source: func(_ context.Context, spec SourceSpec) (driven.DocumentSource, error) {
				env.spec = spec
				return env.source, nil
			},
		}, nil
	})
	resetFlags()

	t.Cleanup(func() {
		Configure(prevSettings, prevStore, prevBuilder)
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return env
}

// resetFlags clears flag values left over by earlier executions.
func resetFlags() {
	queryTopK, queryJSON, queryBars = 0, false, true
	ingestWorkers, ingestBatchSize = 0, 0
	ingestReset, ingestWatch = false, false
	ingestS3Prefix, ingestFailedReport = "", ""
	resetAll = false
	statusFailures, statusHistory = false, 0
	interactivePlain = false
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}
