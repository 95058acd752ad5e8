package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

// setupTestStore creates a store in a temporary directory.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "fiches-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

func testRun(id string, started time.Time) domain.RunRecord {
	return domain.RunRecord{
		ID:             id,
		Source:         "/data/fiches",
		StartedAt:      started,
		FinishedAt:     started.Add(90 * time.Second),
		Attempted:      5,
		Succeeded:      4,
		Failed:         1,
		TotalFragments: 42,
	}
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.Equal(t, "runs.db", filepath.Base(store.Path()))
	assert.FileExists(t, store.Path())
}

func TestNewStore_MigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.SaveRun(context.Background(), testRun("run-1", time.Now())))
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	run, err := second.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
}

func TestRunStore_SaveAndLatest(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.SaveRun(ctx, testRun("older", now.Add(-time.Hour))))
	require.NoError(t, store.SaveRun(ctx, testRun("newer", now)))

	latest, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "newer", latest.ID)
	assert.Equal(t, 4, latest.Succeeded)
	assert.Equal(t, 42, latest.TotalFragments)
	assert.WithinDuration(t, now, latest.StartedAt, time.Millisecond)
	assert.WithinDuration(t, now.Add(90*time.Second), latest.FinishedAt, time.Millisecond)
}

func TestRunStore_LatestRun_Empty(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	run, err := store.LatestRun(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, run)
}

func TestRunStore_SaveRun_Update(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	run := domain.RunRecord{ID: "run-1", Source: "/data", StartedAt: time.Now()}
	require.NoError(t, store.SaveRun(ctx, run))

	run.Succeeded = 3
	run.Aborted = true
	run.FinishedAt = run.StartedAt.Add(time.Minute)
	require.NoError(t, store.SaveRun(ctx, run))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].Succeeded)
	assert.True(t, runs[0].Aborted)
	assert.False(t, runs[0].FinishedAt.IsZero())
}

func TestRunStore_SaveRun_InvalidInput(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.SaveRun(context.Background(), domain.RunRecord{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRunStore_ListRuns_Limit(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.SaveRun(ctx, testRun(id, base.Add(time.Duration(i)*time.Minute))))
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestRunStore_Outcomes(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, testRun("run-1", time.Now())))

	ok := domain.DocumentOutcome{
		RunID:      "run-1",
		DocumentID: "doc-a",
		Path:       "a/levure.pdf",
		Status:     domain.StatusDone,
		Fragments:  7,
		Warnings:   []string{"page 2: low-confidence text (ocr)"},
		Elapsed:    1500 * time.Millisecond,
	}
	failed := domain.DocumentOutcome{
		RunID:      "run-1",
		DocumentID: "doc-b",
		Path:       "b/sel.pdf",
		Status:     domain.StatusFailed,
		Stage:      domain.StageEmbedding,
		Cause:      "embedding service error: connection refused",
	}
	require.NoError(t, store.SaveOutcome(ctx, ok))
	require.NoError(t, store.SaveOutcome(ctx, failed))

	outcomes, err := store.Outcomes(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, ok, outcomes[0])
	assert.Equal(t, domain.StageEmbedding, outcomes[1].Stage)
	assert.Equal(t, failed.Cause, outcomes[1].Cause)
	assert.Nil(t, outcomes[1].Warnings)
}

func TestRunStore_SaveOutcome_RequiresRun(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.SaveOutcome(context.Background(), domain.DocumentOutcome{
		RunID:      "missing",
		DocumentID: "doc",
		Path:       "doc.pdf",
		Status:     domain.StatusDone,
	})
	assert.Error(t, err)
}

func TestRunStore_Outcomes_UnknownRun(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	outcomes, err := store.Outcomes(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}
