package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

func failedResult(path string, stage domain.Stage, cause error) domain.DocumentResult {
	doc := domain.NewDocument("file:///fiches", path, "application/pdf", []byte(path))
	return domain.DocumentResult{
		Document: doc,
		Status:   domain.StatusFailed,
		Err:      domain.NewStageError(stage, doc.ID, cause),
	}
}

func TestIngestCmd_PrintsProgressAndSummary(t *testing.T) {
	env := setupTestServices(t)
	env.ingestion.events = []domain.ProgressEvent{
		{Name: "a.pdf", Status: domain.StatusDone, Fragments: 4, Completed: 1, Total: 2},
		{Name: "b.txt", Status: domain.StatusSkipped, Completed: 2, Total: 2},
	}
	env.ingestion.summary = &domain.Summary{
		Attempted: 1, Succeeded: 1, TotalFragments: 4,
		Skipped: []domain.DocumentResult{{Status: domain.StatusSkipped}},
	}

	out, err := execute(t, "ingest", "docs")

	require.NoError(t, err)
	assert.Equal(t, "docs", env.spec.Dir)
	assert.False(t, env.spec.UseS3)
	assert.Contains(t, out, "Ingestion de file:///fiches")
	assert.Contains(t, out, "[1/2] ✓ a.pdf (4 fragments")
	assert.Contains(t, out, "[2/2] ⊘ b.txt")
	assert.Contains(t, out, "Documents traités  : 1")
	assert.True(t, env.source.closed)
	assert.False(t, env.ingestion.resetAll)
}

func TestIngestCmd_OverridesWorkersAndBatchSize(t *testing.T) {
	env := setupTestServices(t)

	_, err := execute(t, "ingest", "-w", "6", "--batch-size", "16", ".")

	require.NoError(t, err)
	require.NotNil(t, env.built)
	assert.Equal(t, 6, env.built.Ingest.Workers)
	assert.Equal(t, 16, env.built.Ingest.BatchSize)
}

func TestIngestCmd_Reset(t *testing.T) {
	env := setupTestServices(t)

	out, err := execute(t, "ingest", "--reset", ".")

	require.NoError(t, err)
	assert.True(t, env.ingestion.resetAll)
	assert.Contains(t, out, "Index vidé.")
}

func TestIngestCmd_S3Prefix(t *testing.T) {
	env := setupTestServices(t)

	_, err := execute(t, "ingest", "--s3-prefix", "fiches/2024/")

	require.NoError(t, err)
	assert.True(t, env.spec.UseS3)
	assert.Equal(t, "fiches/2024/", env.spec.S3Prefix)
}

func TestIngestCmd_DirAndS3Conflict(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "ingest", "--s3-prefix", "x/", "docs")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not both")
}

func TestIngestCmd_InvalidSource(t *testing.T) {
	env := setupTestServices(t)
	env.source.validateErr = errors.New("no such directory")

	_, err := execute(t, "ingest", "missing")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such directory")
}

func TestIngestCmd_WritesFailedReport(t *testing.T) {
	env := setupTestServices(t)
	env.ingestion.summary = &domain.Summary{
		Attempted: 2,
		Failed: []domain.DocumentResult{
			failedResult("z/scan.pdf", domain.StageExtracting, errors.New("no text layer")),
			failedResult("a/fiche.pdf", domain.StageEmbedding, errors.New("timeout")),
		},
	}
	report := filepath.Join(t.TempDir(), "failed.txt")

	out, err := execute(t, "ingest", "--failed-report", report, ".")

	require.NoError(t, err)
	assert.Contains(t, out, "Documents en échec listés dans "+report)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "# Documents en échec", lines[0])
	assert.Equal(t, "# Total : 2", lines[1])
	assert.Equal(t, "a/fiche.pdf\tembedding\ttimeout", lines[3])
	assert.Equal(t, "z/scan.pdf\textracting\tno text layer", lines[4])
}

func TestWriteFailedReport(t *testing.T) {
	failed := []domain.DocumentResult{
		failedResult("verrou.pdf", domain.StageDiscovery, errors.New("permission denied")),
	}

	t.Run("overwrites an earlier report", func(t *testing.T) {
		report := filepath.Join(t.TempDir(), "failed.txt")
		require.NoError(t, os.WriteFile(report, []byte("ancien contenu plus long que le nouveau\n\n\n\n\n\n"), 0o644))

		require.NoError(t, writeFailedReport(report, failed))

		data, err := os.ReadFile(report)
		require.NoError(t, err)
		assert.Equal(t, "# Documents en échec\n# Total : 1\n\nverrou.pdf\tdiscovery\tpermission denied\n", string(data))
	})

	t.Run("unwritable path", func(t *testing.T) {
		report := filepath.Join(t.TempDir(), "absent", "failed.txt")

		err := writeFailedReport(report, failed)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "writing failed report")
	})
}

func TestIngestCmd_NoReportWithoutFailures(t *testing.T) {
	setupTestServices(t)
	report := filepath.Join(t.TempDir(), "failed.txt")

	_, err := execute(t, "ingest", "--failed-report", report, ".")

	require.NoError(t, err)
	assert.NoFileExists(t, report)
}

func TestIngestCmd_Aborted(t *testing.T) {
	env := setupTestServices(t)
	env.ingestion.summary = &domain.Summary{Aborted: true}

	out, err := execute(t, "ingest", ".")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBatchAborted)
	assert.Contains(t, out, "Interrompu")
}

func TestIngestCmd_ServiceError(t *testing.T) {
	env := setupTestServices(t)
	env.ingestion.err = domain.ErrVectorStoreUnavailable

	_, err := execute(t, "ingest", ".")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrVectorStoreUnavailable)
}

func TestIngestCmd_WatchNeedsWatchableSource(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "ingest", "--watch", ".")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be watched")
}
