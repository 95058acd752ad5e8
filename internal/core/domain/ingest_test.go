package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentStatus_IsTerminal(t *testing.T) {
	terminal := []DocumentStatus{StatusDone, StatusFailed, StatusSkipped}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), s.String())
	}
	running := []DocumentStatus{StatusPending, StatusExtracting, StatusChunking, StatusEmbedding, StatusStoring}
	for _, s := range running {
		assert.False(t, s.IsTerminal(), s.String())
	}
}

func TestDocumentResult_Stage(t *testing.T) {
	r := DocumentResult{Status: StatusFailed, Err: NewStageError(StageStoring, "d", ErrStorage)}
	assert.Equal(t, StageStoring, r.Stage())

	r = DocumentResult{Status: StatusSkipped, Err: ErrNoExtractableText}
	assert.Equal(t, Stage(""), r.Stage())
}

func TestSummary_Add(t *testing.T) {
	var s Summary
	s.Add(DocumentResult{Status: StatusDone, Fragments: 4, Warnings: []string{"w"}})
	s.Add(DocumentResult{Status: StatusDone, Fragments: 2})
	s.Add(DocumentResult{Status: StatusFailed, Err: NewStageError(StageEmbedding, "x", ErrEmbeddingService)})
	s.Add(DocumentResult{Status: StatusSkipped, Err: ErrNoExtractableText})
	s.Add(DocumentResult{Status: StatusSkipped, Err: ErrBatchAborted})

	assert.Equal(t, 4, s.Attempted)
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 6, s.TotalFragments)
	assert.Equal(t, 1, s.Warnings)
	require.Len(t, s.Failed, 1)
	assert.Equal(t, StageEmbedding, s.Failed[0].Stage())
	assert.Len(t, s.Skipped, 2)
}

func TestNewRunRecord(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := &Summary{
		RunID:          "run-1",
		Attempted:      3,
		Succeeded:      2,
		Failed:         []DocumentResult{{}},
		TotalFragments: 9,
		StartedAt:      start,
		Elapsed:        time.Minute,
	}
	rec := NewRunRecord("/data", s)

	assert.Equal(t, "run-1", rec.ID)
	assert.Equal(t, "/data", rec.Source)
	assert.Equal(t, start.Add(time.Minute), rec.FinishedAt)
	assert.Equal(t, 1, rec.Failed)
	assert.Equal(t, 0, rec.Skipped)
}

func TestNewDocumentOutcome(t *testing.T) {
	doc := Document{ID: "abc", Path: "sheets/a.pdf"}
	cause := errors.New("connection refused")
	r := DocumentResult{
		Document: doc,
		Status:   StatusFailed,
		Err:      NewStageError(StageStoring, "abc", cause),
	}

	o := NewDocumentOutcome("run", r)
	assert.Equal(t, "abc", o.DocumentID)
	assert.Equal(t, "sheets/a.pdf", o.Path)
	assert.Equal(t, StageStoring, o.Stage)
	assert.Equal(t, "connection refused", o.Cause)

	o = NewDocumentOutcome("run", DocumentResult{Document: doc, Status: StatusDone, Fragments: 3})
	assert.Empty(t, o.Cause)
	assert.Equal(t, 3, o.Fragments)
}
