package domain

import (
	"time"
)

// DocumentStatus is a document's position in the ingestion state machine.
type DocumentStatus string

// Document statuses, in pipeline order.
const (
	StatusPending    DocumentStatus = "pending"
	StatusExtracting DocumentStatus = "extracting"
	StatusChunking   DocumentStatus = "chunking"
	StatusEmbedding  DocumentStatus = "embedding"
	StatusStoring    DocumentStatus = "storing"
	StatusDone       DocumentStatus = "done"
	StatusFailed     DocumentStatus = "failed"
	StatusSkipped    DocumentStatus = "skipped"
)

// IsTerminal returns true for statuses a document cannot leave.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed || s == StatusSkipped
}

// String returns the string representation.
func (s DocumentStatus) String() string {
	return string(s)
}

// Stage identifies the pipeline step a failure occurred in.
type Stage string

// Pipeline stages.
const (
	StageDiscovery  Stage = "discovery"
	StageExtracting Stage = "extracting"
	StageChunking   Stage = "chunking"
	StageEmbedding  Stage = "embedding"
	StageStoring    Stage = "storing"
)

// String returns the string representation.
func (s Stage) String() string {
	return string(s)
}

// ProgressEvent is emitted once per document when it reaches a terminal status.
type ProgressEvent struct {
	// RunID identifies the ingestion run.
	RunID string

	// DocumentID identifies the document.
	DocumentID string

	// Name is the document's display name.
	Name string

	// Status is the terminal status reached.
	Status DocumentStatus

	// Stage is the failing stage when Status is StatusFailed.
	Stage Stage

	// Fragments is the number of fragments stored.
	Fragments int

	// Elapsed is the time spent on this document.
	Elapsed time.Duration

	// Err carries the failure or skip reason, if any.
	Err error

	// Completed and Total give the run's position for progress display.
	Completed int
	Total     int
}

// DocumentResult is the structured outcome of processing one document.
// Exactly one of Err or a terminal success status describes it.
type DocumentResult struct {
	Document  Document
	Status    DocumentStatus
	Fragments int
	Pages     int
	Warnings  []string
	Err       error
	Elapsed   time.Duration
}

// Stage returns the failing stage, or "" when the document did not fail at a stage.
func (r DocumentResult) Stage() Stage {
	if se, ok := AsStageError(r.Err); ok {
		return se.Stage
	}
	return ""
}

// Summary is the completion result of an ingestion run.
type Summary struct {
	// RunID identifies the run.
	RunID string

	// Attempted counts documents that entered the pipeline.
	Attempted int

	// Succeeded counts documents that reached StatusDone.
	Succeeded int

	// Failed lists every document that reached StatusFailed.
	Failed []DocumentResult

	// Skipped lists documents with no extractable text or left queued
	// when the run was cancelled.
	Skipped []DocumentResult

	// TotalFragments is the number of fragments stored across the run.
	TotalFragments int

	// Warnings counts non-fatal warnings across documents.
	Warnings int

	// StartedAt and Elapsed time the run.
	StartedAt time.Time
	Elapsed   time.Duration

	// Aborted is true when the run was cancelled before every document was dispatched.
	Aborted bool
}

// Add folds one document result into the summary.
func (s *Summary) Add(r DocumentResult) {
	s.Warnings += len(r.Warnings)
	switch r.Status {
	case StatusDone:
		s.Attempted++
		s.Succeeded++
		s.TotalFragments += r.Fragments
	case StatusFailed:
		s.Attempted++
		s.Failed = append(s.Failed, r)
	case StatusSkipped:
		if r.Err != nil && !IsBatchAborted(r.Err) {
			s.Attempted++
		}
		s.Skipped = append(s.Skipped, r)
	default:
	}
}

// RunRecord is a persisted ingestion run.
type RunRecord struct {
	ID             string
	Source         string
	StartedAt      time.Time
	FinishedAt     time.Time
	Attempted      int
	Succeeded      int
	Failed         int
	Skipped        int
	TotalFragments int
	Aborted        bool
}

// NewRunRecord builds a persisted view of a finished summary.
func NewRunRecord(source string, s *Summary) RunRecord {
	return RunRecord{
		ID:             s.RunID,
		Source:         source,
		StartedAt:      s.StartedAt,
		FinishedAt:     s.StartedAt.Add(s.Elapsed),
		Attempted:      s.Attempted,
		Succeeded:      s.Succeeded,
		Failed:         len(s.Failed),
		Skipped:        len(s.Skipped),
		TotalFragments: s.TotalFragments,
		Aborted:        s.Aborted,
	}
}

// DocumentOutcome is a persisted per-document result within a run.
type DocumentOutcome struct {
	RunID      string
	DocumentID string
	Path       string
	Status     DocumentStatus
	Stage      Stage
	Cause      string
	Fragments  int
	Warnings   []string
	Elapsed    time.Duration
}

// NewDocumentOutcome flattens a result for persistence.
func NewDocumentOutcome(runID string, r DocumentResult) DocumentOutcome {
	o := DocumentOutcome{
		RunID:      runID,
		DocumentID: r.Document.ID,
		Path:       r.Document.Path,
		Status:     r.Status,
		Stage:      r.Stage(),
		Fragments:  r.Fragments,
		Warnings:   r.Warnings,
		Elapsed:    r.Elapsed,
	}
	if r.Err != nil {
		o.Cause = Cause(r.Err).Error()
	}
	return o
}
