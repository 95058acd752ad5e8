package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no extractor handles a MIME type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidSettings indicates the settings violate a chunking or batching constraint.
	ErrInvalidSettings = errors.New("invalid settings")

	// Ingestion Errors.

	// ErrExtractionFailed indicates every extraction strategy failed for a page.
	// Non-fatal: the page text is recorded empty and the document continues.
	ErrExtractionFailed = errors.New("all extraction strategies failed")

	// ErrChunkingAnomaly indicates a sentence exceeds the target chunk size.
	// Non-fatal: the sentence is emitted as its own oversized fragment.
	ErrChunkingAnomaly = errors.New("sentence exceeds chunk size")

	// ErrEmbeddingService indicates the embedding call failed or returned
	// a mismatched count or dimension. Fatal for the document.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrStorage indicates a vector store write or delete failed.
	// Fatal for the document; nothing is committed.
	ErrStorage = errors.New("storage error")

	// ErrBatchAborted indicates the run was cancelled before the document was dispatched.
	ErrBatchAborted = errors.New("batch aborted")

	// ErrNoExtractableText indicates a document produced too little text to chunk.
	ErrNoExtractableText = errors.New("no extractable text")

	// ErrDocumentUnreadable indicates the document could not be opened at all.
	ErrDocumentUnreadable = errors.New("document unreadable")

	// Collaborator Errors.

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not configured.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrToolNotFound indicates an external command-line tool is missing.
	ErrToolNotFound = errors.New("external tool not found")
)

// StageError tags a document failure with the stage it occurred in.
type StageError struct {
	Stage      Stage
	DocumentID string
	Err        error
}

// NewStageError wraps err for a document and stage.
func NewStageError(stage Stage, documentID string, err error) *StageError {
	return &StageError{Stage: stage, DocumentID: documentID, Err: err}
}

// Error implements error.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StageError) Unwrap() error {
	return e.Err
}

// AsStageError extracts a StageError from an error chain.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Cause returns the error beneath any StageError tag.
func Cause(err error) error {
	if se, ok := AsStageError(err); ok {
		return se.Err
	}
	return err
}

// IsBatchAborted reports whether err records a cancelled dispatch.
func IsBatchAborted(err error) bool {
	return errors.Is(err, ErrBatchAborted)
}
