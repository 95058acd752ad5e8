package driven

import (
	"context"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

// DocumentSource lists and fetches documents for ingestion.
// Each source type (filesystem, s3) implements this interface.
type DocumentSource interface {
	// Type returns the source type identifier.
	Type() string

	// SourceID returns the identifier documents from this source are scoped to.
	SourceID() string

	// Validate checks the source is reachable and readable.
	Validate(ctx context.Context) error

	// Documents streams every document the source holds.
	// The document channel is closed when listing finishes. A listing error is
	// sent on the error channel, which is then closed. A document that was
	// listed but could not be read is sent with RawDocument.Err set.
	Documents(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Fetch loads the document at a path relative to the source root.
	Fetch(ctx context.Context, relPath string) (domain.RawDocument, error)

	// Close releases resources.
	Close() error
}

// WatchableSource is a DocumentSource that can push change events.
type WatchableSource interface {
	DocumentSource

	// Watch listens for changes until ctx is cancelled.
	Watch(ctx context.Context) (<-chan domain.DocumentChange, error)
}
