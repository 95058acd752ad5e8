package driven

import (
	"context"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

// PageTextSource produces the best available text for every page of a document.
//
// Extract returns one result per physical page in page order. A page that
// cannot be read yields an empty result flagged extraction-failed; only a
// document that cannot be opened at all returns an error.
type PageTextSource interface {
	// SupportedMIMETypes returns the MIME types this source handles.
	SupportedMIMETypes() []string

	// Extract reads raw without mutating it.
	Extract(ctx context.Context, raw *domain.RawDocument) ([]domain.PageExtractionResult, error)
}

// ExtractorRegistry selects a PageTextSource by MIME type.
type ExtractorRegistry interface {
	// Register adds a source for all of its MIME types.
	Register(source PageTextSource)

	// Get returns the source for a MIME type.
	Get(mimeType string) (PageTextSource, bool)

	// SupportedMIMETypes returns every registered MIME type.
	SupportedMIMETypes() []string
}
