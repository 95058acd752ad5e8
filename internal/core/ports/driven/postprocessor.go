package driven

import (
	"context"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

// ExtractedDocument is a document together with its selected page texts.
type ExtractedDocument struct {
	Document domain.Document
	Pages    []domain.PageExtractionResult
	Text     string
}

// PostProcessor turns extracted text into fragments or rewrites fragments.
// PostProcessors are chained in a pipeline (e.g., chunking, source prefixing).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns fragments.
	// A processor that creates fragments (the chunker) receives nil.
	// A processor that rewrites fragments must keep their order and indexes.
	Process(ctx context.Context, doc *ExtractedDocument, fragments []domain.Fragment) ([]domain.Fragment, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	// Returns the final fragments after all processing.
	Process(ctx context.Context, doc *ExtractedDocument) ([]domain.Fragment, error)
}
