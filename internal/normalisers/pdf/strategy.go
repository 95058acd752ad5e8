package pdf

import (
	"context"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

// Strategy extracts the text of one page.
// Strategies are tried in order by the Extractor; an error or panic scores zero.
type Strategy interface {
	// Name identifies the strategy in page results.
	Name() domain.Strategy

	// ExtractPage returns the raw text of a 1-based page.
	ExtractPage(ctx context.Context, doc *Document, page int) (string, error)
}

// DefaultStrategies returns the cascade in priority order.
// OCR is appended only when ocr is non-nil.
func DefaultStrategies(ocr *OCRStrategy) []Strategy {
	strategies := []Strategy{LayoutStrategy{}, RasterStrategy{}}
	if ocr != nil {
		strategies = append(strategies, ocr)
	}
	return strategies
}
