// Package pdf extracts per-page text from PDF data sheets with a cascade of
// strategies: the layout-aware text layer, an independent glyph-position
// reader, then OCR on a rendered image.
package pdf

import (
	"context"
	"fmt"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
	"github.com/custodia-labs/fiches/internal/logger"
	"github.com/custodia-labs/fiches/internal/textutil"
)

// Ensure Extractor implements the interface.
var _ driven.PageTextSource = (*Extractor)(nil)

// DefaultQualityThreshold is the score a strategy must reach to stop the cascade.
const DefaultQualityThreshold = 0.5

// Extractor runs the strategy cascade over every page of a PDF.
type Extractor struct {
	strategies []Strategy
	threshold  float64
	runner     CommandRunner
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithStrategies replaces the cascade.
func WithStrategies(strategies ...Strategy) Option {
	return func(e *Extractor) {
		e.strategies = strategies
	}
}

// WithThreshold sets the quality threshold.
func WithThreshold(threshold float64) Option {
	return func(e *Extractor) {
		e.threshold = threshold
	}
}

// WithRunner sets the command runner used for OCR and page counting.
func WithRunner(runner CommandRunner) Option {
	return func(e *Extractor) {
		e.runner = runner
	}
}

// New creates an extractor. Without WithStrategies it runs layout-text then
// raster-text, adding OCR only through NewFromSettings or WithStrategies.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		threshold: DefaultQualityThreshold,
		runner:    execRunner{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.strategies == nil {
		e.strategies = DefaultStrategies(nil)
	}
	return e
}

// NewFromSettings creates the full cascade described by settings.
func NewFromSettings(settings domain.ExtractionSettings, opts ...Option) *Extractor {
	e := New(append([]Option{WithThreshold(settings.QualityThreshold)}, opts...)...)
	var ocr *OCRStrategy
	if settings.OCREnabled {
		ocr = NewOCRStrategy(e.runner, settings.OCRLanguages, settings.OCRDPI)
	}
	e.strategies = DefaultStrategies(ocr)
	return e
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Extract returns one result per physical page.
// Only a PDF whose page count cannot be determined is an error.
func (e *Extractor) Extract(ctx context.Context, raw *domain.RawDocument) ([]domain.PageExtractionResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	doc := newDocument(raw.Content, e.runner)
	defer func() {
		if err := doc.Close(); err != nil {
			logger.Warn("pdf: remove temp files for %s: %v", raw.Document.Name, err)
		}
	}()

	pages, err := doc.PageCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDocumentUnreadable, err)
	}

	results := make([]domain.PageExtractionResult, 0, pages)
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		result := e.extractPage(ctx, doc, page)
		logger.Debug("pdf: %s page %d: %s (%s, %.2f)",
			raw.Document.Name, page, result.Flag, result.Strategy, result.Quality)
		results = append(results, result)
	}
	return results, nil
}

type candidate struct {
	text     string
	strategy domain.Strategy
	quality  float64
}

// extractPage tries each strategy until one clears the threshold.
// If none does, the best-scoring successful attempt is kept as low-confidence.
func (e *Extractor) extractPage(ctx context.Context, doc *Document, page int) domain.PageExtractionResult {
	result := domain.PageExtractionResult{
		Page: page,
		Flag: domain.PageExtractionFailed,
	}

	var best *candidate
	for _, s := range e.strategies {
		text, err := runStrategy(ctx, s, doc, page)
		attempt := domain.StrategyAttempt{Strategy: s.Name(), Err: err}
		if err == nil {
			text = textutil.Clean(text)
			attempt.Quality = textutil.Score(text)
		}
		result.Attempts = append(result.Attempts, attempt)
		if err != nil {
			continue
		}

		if attempt.Quality >= e.threshold {
			result.Text = text
			result.Strategy = s.Name()
			result.Quality = attempt.Quality
			result.Flag = domain.PageOK
			return result
		}
		if best == nil || attempt.Quality > best.quality {
			best = &candidate{text: text, strategy: s.Name(), quality: attempt.Quality}
		}
	}

	if best != nil {
		result.Text = best.text
		result.Strategy = best.strategy
		result.Quality = best.quality
		result.Flag = domain.PageLowConfidence
	}
	return result
}

func runStrategy(ctx context.Context, s Strategy, doc *Document, page int) (text string, err error) {
	err = safely(func() error {
		var serr error
		text, serr = s.ExtractPage(ctx, doc, page)
		return serr
	})
	return text, err
}
