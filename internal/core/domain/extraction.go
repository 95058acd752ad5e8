package domain

import (
	"fmt"
	"strings"
)

// PageBreak separates page texts when a document is flattened for chunking.
const PageBreak = "\f"

// Strategy names an extraction method.
type Strategy string

// Extraction strategies in cascade priority order.
const (
	// StrategyLayoutText reads the embedded text layer grouped by rows.
	StrategyLayoutText Strategy = "layout-text"

	// StrategyRasterText reads the text layer from raw glyph positions.
	StrategyRasterText Strategy = "raster-text"

	// StrategyOCR recognises text on a rendered page image.
	StrategyOCR Strategy = "ocr"
)

// String returns the string representation.
func (s Strategy) String() string {
	return string(s)
}

// PageFlag records how confident the cascade is in a page's text.
type PageFlag string

// Page flags.
const (
	// PageOK means a strategy cleared the quality threshold.
	PageOK PageFlag = "ok"

	// PageLowConfidence means no strategy cleared the threshold and the
	// best-scoring attempt was kept.
	PageLowConfidence PageFlag = "low-confidence"

	// PageExtractionFailed means every strategy failed; the text is empty.
	PageExtractionFailed PageFlag = "extraction-failed"
)

// PageExtractionResult is the selected extraction for one physical page.
type PageExtractionResult struct {
	// Page is the 1-based physical page number.
	Page int

	// Text is the cleaned page text. May be empty.
	Text string

	// Strategy is the method that produced Text.
	Strategy Strategy

	// Quality is the score of Text in [0, 1].
	Quality float64

	// Flag is the confidence flag.
	Flag PageFlag

	// Attempts lists every strategy tried for this page, in order.
	Attempts []StrategyAttempt
}

// StrategyAttempt records one strategy's outcome on a page.
type StrategyAttempt struct {
	Strategy Strategy
	Quality  float64
	Err      error
}

// JoinPages flattens page texts in physical order, separated by PageBreak.
// Empty pages contribute nothing so no run of breaks is produced.
func JoinPages(pages []PageExtractionResult) string {
	parts := make([]string, 0, len(pages))
	for i := range pages {
		if t := strings.TrimSpace(pages[i].Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n"+PageBreak+"\n")
}

// PageWarnings describes non-ok pages for inclusion in a document result.
func PageWarnings(pages []PageExtractionResult) []string {
	var warnings []string
	for i := range pages {
		switch pages[i].Flag {
		case PageExtractionFailed:
			warnings = append(warnings, fmt.Sprintf("page %d: %v", pages[i].Page, ErrExtractionFailed))
		case PageLowConfidence:
			warnings = append(warnings, fmt.Sprintf("page %d: low-confidence text (%s)",
				pages[i].Page, pages[i].Strategy))
		case PageOK:
		}
	}
	return warnings
}
