// Package plaintext reads plain text data sheets as a single page.
package plaintext

import (
	"context"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
	"github.com/custodia-labs/fiches/internal/textutil"
)

// Ensure Normaliser implements the interface.
var _ driven.PageTextSource = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct {
	threshold float64
}

// New creates a plain text normaliser that flags text scoring below threshold.
func New(threshold float64) *Normaliser {
	return &Normaliser{threshold: threshold}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/csv",
	}
}

// Extract returns the whole text as page 1.
// Bytes that are not valid UTF-8 are decoded as Windows-1252, the usual
// encoding of legacy French exports.
func (n *Normaliser) Extract(_ context.Context, raw *domain.RawDocument) ([]domain.PageExtractionResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text, err := decode(raw.Content)
	if err != nil {
		return nil, err
	}
	text = textutil.Clean(text)
	quality := textutil.Score(text)

	flag := domain.PageOK
	if quality < n.threshold {
		flag = domain.PageLowConfidence
	}

	return []domain.PageExtractionResult{{
		Page:     1,
		Text:     text,
		Strategy: domain.StrategyLayoutText,
		Quality:  quality,
		Flag:     flag,
		Attempts: []domain.StrategyAttempt{{Strategy: domain.StrategyLayoutText, Quality: quality}},
	}}, nil
}

func decode(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(content)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
