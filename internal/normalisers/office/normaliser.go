// Package office extracts text from word-processor and HTML data sheets
// with docconv. Each document is reported as a single page.
package office

import (
	"bytes"
	"context"
	"fmt"

	"code.sajari.com/docconv"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
	"github.com/custodia-labs/fiches/internal/textutil"
)

// Ensure Normaliser implements the interface.
var _ driven.PageTextSource = (*Normaliser)(nil)

// ConvertFunc converts document bytes of a MIME type into text.
type ConvertFunc func(content []byte, mimeType string) (string, error)

// Normaliser handles office and HTML documents.
type Normaliser struct {
	threshold float64
	convert   ConvertFunc
}

// New creates a docconv-backed normaliser.
func New(threshold float64) *Normaliser {
	return &Normaliser{threshold: threshold, convert: docconvConvert}
}

// NewWithConverter creates a normaliser with an injected converter, for tests.
func NewWithConverter(threshold float64, convert ConvertFunc) *Normaliser {
	return &Normaliser{threshold: threshold, convert: convert}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.oasis.opendocument.text",
		"application/rtf",
		"text/rtf",
		"text/html",
	}
}

// Extract converts the document and returns it as page 1.
func (n *Normaliser) Extract(ctx context.Context, raw *domain.RawDocument) ([]domain.PageExtractionResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := n.convert(raw.Content, raw.Document.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDocumentUnreadable, err)
	}

	text := textutil.Clean(body)
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

func docconvConvert(content []byte, mimeType string) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(content), mimeType, mimeType == "text/html")
	if err != nil {
		return "", err
	}
	return res.Body, nil
}
