// Package prefix tags every fragment with the name of its source document.
package prefix

import (
	"context"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Processor prepends "[Source: name] " to fragment text so retrieved
// passages name the data sheet they came from.
type Processor struct{}

// New creates a source prefix processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "source-prefix"
}

// Process rewrites fragment text in place order; indexes are untouched.
func (p *Processor) Process(_ context.Context, doc *driven.ExtractedDocument, fragments []domain.Fragment) ([]domain.Fragment, error) {
	if len(fragments) == 0 {
		return fragments, nil
	}
	tag := Tag(doc.Document.Name)

	out := make([]domain.Fragment, len(fragments))
	for i, f := range fragments {
		f.Text = tag + f.Text
		out[i] = f
	}
	return out, nil
}

// Tag returns the prefix for a document name.
func Tag(name string) string {
	return "[Source: " + name + "] "
}
