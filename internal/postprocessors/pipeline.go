// Package postprocessors turns extracted document text into fragments.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline chains multiple PostProcessors and runs them in order.
// It implements the PostProcessorPipeline interface.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the document through all processors in order.
// The first processor receives nil fragments and should create them.
// Subsequent processors receive and may rewrite the fragments.
func (p *Pipeline) Process(ctx context.Context, doc *driven.ExtractedDocument) ([]domain.Fragment, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}

	var fragments []domain.Fragment

	for _, processor := range p.processors {
		var err error
		fragments, err = processor.Process(ctx, doc, fragments)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}

	for i := range fragments {
		if fragments[i].Index != i {
			return nil, fmt.Errorf("fragment %d has sequence index %d", i, fragments[i].Index)
		}
	}

	return fragments, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}

// Names returns the processor names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, processor := range p.processors {
		names[i] = processor.Name()
	}
	return names
}
