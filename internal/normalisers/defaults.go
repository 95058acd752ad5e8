package normalisers

import (
	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/normalisers/office"
	"github.com/custodia-labs/fiches/internal/normalisers/pdf"
	"github.com/custodia-labs/fiches/internal/normalisers/plaintext"
)

// RegisterDefaults registers the built-in sources with the registry.
// The PDF cascade is built from settings; opts are passed through to it.
func RegisterDefaults(r *Registry, settings domain.ExtractionSettings, opts ...pdf.Option) {
	r.Register(plaintext.New(settings.QualityThreshold))
	r.Register(office.New(settings.QualityThreshold))
	r.Register(pdf.NewFromSettings(settings, opts...))
}
