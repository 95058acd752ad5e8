package normalisers

import (
	"sort"
	"strings"

	"github.com/custodia-labs/fiches/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps MIME types to page text sources.
// The last source registered for a MIME type wins.
type Registry struct {
	sources map[string]driven.PageTextSource
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]driven.PageTextSource),
	}
}

// Register adds a source for all of its MIME types.
func (r *Registry) Register(source driven.PageTextSource) {
	for _, mime := range source.SupportedMIMETypes() {
		r.sources[normaliseMIME(mime)] = source
	}
}

// Get returns the source for a MIME type. Parameters such as charset are ignored.
func (r *Registry) Get(mimeType string) (driven.PageTextSource, bool) {
	source, ok := r.sources[normaliseMIME(mimeType)]
	return source, ok
}

// SupportedMIMETypes returns every registered MIME type in sorted order.
func (r *Registry) SupportedMIMETypes() []string {
	types := make([]string, 0, len(r.sources))
	for mime := range r.sources {
		types = append(types, mime)
	}
	sort.Strings(types)
	return types
}

func normaliseMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
