package postprocessors

import (
	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
	"github.com/custodia-labs/fiches/internal/postprocessors/chunker"
	"github.com/custodia-labs/fiches/internal/postprocessors/prefix"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("source-prefix", buildPrefix)
}

// BuildPipeline assembles the chunking pipeline described by settings.
func BuildPipeline(r *Registry, settings domain.ChunkingSettings) (*Pipeline, error) {
	chunk, err := r.Build("chunker", map[string]any{
		"chunk_size":         settings.ChunkSize,
		"overlap":            settings.Overlap,
		"min_words":          settings.MinWords,
		"min_sentence_chars": settings.MinSentenceChars,
		"sections":           settings.Sections,
		"section_headers":    settings.SectionHeaders,
	})
	if err != nil {
		return nil, err
	}
	pipeline := NewPipeline(chunk)

	if settings.SourcePrefix {
		p, err := r.Build("source-prefix", nil)
		if err != nil {
			return nil, err
		}
		pipeline.Add(p)
	}
	return pipeline, nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Target words per fragment (default: 300)
//   - overlap (int): Maximum overlapping words between fragments (default: 50)
//   - min_words (int): Fragments below this merge into a neighbour (default: 30)
//   - min_sentence_chars (int): Shorter sentences merge forwards (default: 20)
//   - sections (bool): Split on section headers first (default: true)
//   - section_headers (string): Extra header line pattern, added to the defaults
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "chunk_size"); ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}
	if words, ok := getIntFromConfig(cfg, "min_words"); ok {
		opts = append(opts, chunker.WithMinWords(words))
	}
	if chars, ok := getIntFromConfig(cfg, "min_sentence_chars"); ok {
		opts = append(opts, chunker.WithMinSentenceChars(chars))
	}
	if sections, ok := cfg["sections"].(bool); ok && !sections {
		opts = append(opts, chunker.WithSectionPattern(nil))
	} else if extra, _ := cfg["section_headers"].(string); extra != "" {
		headers := append(append([]string{}, chunker.DefaultSectionHeaders...), extra)
		re, err := chunker.CompileSectionHeaders(headers)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chunker.WithSectionPattern(re))
	}

	return chunker.New(opts...), nil
}

func buildPrefix(map[string]any) (driven.PostProcessor, error) {
	return prefix.New(), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
