// Package chunker provides a section and sentence aware sliding-window chunker.
package chunker

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
	"github.com/custodia-labs/fiches/internal/textutil"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Defaults in words, except DefaultMinSentenceChars.
const (
	DefaultChunkSize        = 300
	DefaultChunkOverlap     = 50
	DefaultMinWords         = 30
	DefaultMinSentenceChars = 20
)

// Processor splits document text into overlapping windows of whole sentences.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize        int
	overlap          int
	minWords         int
	minSentenceChars int
	sectionPattern   *regexp.Regexp
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the target window in words.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the maximum overlap between windows in words.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithMinWords sets the size below which a window is merged into a neighbour.
func WithMinWords(words int) Option {
	return func(p *Processor) {
		if words >= 0 {
			p.minWords = words
		}
	}
}

// WithMinSentenceChars sets the length below which a sentence is merged forwards.
func WithMinSentenceChars(chars int) Option {
	return func(p *Processor) {
		if chars >= 0 {
			p.minSentenceChars = chars
		}
	}
}

// WithSectionPattern sets the pattern of section header lines.
// Nil disables section splitting.
func WithSectionPattern(re *regexp.Regexp) Option {
	return func(p *Processor) {
		p.sectionPattern = re
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:        DefaultChunkSize,
		overlap:          DefaultChunkOverlap,
		minWords:         DefaultMinWords,
		minSentenceChars: DefaultMinSentenceChars,
		sectionPattern:   DefaultSectionPattern,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't reach chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}
	if p.minWords > p.chunkSize {
		p.minWords = p.chunkSize
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document text into fragments.
// Input fragments are ignored; this processor creates new fragments.
func (p *Processor) Process(ctx context.Context, doc *driven.ExtractedDocument, _ []domain.Fragment) ([]domain.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := doc.Text
	if text == "" {
		text = domain.JoinPages(doc.Pages)
	}
	return p.Chunk(doc.Document.ID, text), nil
}

// window is a half-open range of sentence indexes.
type window struct {
	start, end int
}

// Chunk splits text into fragments for documentID.
// Windows never cross a section header. Empty or whitespace-only text
// yields no fragments.
func (p *Processor) Chunk(documentID, text string) []domain.Fragment {
	var fragments []domain.Fragment
	for _, sentences := range p.sections(text) {
		words := make([]int, len(sentences))
		for i, s := range sentences {
			words[i] = textutil.WordCount(s)
		}

		for _, w := range p.pack(words) {
			f := domain.Fragment{
				DocumentID: documentID,
				Index:      len(fragments),
				Text:       strings.Join(sentences[w.start:w.end], " "),
				Sentences:  w.end - w.start,
			}
			for _, n := range words[w.start:w.end] {
				f.WordCount += n
				if n > p.chunkSize {
					f.Oversized = true
				}
			}
			fragments = append(fragments, f)
		}
	}
	return fragments
}

// sections splits text into sections of sentences. A section under minWords
// joins the next one, or the previous one at the end of the text.
func (p *Processor) sections(text string) [][]string {
	var (
		out     [][]string
		pending []string
	)
	for _, section := range SplitSections(text, p.sectionPattern) {
		sentences := append(pending, SplitSentences(section, p.minSentenceChars)...)
		pending = nil
		if len(sentences) == 0 {
			continue
		}
		if wordTotal(sentences) < p.minWords {
			pending = sentences
			continue
		}
		out = append(out, sentences)
	}
	if len(pending) > 0 {
		if len(out) == 0 {
			return [][]string{pending}
		}
		out[len(out)-1] = append(out[len(out)-1], pending...)
	}
	return out
}

// pack greedily fills windows with whole sentences up to chunkSize words.
// Each window after the first re-includes trailing sentences of the previous
// one totalling at most overlap words, but always advances by at least one
// new sentence. Windows under minWords are then folded into a neighbour.
func (p *Processor) pack(words []int) []window {
	var windows []window
	n := len(words)
	start := 0

	for {
		end, total := start, 0
		for end < n && (end == start || total+words[end] <= p.chunkSize) {
			total += words[end]
			end++
		}
		windows = append(windows, window{start: start, end: end})
		if end == n {
			break
		}
		start = p.overlapStart(words, start, end)
	}
	return p.fold(words, windows)
}

// fold merges every window under minWords into a neighbour until none is
// left, or a single window remains.
func (p *Processor) fold(words []int, windows []window) []window {
	for i := 0; i < len(windows) && len(windows) > 1; {
		if sum(words[windows[i].start:windows[i].end]) >= p.minWords {
			i++
			continue
		}
		lo := p.foldTarget(words, windows, i)
		hi := lo + 1
		windows[lo] = window{start: windows[lo].start, end: windows[hi].end}
		windows = append(windows[:hi], windows[hi+1:]...)
		i = lo
	}
	return windows
}

// foldTarget picks the neighbour of window i to merge with and returns the
// lower index of the pair. The previous window is preferred when the merge
// fits chunkSize, then the next one. When neither fits, an oversized
// neighbour absorbs the window, otherwise the smaller merge wins.
func (p *Processor) foldTarget(words []int, windows []window, i int) int {
	if i == 0 {
		return i
	}
	merged := func(lo int) int {
		return sum(words[windows[lo].start:windows[lo+1].end])
	}
	if merged(i-1) <= p.chunkSize || i == len(windows)-1 {
		return i - 1
	}
	if merged(i) <= p.chunkSize {
		return i
	}

	prevOver, nextOver := p.oversized(words, windows[i-1]), p.oversized(words, windows[i+1])
	if prevOver != nextOver {
		if nextOver {
			return i
		}
		return i - 1
	}
	if merged(i) < merged(i-1) {
		return i
	}
	return i - 1
}

func (p *Processor) oversized(words []int, w window) bool {
	for _, n := range words[w.start:w.end] {
		if n > p.chunkSize {
			return true
		}
	}
	return false
}

// overlapStart returns where the window after [start, end) begins.
func (p *Processor) overlapStart(words []int, start, end int) int {
	next, carried := end, 0
	for next-1 > start && carried+words[next-1] <= p.overlap {
		carried += words[next-1]
		next--
	}
	// The first new sentence must still fit; an oversized one stands alone.
	for next < end && carried+words[end] > p.chunkSize {
		carried -= words[next]
		next++
	}
	return next
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

func wordTotal(sentences []string) int {
	total := 0
	for _, s := range sentences {
		total += textutil.WordCount(s)
	}
	return total
}
