package services

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockSource implements driven.WatchableSource over an in-memory tree.
type mockSource struct {
	id         string
	files      map[string]string
	unreadable map[string]error
	listErr    error
	changes    chan domain.DocumentChange
}

func newMockSource(files map[string]string) *mockSource {
	return &mockSource{id: "mock://fiches", files: files}
}

func (m *mockSource) Type() string                     { return "mock" }
func (m *mockSource) SourceID() string                 { return m.id }
func (m *mockSource) Validate(_ context.Context) error { return nil }
func (m *mockSource) Close() error                     { return nil }

func (m *mockSource) paths() []string {
	paths := make([]string, 0, len(m.files)+len(m.unreadable))
	for p := range m.files {
		paths = append(paths, p)
	}
	for p := range m.unreadable {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (m *mockSource) Documents(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)
	go func() {
		defer close(docs)
		defer close(errs)
		for _, p := range m.paths() {
			raw, _ := m.Fetch(ctx, p)
			if err, ok := m.unreadable[p]; ok {
				raw = domain.UnreadableDocument(m.id, p, "text/plain", err)
			}
			select {
			case docs <- raw:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if m.listErr != nil {
			errs <- m.listErr
		}
	}()
	return docs, errs
}

func (m *mockSource) Fetch(_ context.Context, relPath string) (domain.RawDocument, error) {
	content, ok := m.files[relPath]
	if !ok {
		return domain.RawDocument{}, domain.ErrNotFound
	}
	return domain.RawDocument{
		Document: domain.NewDocument(m.id, relPath, "text/plain", []byte(content)),
		Content:  []byte(content),
	}, nil
}

func (m *mockSource) Watch(_ context.Context) (<-chan domain.DocumentChange, error) {
	if m.changes == nil {
		return nil, errors.New("not watchable")
	}
	return m.changes, nil
}

// mockExtractor returns one page per form-feed separated part of the content.
type mockExtractor struct {
	err error
}

func (m *mockExtractor) SupportedMIMETypes() []string {
	return []string{"text/plain"}
}

func (m *mockExtractor) Extract(_ context.Context, raw *domain.RawDocument) ([]domain.PageExtractionResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	parts := strings.Split(string(raw.Content), "\f")
	pages := make([]domain.PageExtractionResult, len(parts))
	for i, p := range parts {
		pages[i] = domain.PageExtractionResult{
			Page:     i + 1,
			Text:     strings.TrimSpace(p),
			Strategy: domain.StrategyLayoutText,
			Quality:  1,
			Flag:     domain.PageOK,
		}
		if pages[i].Text == "" {
			pages[i].Flag = domain.PageExtractionFailed
			pages[i].Quality = 0
		}
	}
	return pages, nil
}

// mockRegistry implements driven.ExtractorRegistry with a single source.
type mockRegistry struct {
	source driven.PageTextSource
}

func (m *mockRegistry) Register(source driven.PageTextSource) { m.source = source }

func (m *mockRegistry) Get(mimeType string) (driven.PageTextSource, bool) {
	if m.source == nil || mimeType != "text/plain" {
		return nil, false
	}
	return m.source, true
}

func (m *mockRegistry) SupportedMIMETypes() []string { return []string{"text/plain"} }

// mockEmbedder returns deterministic vectors derived from a hash of the text.
type mockEmbedder struct {
	mu     sync.Mutex
	dims   int
	failOn string
	short  bool
	onCall func()
	calls  int
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims}
}

func (m *mockEmbedder) vector(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	v := make([]float32, m.dims)
	var norm float64
	for i := range v {
		seed = seed*6364136223846793005 + 1442695040888963407
		v[i] = float32(seed>>40)/float32(1<<24) + 0.01
		norm += float64(v[i]) * float64(v[i])
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	onCall := m.onCall
	m.mu.Unlock()
	if onCall != nil {
		onCall()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if m.failOn != "" && strings.Contains(t, m.failOn) {
			return nil, errors.New("connection refused")
		}
		vectors = append(vectors, m.vector(t))
	}
	if m.short && len(vectors) > 0 {
		vectors = vectors[:len(vectors)-1]
	}
	return vectors, nil
}

func (m *mockEmbedder) Dimensions() int              { return m.dims }
func (m *mockEmbedder) ModelName() string            { return "mock" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

func (m *mockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// failingStore wraps a vector store and fails writes for one document.
type failingStore struct {
	driven.VectorStore
	failID string
}

func (f *failingStore) ReplaceDocument(ctx context.Context, documentID string, records []domain.StoredRecord) error {
	if documentID == f.failID {
		return errors.New("deadlock detected")
	}
	return f.VectorStore.ReplaceDocument(ctx, documentID, records)
}

// mockIngestion records IngestPaths calls for watcher tests.
type mockIngestion struct {
	mu    sync.Mutex
	paths [][]string
	done  chan struct{}
}

func (m *mockIngestion) Ingest(
	_ context.Context, _ driven.DocumentSource, _ chan<- domain.ProgressEvent,
) (*domain.Summary, error) {
	return &domain.Summary{}, nil
}

func (m *mockIngestion) IngestPaths(
	_ context.Context, _ driven.DocumentSource, paths []string, _ chan<- domain.ProgressEvent,
) (*domain.Summary, error) {
	m.mu.Lock()
	m.paths = append(m.paths, paths)
	m.mu.Unlock()
	if m.done != nil {
		m.done <- struct{}{}
	}
	return &domain.Summary{Attempted: len(paths)}, nil
}

func (m *mockIngestion) Reset(_ context.Context, _ string) (int, error) { return 0, nil }
func (m *mockIngestion) ResetAll(_ context.Context) error               { return nil }
