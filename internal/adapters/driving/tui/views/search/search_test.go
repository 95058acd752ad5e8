package search

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fiches/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/fiches/internal/core/domain"
)

// mockSearchService records the last request.
type mockSearchService struct {
	results []domain.SearchResult
	err     error
	query   string
	opts    domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.query, m.opts = query, opts
	return m.results, m.err
}

func sampleResults() []domain.SearchResult {
	return []domain.SearchResult{
		{Rank: 1, DocumentID: "doc-1", SequenceIndex: 0, Text: "Couple de serrage : 25 Nm.", Score: 0.91},
		{Rank: 2, DocumentID: "doc-2", SequenceIndex: 3, Text: "Porter des gants.", Score: 0.62},
	}
}

func typeText(v *View, text string) *View {
	for _, r := range text {
		v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return v
}

// runSearch submits text and feeds the resulting SearchCompleted back.
func runSearch(t *testing.T, v *View, text string) *View {
	t.Helper()
	v = typeText(v, text)
	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	completed := searchMsg(t, cmd)
	v, _ = v.Update(completed)
	return v
}

// searchMsg finds the search result among a batch of commands.
func searchMsg(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c == nil {
				continue
			}
			switch m := c().(type) {
			case messages.SearchCompleted, messages.ErrorOccurred:
				return m
			}
		}
		t.Fatal("no search command in batch")
	}
	return msg
}

func newView(svc *mockSearchService) *View {
	v := NewView(nil, nil, svc, 3, 500)
	v.SetDimensions(100, 30)
	return v
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil, nil, 3, 500)

	require.NotNil(t, v)
	assert.True(t, v.InputFocused())
	assert.False(t, v.Ready())
	assert.Equal(t, "Initialising...", v.View())
	assert.NotNil(t, v.Init())
}

func TestView_SearchShowsResults(t *testing.T) {
	svc := &mockSearchService{results: sampleResults()}
	v := newView(svc)

	v = runSearch(t, v, "couple de serrage")

	assert.Equal(t, "couple de serrage", svc.query)
	assert.Equal(t, 3, svc.opts.Limit)
	assert.Len(t, v.Results(), 2)
	assert.False(t, v.InputFocused())
	assert.NoError(t, v.Err())

	out := v.View()
	assert.Contains(t, out, "Résultat 1")
	assert.Contains(t, out, "Résultat 2")
	assert.Contains(t, out, "2 résultats")
}

func TestView_NoResults(t *testing.T) {
	v := newView(&mockSearchService{})

	v = runSearch(t, v, "inconnu")

	assert.Empty(t, v.Results())
	assert.Contains(t, v.View(), "Aucun résultat trouvé.")
}

func TestView_SearchErrorKeepsInputFocused(t *testing.T) {
	svc := &mockSearchService{err: domain.ErrEmbeddingService}
	v := newView(svc)

	v = runSearch(t, v, "question")

	require.Error(t, v.Err())
	assert.True(t, errors.Is(v.Err(), domain.ErrEmbeddingService))
	assert.True(t, v.InputFocused())
	assert.Contains(t, v.View(), "Error: ")
}

func TestView_NoService(t *testing.T) {
	v := NewView(nil, nil, nil, 3, 500)
	v.SetDimensions(80, 24)

	v = runSearch(t, v, "question")

	assert.ErrorIs(t, v.Err(), ErrNoSearchService)
}

func TestView_EmptyQueryIgnored(t *testing.T) {
	v := newView(&mockSearchService{})

	v = typeText(v, "   ")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.True(t, v.InputFocused())
}

func TestView_NavigateAndExpand(t *testing.T) {
	v := newView(&mockSearchService{results: sampleResults()})
	v = runSearch(t, v, "gants")

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	assert.Equal(t, 1, v.SelectedIndex())

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, v.Expanded())

	// Esc collapses before leaving.
	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.False(t, v.Expanded())

	_, cmd = v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_NewQuestion(t *testing.T) {
	v := newView(&mockSearchService{results: sampleResults()})
	v = runSearch(t, v, "gants")

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})

	assert.True(t, v.InputFocused())
	assert.Equal(t, "", v.Query())

	// The previous question is recalled with up.
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "gants", v.Query())
}

func TestView_ErrorOccurred(t *testing.T) {
	v := newView(&mockSearchService{})

	v, _ = v.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.EqualError(t, v.Err(), "boom")
}

func TestView_Reset(t *testing.T) {
	v := newView(&mockSearchService{results: sampleResults()})
	v = runSearch(t, v, "gants")

	v.Reset()

	assert.True(t, v.InputFocused())
	assert.Empty(t, v.Results())
	assert.Empty(t, v.Query())
	assert.NoError(t, v.Err())
}

func TestView_WithContextIsPassedToService(t *testing.T) {
	svc := &mockSearchService{}
	v := newView(svc)
	type key string
	ctx := context.WithValue(context.Background(), key("k"), "v")

	assert.Same(t, v, v.WithContext(ctx))
	runSearch(t, v, "question")
	assert.Equal(t, "question", svc.query)
}
