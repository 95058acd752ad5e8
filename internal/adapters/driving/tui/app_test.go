package tui

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

type mockSearchService struct {
	results []domain.SearchResult
	err     error
}

func (m *mockSearchService) Search(
	_ context.Context, _ string, _ domain.SearchOptions,
) ([]domain.SearchResult, error) {
	return m.results, m.err
}

type mockRunHistory struct {
	run *domain.RunRecord
	err error
}

func (m *mockRunHistory) LatestRun(_ context.Context) (*domain.RunRecord, []domain.DocumentOutcome, error) {
	return m.run, nil, m.err
}

func (m *mockRunHistory) ListRuns(_ context.Context, _ int) ([]domain.RunRecord, error) {
	return nil, nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	ports := &Ports{
		Search: &mockSearchService{results: []domain.SearchResult{
			{Rank: 1, DocumentID: "doc-1", Text: "Couple de serrage : 25 Nm.", Score: 0.9},
		}},
		Runs: &mockRunHistory{run: &domain.RunRecord{ID: "run-7", Source: "file:///fiches"}},
	}
	app, err := NewApp(ports, domain.DefaultSettings().Search)
	require.NoError(t, err)
	app.SetDimensions(100, 30)
	return app
}

// send applies msg and then every message its command produces.
func send(app *App, msg tea.Msg) {
	_, cmd := app.Update(msg)
	for cmd != nil {
		next := cmd()
		if batch, ok := next.(tea.BatchMsg); ok {
			cmd = nil
			for _, c := range batch {
				if c == nil {
					continue
				}
				if m := c(); isAppMsg(m) {
					_, cmd = app.Update(m)
				}
			}
			continue
		}
		if !isAppMsg(next) {
			return
		}
		_, cmd = app.Update(next)
	}
}

func isAppMsg(msg tea.Msg) bool {
	switch msg.(type) {
	case messages.ViewChanged, messages.SearchCompleted, messages.RunLoaded, messages.ErrorOccurred:
		return true
	}
	return false
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{}, domain.SearchSettings{})

	assert.ErrorIs(t, err, ErrMissingSearchService)
	assert.Nil(t, app)
}

func TestApp_StartsAtMenu(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.NotNil(t, app.Init())
	assert.Contains(t, app.View(), "Poser une question")
}

func TestApp_NotReady(t *testing.T) {
	app, err := NewApp(&Ports{Search: &mockSearchService{}}, domain.SearchSettings{})
	require.NoError(t, err)

	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())

	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.True(t, app.Ready())
}

func TestApp_AskQuestion(t *testing.T) {
	app := newTestApp(t)

	send(app, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, messages.ViewSearch, app.CurrentView())

	for _, r := range "couple" {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	send(app, tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, app.Results(), 1)
	assert.NoError(t, app.Err())
	assert.Contains(t, app.View(), "Résultat 1")
}

func TestApp_SearchErrorIsRecorded(t *testing.T) {
	app := newTestApp(t)
	send(app, messages.ViewChanged{View: messages.ViewSearch})

	send(app, messages.SearchCompleted{Err: domain.ErrVectorStoreUnavailable})

	assert.ErrorIs(t, app.Err(), domain.ErrVectorStoreUnavailable)
}

func TestApp_RunsView(t *testing.T) {
	app := newTestApp(t)

	send(app, messages.ViewChanged{View: messages.ViewRuns})

	assert.Equal(t, messages.ViewRuns, app.CurrentView())
	assert.Contains(t, app.View(), "run-7")

	send(app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_HelpView(t *testing.T) {
	app := newTestApp(t)

	send(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	require.Equal(t, messages.ViewHelp, app.CurrentView())
	assert.Contains(t, app.View(), "new question")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_CtrlCQuits(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_QuitMessage(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(messages.Quit{})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_ErrorOccurred(t *testing.T) {
	app := newTestApp(t)

	app.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.EqualError(t, app.Err(), "boom")
}

func TestApp_WithoutRunsHidesMenuEntry(t *testing.T) {
	app, err := NewApp(&Ports{Search: &mockSearchService{}}, domain.SearchSettings{})
	require.NoError(t, err)
	app.SetDimensions(80, 24)

	assert.NotContains(t, app.View(), "Dernière ingestion")
}
