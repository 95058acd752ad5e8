// Package search provides the question and results view for the TUI.
package search

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/fiches/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/fiches/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/fiches/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/fiches/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/fiches/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/fiches/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driving"
)

// ErrNoSearchService indicates that no search service was provided.
var ErrNoSearchService = errors.New("search service is required")

// View represents the search view with input, results list, and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	list      *list.ResultList
	statusbar *status.Bar

	searchService driving.SearchService
	limit         int
	ctx           context.Context

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = typing a question, false = navigating results
}

// NewView creates a new search view. limit is the number of fragments
// requested per question and maxChars bounds the expanded text.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	searchService driving.SearchService,
	limit, maxChars int,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	results := list.NewResultList(s)
	results.SetMaxChars(maxChars)

	return &View{
		styles:        s,
		keymap:        km,
		input:         input.NewQuestionInput(s),
		list:          results,
		statusbar:     status.NewBar(s, km),
		searchService: searchService,
		limit:         limit,
		ctx:           context.Background(),
		width:         80,
		height:        24,
		focusInput:    true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.statusbar, cmd = v.statusbar.Update(msg)
		return v, cmd

	case messages.SearchCompleted:
		v.handleSearchCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		if !v.focusInput && v.list.Expanded() {
			v.list.ToggleExpanded()
			return v, nil
		}
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			return v, v.submit()
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	if keymap.Matches(msg.String(), v.keymap.NewQuestion) {
		v.focusInput = true
		v.input.Reset()
		return v, v.input.Focus()
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

// submit starts a search for the typed question. Blank input is ignored.
func (v *View) submit() tea.Cmd {
	query := v.input.Value()
	if query == "" {
		return nil
	}
	v.input.Remember(query)
	v.input.Blur()
	v.focusInput = false
	v.err = nil
	tick := v.statusbar.SetState(status.StateSearching)
	return tea.Batch(tick, v.performSearch(query))
}

func (v *View) performSearch(query string) tea.Cmd {
	svc, ctx, limit := v.searchService, v.ctx, v.limit
	return func() tea.Msg {
		if svc == nil {
			return messages.ErrorOccurred{Err: ErrNoSearchService}
		}
		results, err := svc.Search(ctx, query, domain.SearchOptions{Limit: limit})
		return messages.SearchCompleted{Query: query, Results: results, Err: err}
	}
}

func (v *View) handleSearchCompleted(msg messages.SearchCompleted) {
	if msg.Err != nil {
		v.list.SetResults(nil)
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.list.SetResults(msg.Results)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetResultCount(len(msg.Results))
	v.focusInput = false
	v.input.Blur()
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
	// Let the user retype after a failed search.
	v.focusInput = true
	v.input.Focus()
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 9)
	sections = append(sections, v.styles.Title.Render("fiches"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	} else if v.statusbar.State() == status.StateResults {
		sections = append(sections, v.list.View())
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10) // header, input and status
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current question.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the question text.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Results returns the current search results.
func (v *View) Results() []domain.SearchResult {
	return v.list.Results()
}

// SelectedIndex returns the index of the selected result.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Expanded reports whether the selected result shows its full text.
func (v *View) Expanded() bool {
	return v.list.Expanded()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Reset returns the view to input mode with no results.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Reset()
	v.input.Focus()
	v.list.SetResults(nil)
	v.err = nil
	v.statusbar.Clear()
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}
