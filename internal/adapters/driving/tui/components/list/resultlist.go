// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/fiches/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/textutil"
)

// BarWidth is the number of cells in a score bar.
const BarWidth = 10

// DefaultMaxChars bounds the expanded fragment text.
const DefaultMaxChars = 500

// ResultList displays ranked fragments in a navigable list.
type ResultList struct {
	results  []domain.SearchResult
	selected int
	expanded bool
	maxChars int
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates a new result list component.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ResultList{
		maxChars: DefaultMaxChars,
		styles:   s,
		width:    80,
		height:   10,
	}
}

// Init initialises the result list.
func (r *ResultList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *ResultList) Update(msg tea.Msg) (*ResultList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		case "enter", " ":
			r.ToggleExpanded()
		}
	}
	return r, nil
}

// View renders the result list.
func (r *ResultList) View() string {
	if len(r.results) == 0 {
		return r.styles.Muted.Render("Aucun résultat trouvé.")
	}

	lines := make([]string, 0, len(r.results)+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("%d fragments", len(r.results))), "")

	// Each result takes three lines; an expanded one takes the rest of the height.
	visibleCount := (r.height - 4) / 3
	if r.expanded {
		visibleCount = 1
	}
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if r.selected >= visibleCount {
		start = r.selected - visibleCount + 1
	}
	end := start + visibleCount
	if end > len(r.results) {
		end = len(r.results)
	}

	for i := start; i < end; i++ {
		lines = append(lines, r.renderResult(i, &r.results[i]))
	}

	return strings.Join(lines, "\n")
}

// renderResult formats one fragment: heading with score, origin, then text.
func (r *ResultList) renderResult(index int, result *domain.SearchResult) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	heading := fmt.Sprintf("%sRésultat %d", indicator, result.Rank)
	if index == r.selected {
		heading = r.styles.Selected.Render(heading)
	} else {
		heading = r.styles.Normal.Render(heading)
	}
	score := r.styles.Score(result.Score).Render(
		fmt.Sprintf("%s %.2f", textutil.ScoreBar(result.Score, BarWidth), result.Score))

	origin := r.styles.Muted.Render(fmt.Sprintf("    fiche %s, fragment %d", shortID(result.DocumentID), result.SequenceIndex))

	if index == r.selected && r.expanded {
		text := textutil.Truncate(result.Text, r.maxChars)
		excerpt := r.styles.Excerpt.Width(maxInt(r.width-8, 20)).Render(text)
		return heading + "  " + score + "\n" + origin + "\n" + indent(excerpt, "    ")
	}

	preview := strings.Join(strings.Fields(result.Text), " ")
	preview = textutil.Truncate(preview, maxInt(r.width-16, 20))
	return heading + "  " + score + "\n" + origin + "\n" + r.styles.Muted.Render(fmt.Sprintf("    Texte : %q", preview))
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SetResults updates the result list and collapses any expanded entry.
func (r *ResultList) SetResults(results []domain.SearchResult) {
	r.results = results
	r.selected = 0
	r.expanded = false
}

// Results returns the current results.
func (r *ResultList) Results() []domain.SearchResult {
	return r.results
}

// SetMaxChars bounds the expanded text. Non-positive values keep the default.
func (r *ResultList) SetMaxChars(n int) {
	if n > 0 {
		r.maxChars = n
	}
}

// Selected returns the index of the selected result.
func (r *ResultList) Selected() int {
	return r.selected
}

// SetSelected sets the selected index.
func (r *ResultList) SetSelected(index int) {
	if index >= 0 && index < len(r.results) {
		r.selected = index
	}
}

// SelectedResult returns the currently selected result, or nil if none.
func (r *ResultList) SelectedResult() *domain.SearchResult {
	if len(r.results) == 0 || r.selected < 0 || r.selected >= len(r.results) {
		return nil
	}
	return &r.results[r.selected]
}

// ToggleExpanded shows or hides the full text of the selected result.
func (r *ResultList) ToggleExpanded() {
	if len(r.results) > 0 {
		r.expanded = !r.expanded
	}
}

// Expanded reports whether the selected result shows its full text.
func (r *ResultList) Expanded() bool {
	return r.expanded
}

// MoveUp moves selection up.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
		r.expanded = false
	}
}

// MoveDown moves selection down.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.results)-1 {
		r.selected++
		r.expanded = false
	}
}

// SetDimensions sets the component dimensions.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of results.
func (r *ResultList) Count() int {
	return len(r.results)
}

// IsEmpty returns whether the list is empty.
func (r *ResultList) IsEmpty() bool {
	return len(r.results) == 0
}
