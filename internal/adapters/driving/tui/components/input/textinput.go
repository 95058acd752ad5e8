// Package input provides text input components for the TUI.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/fiches/internal/adapters/driving/tui/styles"
)

// MaxHistory bounds the number of remembered questions.
const MaxHistory = 50

// QuestionInput wraps a bubbles textinput and remembers asked questions.
type QuestionInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int

	history []string
	cursor  int
}

// NewQuestionInput creates a new question input component.
func NewQuestionInput(s *styles.Styles) *QuestionInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Posez votre question..."
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 50

	return &QuestionInput{
		textinput: ti,
		styles:    s,
		width:     50,
	}
}

// Init initialises the input.
func (q *QuestionInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages. Up and down walk the history.
func (q *QuestionInput) Update(msg tea.Msg) (*QuestionInput, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		//nolint:exhaustive // only history keys are intercepted
		switch k.Type {
		case tea.KeyUp:
			q.Previous()
			return q, nil
		case tea.KeyDown:
			q.Next()
			return q, nil
		}
	}
	var cmd tea.Cmd
	q.textinput, cmd = q.textinput.Update(msg)
	return q, cmd
}

// View renders the input.
func (q *QuestionInput) View() string {
	label := q.styles.Title.Render("Question : ")
	field := q.styles.InputField.Render(q.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Value returns the trimmed input value.
func (q *QuestionInput) Value() string {
	return strings.TrimSpace(q.textinput.Value())
}

// SetValue sets the input value.
func (q *QuestionInput) SetValue(value string) {
	q.textinput.SetValue(value)
	q.textinput.CursorEnd()
}

// Remember appends a question to the history, skipping blanks and repeats
// of the most recent entry.
func (q *QuestionInput) Remember(question string) {
	question = strings.TrimSpace(question)
	if question != "" && (len(q.history) == 0 || q.history[len(q.history)-1] != question) {
		q.history = append(q.history, question)
		if len(q.history) > MaxHistory {
			q.history = q.history[len(q.history)-MaxHistory:]
		}
	}
	q.cursor = len(q.history)
}

// History returns the remembered questions, oldest first.
func (q *QuestionInput) History() []string {
	return q.history
}

// Previous recalls the question before the cursor.
func (q *QuestionInput) Previous() {
	if q.cursor == 0 {
		return
	}
	q.cursor--
	q.SetValue(q.history[q.cursor])
}

// Next recalls the question after the cursor, or clears past the newest.
func (q *QuestionInput) Next() {
	if q.cursor >= len(q.history) {
		return
	}
	q.cursor++
	if q.cursor == len(q.history) {
		q.SetValue("")
		return
	}
	q.SetValue(q.history[q.cursor])
}

// Focus sets focus on the input.
func (q *QuestionInput) Focus() tea.Cmd {
	return q.textinput.Focus()
}

// Blur removes focus from the input.
func (q *QuestionInput) Blur() {
	q.textinput.Blur()
}

// Focused returns whether the input is focused.
func (q *QuestionInput) Focused() bool {
	return q.textinput.Focused()
}

// SetWidth sets the width of the input.
func (q *QuestionInput) SetWidth(width int) {
	q.width = width
	// Account for label and padding
	inputWidth := width - 14
	if inputWidth < 20 {
		inputWidth = 20
	}
	q.textinput.Width = inputWidth
}

// Width returns the current width.
func (q *QuestionInput) Width() int {
	return q.width
}

// Reset clears the input and rewinds the history cursor.
func (q *QuestionInput) Reset() {
	q.textinput.Reset()
	q.cursor = len(q.history)
}
