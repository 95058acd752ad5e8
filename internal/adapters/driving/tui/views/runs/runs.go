// Package runs provides the latest ingestion run view for the TUI.
package runs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/fiches/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/fiches/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/fiches/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driving"
)

// View shows the summary and per-document outcomes of the latest run.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	runs   driving.RunHistoryService
	ctx    context.Context

	run          *domain.RunRecord
	outcomes     []domain.DocumentOutcome
	failuresOnly bool
	loading      bool
	scrollOffset int
	width        int
	height       int
	err          error
}

// NewView creates a run view reading from the run ledger.
func NewView(s *styles.Styles, km *keymap.KeyMap, runs driving.RunHistoryService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles: s,
		keymap: km,
		runs:   runs,
		ctx:    context.Background(),
		width:  80,
		height: 24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the latest run.
func (v *View) Init() tea.Cmd {
	return v.load()
}

func (v *View) load() tea.Cmd {
	v.loading = true
	svc, ctx := v.runs, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.RunLoaded{Err: domain.ErrNotFound}
		}
		run, outcomes, err := svc.LatestRun(ctx)
		return messages.RunLoaded{Run: run, Outcomes: outcomes, Err: err}
	}
}

// Update handles messages for the run view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.RunLoaded:
		v.loading = false
		v.scrollOffset = 0
		v.err = msg.Err
		v.run, v.outcomes = msg.Run, msg.Outcomes
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case keymap.Matches(k, v.keymap.Up):
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case keymap.Matches(k, v.keymap.Down):
		if v.scrollOffset < v.maxScrollOffset() {
			v.scrollOffset++
		}
	case keymap.Matches(k, v.keymap.FailuresOnly):
		v.failuresOnly = !v.failuresOnly
		v.scrollOffset = 0
	case keymap.Matches(k, v.keymap.Refresh):
		return v, v.load()
	}
	return v, nil
}

// Visible returns the outcomes shown under the current filter.
func (v *View) Visible() []domain.DocumentOutcome {
	if !v.failuresOnly {
		return v.outcomes
	}
	var out []domain.DocumentOutcome
	for _, o := range v.outcomes {
		if o.Status != domain.StatusDone {
			out = append(out, o)
		}
	}
	return out
}

func (v *View) visibleLines() int {
	// Title, summary block and help footer.
	available := v.height - 14
	if available < 1 {
		available = 1
	}
	return available
}

func (v *View) maxScrollOffset() int {
	n := len(v.Visible()) - v.visibleLines()
	if n < 0 {
		return 0
	}
	return n
}

// View renders the run view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Dernière ingestion"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", minInt(v.width-4, 60)))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Chargement..."))
	case errors.Is(v.err, domain.ErrNotFound):
		b.WriteString(v.styles.Muted.Render("Aucune ingestion enregistrée."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case v.run != nil:
		v.renderRun(&b)
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓] scroll  [f] failures only  [r] refresh  [esc] back"))
	return b.String()
}

func (v *View) renderRun(b *strings.Builder) {
	r := v.run
	field := func(label, value string) {
		b.WriteString(v.styles.Subtitle.Render(fmt.Sprintf("%-12s", label+":")))
		b.WriteString(v.styles.Normal.Render(" " + value))
		b.WriteString("\n")
	}

	field("Run", r.ID)
	field("Source", r.Source)
	field("Démarré", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	field("Durée", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String())
	field("Documents", fmt.Sprintf("%d tentés, %d réussis, %d échecs, %d ignorés",
		r.Attempted, r.Succeeded, r.Failed, r.Skipped))
	field("Fragments", fmt.Sprintf("%d", r.TotalFragments))
	if r.Aborted {
		b.WriteString(v.styles.Warning.Render("Interrompu avant la fin."))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	visible := v.Visible()
	if len(visible) == 0 {
		if v.failuresOnly {
			b.WriteString(v.styles.Success.Render("Aucun échec."))
		}
		return
	}

	end := minInt(v.scrollOffset+v.visibleLines(), len(visible))
	for _, o := range visible[v.scrollOffset:end] {
		b.WriteString(v.renderOutcome(o))
		b.WriteString("\n")
	}
	if len(visible) > v.visibleLines() {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]", v.scrollOffset+1, end, len(visible))))
	}
}

func (v *View) renderOutcome(o domain.DocumentOutcome) string {
	status := v.styles.Status(string(o.Status)).Render(fmt.Sprintf("%-8s", o.Status))
	line := fmt.Sprintf("%s %s", status, o.Path)
	switch o.Status {
	case domain.StatusDone:
		line += v.styles.Muted.Render(fmt.Sprintf("  %d fragments", o.Fragments))
	case domain.StatusFailed, domain.StatusSkipped:
		if o.Stage != "" {
			line += v.styles.Muted.Render(fmt.Sprintf("  [%s]", o.Stage))
		}
		if o.Cause != "" {
			line += " " + v.styles.Normal.Render(o.Cause)
		}
	}
	return line
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// Run returns the loaded run, if any.
func (v *View) Run() *domain.RunRecord {
	return v.run
}

// FailuresOnly reports whether successful documents are hidden.
func (v *View) FailuresOnly() bool {
	return v.failuresOnly
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
