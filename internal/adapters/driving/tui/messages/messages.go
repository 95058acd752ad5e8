// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/fiches/internal/core/domain"
)

// SearchCompleted carries search results back to the model.
type SearchCompleted struct {
	Query   string
	Results []domain.SearchResult
	Err     error
}

// RunLoaded carries the latest ingestion run back to the model.
type RunLoaded struct {
	Run      *domain.RunRecord
	Outcomes []domain.DocumentOutcome
	Err      error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewSearch is the question input and results view.
	ViewSearch
	// ViewRuns shows the latest ingestion run.
	ViewRuns
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the view name.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewSearch:
		return "search"
	case ViewRuns:
		return "runs"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred is sent when an error needs to be displayed.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
