package mcp

import (
	"github.com/custodia-labs/fiches/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search answers questions against stored fragments.
	Search driving.SearchService

	// Ingestion resets stored documents.
	Ingestion driving.IngestionService

	// Runs reads the ingestion run ledger.
	Runs driving.RunHistoryService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	// Ingestion and Runs are optional; their tools report unavailability.
	return nil
}
