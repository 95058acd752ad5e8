package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

// DefaultSearchLimit is the number of results when the caller gives none.
const DefaultSearchLimit = 3

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the question to answer from the data sheets"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of fragments to return (default 3)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single ranked fragment.
type SearchResultOutput struct {
	Rank          int     `json:"rank"`
	DocumentID    string  `json:"document_id"`
	SequenceIndex int     `json:"sequence_index"`
	Text          string  `json:"text"`
	Score         float64 `json:"score"`
}

// IngestStatusInput is the input schema for the ingest_status tool.
type IngestStatusInput struct {
	FailuresOnly bool `json:"failures_only,omitempty" jsonschema:"only list documents that failed or were skipped"`
}

// IngestStatusOutput describes the latest ingestion run.
type IngestStatusOutput struct {
	RunID          string            `json:"run_id"`
	Source         string            `json:"source"`
	StartedAt      string            `json:"started_at"`
	Attempted      int               `json:"attempted"`
	Succeeded      int               `json:"succeeded"`
	Failed         int               `json:"failed"`
	Skipped        int               `json:"skipped"`
	TotalFragments int               `json:"total_fragments"`
	Aborted        bool              `json:"aborted"`
	Documents      []DocumentOutcome `json:"documents"`
}

// DocumentOutcome is one document's result within a run.
type DocumentOutcome struct {
	DocumentID string `json:"document_id"`
	Path       string `json:"path"`
	Status     string `json:"status"`
	Stage      string `json:"stage,omitempty"`
	Cause      string `json:"cause,omitempty"`
	Fragments  int    `json:"fragments"`
}

// ResetDocumentInput is the input schema for the reset_document tool.
type ResetDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"identifier of the document whose fragments are removed"`
}

// ResetDocumentOutput reports how many fragments were removed.
type ResetDocumentOutput struct {
	DocumentID string `json:"document_id"`
	Removed    int    `json:"removed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the data sheet fragments most similar to a question",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_status",
		Description: "Summarise the latest ingestion run and its per-document outcomes",
	}, s.handleIngestStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reset_document",
		Description: "Remove every stored fragment of a document so it can be re-ingested",
	}, s.handleResetDocument)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	results, err := s.ports.Search.Search(ctx, input.Query, domain.SearchOptions{Limit: limit})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			Rank:          results[i].Rank,
			DocumentID:    results[i].DocumentID,
			SequenceIndex: results[i].SequenceIndex,
			Text:          results[i].Text,
			Score:         results[i].Score,
		}
	}
	return nil, output, nil
}

// handleIngestStatus handles the ingest_status tool invocation.
func (s *Server) handleIngestStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestStatusInput,
) (*mcp.CallToolResult, IngestStatusOutput, error) {
	if s.ports.Runs == nil {
		return nil, IngestStatusOutput{}, fmt.Errorf("ingest_status: %w", ErrUnavailable)
	}

	run, outcomes, err := s.ports.Runs.LatestRun(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, IngestStatusOutput{}, errors.New("no ingestion run recorded yet")
	}
	if err != nil {
		return nil, IngestStatusOutput{}, err
	}

	output := IngestStatusOutput{
		RunID:          run.ID,
		Source:         run.Source,
		StartedAt:      run.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Attempted:      run.Attempted,
		Succeeded:      run.Succeeded,
		Failed:         run.Failed,
		Skipped:        run.Skipped,
		TotalFragments: run.TotalFragments,
		Aborted:        run.Aborted,
		Documents:      make([]DocumentOutcome, 0, len(outcomes)),
	}
	for i := range outcomes {
		o := outcomes[i]
		if input.FailuresOnly && o.Status == domain.StatusDone {
			continue
		}
		output.Documents = append(output.Documents, DocumentOutcome{
			DocumentID: o.DocumentID,
			Path:       o.Path,
			Status:     o.Status.String(),
			Stage:      o.Stage.String(),
			Cause:      o.Cause,
			Fragments:  o.Fragments,
		})
	}
	return nil, output, nil
}

// handleResetDocument handles the reset_document tool invocation.
func (s *Server) handleResetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ResetDocumentInput,
) (*mcp.CallToolResult, ResetDocumentOutput, error) {
	if s.ports.Ingestion == nil {
		return nil, ResetDocumentOutput{}, fmt.Errorf("reset_document: %w", ErrUnavailable)
	}
	id := strings.TrimSpace(input.DocumentID)

	removed, err := s.ports.Ingestion.Reset(ctx, id)
	if err != nil {
		return nil, ResetDocumentOutput{}, err
	}
	return nil, ResetDocumentOutput{DocumentID: id, Removed: removed}, nil
}
