package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// URIScheme is the custom URI scheme for fiches resources.
	uriScheme = "fiches://"

	// recentRuns is the number of runs listed by the runs resource.
	recentRuns = 20
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "runs",
		Name:        "runs",
		Description: "Recent ingestion runs, newest first",
		MIMEType:    "application/json",
	}, s.handleRunsResource)
}

// runOutput is the JSON shape of one run in the runs resource.
type runOutput struct {
	ID             string `json:"id"`
	Source         string `json:"source"`
	StartedAt      string `json:"started_at"`
	FinishedAt     string `json:"finished_at"`
	Attempted      int    `json:"attempted"`
	Succeeded      int    `json:"succeeded"`
	Failed         int    `json:"failed"`
	Skipped        int    `json:"skipped"`
	TotalFragments int    `json:"total_fragments"`
	Aborted        bool   `json:"aborted"`
}

// handleRunsResource returns recent ingestion runs.
func (s *Server) handleRunsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	out := []runOutput{}
	if s.ports.Runs != nil {
		runs, err := s.ports.Runs.ListRuns(ctx, recentRuns)
		if err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		for i := range runs {
			r := runs[i]
			out = append(out, runOutput{
				ID:             r.ID,
				Source:         r.Source,
				StartedAt:      r.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
				FinishedAt:     r.FinishedAt.UTC().Format("2006-01-02T15:04:05Z"),
				Attempted:      r.Attempted,
				Succeeded:      r.Succeeded,
				Failed:         r.Failed,
				Skipped:        r.Skipped,
				TotalFragments: r.TotalFragments,
				Aborted:        r.Aborted,
			})
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling runs: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
