// Package mcp provides an MCP (Model Context Protocol) server adapter for fiches.
// It lets AI assistants query the data sheet corpus and inspect ingestion runs.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrUnavailable is returned by tools whose backing service is not configured.
var ErrUnavailable = errors.New("mcp: service not configured")
