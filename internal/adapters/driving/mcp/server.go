package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/fiches/internal/logger"
)

// Version is reported when the caller does not set one.
const Version = "0.1.0"

const instructions = `fiches answers questions about technical data sheets.
Call "search" with a question in the language of the sheets; each result is a
fragment of a sheet with its cosine similarity score. "ingest_status" reports
the last ingestion run and "reset_document" forces one sheet to be re-ingested.`

const shutdownTimeout = 5 * time.Second

// Server is the MCP server for fiches.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a server over ports. version defaults to Version.
func NewServer(ports *Ports, version string) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if version == "" {
		version = Version
	}

	impl := &mcp.Implementation{Name: "fiches", Version: version}
	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, &mcp.ServerOptions{Instructions: instructions}),
	}

	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves over stdio until the context is cancelled or the client leaves.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves streamable HTTP on addr until the context is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp: shutdown: %v", err)
		}
	}()

	logger.Debug("mcp: listening on %s", addr)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
