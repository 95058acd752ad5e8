package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
	"github.com/custodia-labs/fiches/internal/core/ports/driving"
	"github.com/custodia-labs/fiches/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService embeds a question and ranks stored fragments against it.
type SearchService struct {
	embedder     driven.EmbeddingService
	store        driven.VectorStore
	defaultLimit int
}

// NewSearchService creates a new search service.
// A non-positive defaultLimit falls back to the default top-k.
func NewSearchService(embedder driven.EmbeddingService, store driven.VectorStore, defaultLimit int) *SearchService {
	if defaultLimit <= 0 {
		defaultLimit = domain.DefaultSettings().Search.TopK
	}
	return &SearchService{
		embedder:     embedder,
		store:        store,
		defaultLimit: defaultLimit,
	}
}

// Search embeds the query and returns the top-k most similar fragments.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.store == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	logger.Debug("Limit: %d", limit)

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, asEmbeddingError(err)
	}
	if dims := s.embedder.Dimensions(); len(vector) != dims {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, want %d",
			domain.ErrEmbeddingService, len(vector), dims)
	}

	results, err := s.store.QueryTopK(ctx, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrStorage, err)
	}
	logger.Debug("Returning %d results", len(results))
	return results, nil
}
