package driving

import (
	"context"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

// SearchService provides semantic search to external actors.
type SearchService interface {
	// Search embeds the query and returns the top-k most similar fragments.
	// Embedding and storage failures are returned directly.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
