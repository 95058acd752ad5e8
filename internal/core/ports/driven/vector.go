package driven

import (
	"context"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

// VectorStore persists fragment vectors and answers similarity queries.
// Backed by PostgreSQL with pgvector in production.
//
// Implementations must be safe for concurrent use by multiple document
// workers writing disjoint document IDs.
type VectorStore interface {
	// Upsert inserts records, replacing any with the same
	// (document ID, sequence index) key.
	Upsert(ctx context.Context, records ...domain.StoredRecord) error

	// ReplaceDocument atomically deletes every record for documentID and
	// inserts records. Either the full set is committed or nothing changes.
	ReplaceDocument(ctx context.Context, documentID string, records []domain.StoredRecord) error

	// DeleteByDocument removes every record for documentID.
	// Returns the number of records removed.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)

	// DeleteAll removes every record.
	DeleteAll(ctx context.Context) error

	// QueryTopK returns the k records most similar to vector, sorted by
	// descending cosine similarity.
	QueryTopK(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error)

	// CountByDocument returns the number of records stored for documentID.
	CountByDocument(ctx context.Context, documentID string) (int, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
