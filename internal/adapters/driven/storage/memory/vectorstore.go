package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// Queries scan every record; it is meant for tests and small corpora.
type VectorStore struct {
	mu         sync.RWMutex
	dimensions int
	nextID     int64
	documents  map[string]map[int]domain.StoredRecord
}

// NewVectorStore creates an empty store for vectors of the given size.
// A non-positive dimensions accepts any size.
func NewVectorStore(dimensions int) *VectorStore {
	return &VectorStore{
		dimensions: dimensions,
		documents:  make(map[string]map[int]domain.StoredRecord),
	}
}

// Upsert inserts records, replacing any with the same key.
func (s *VectorStore) Upsert(_ context.Context, records ...domain.StoredRecord) error {
	if err := s.check(records); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.put(r)
	}
	return nil
}

// ReplaceDocument swaps the full record set of a document.
// Validation happens before any change, so a rejected set leaves the old one intact.
func (s *VectorStore) ReplaceDocument(ctx context.Context, documentID string, records []domain.StoredRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range records {
		if r.DocumentID != documentID {
			return fmt.Errorf("%w: record for %q in replace of %q", domain.ErrInvalidInput, r.DocumentID, documentID)
		}
	}
	if err := s.check(records); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, documentID)
	for _, r := range records {
		s.put(r)
	}
	return nil
}

// DeleteByDocument removes every record for documentID.
func (s *VectorStore) DeleteByDocument(_ context.Context, documentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.documents[documentID])
	delete(s.documents, documentID)
	return n, nil
}

// DeleteAll removes every record.
func (s *VectorStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = make(map[string]map[int]domain.StoredRecord)
	return nil
}

// QueryTopK returns the k most similar records by cosine similarity.
// Ties are broken by document ID then sequence index.
func (s *VectorStore) QueryTopK(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	if s.dimensions > 0 && len(vector) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, store has %d",
			domain.ErrInvalidInput, len(vector), s.dimensions)
	}

	s.mu.RLock()
	results := make([]domain.SearchResult, 0, s.countLocked())
	for _, records := range s.documents {
		for _, r := range records {
			results = append(results, domain.SearchResult{
				DocumentID:    r.DocumentID,
				SequenceIndex: r.SequenceIndex,
				Text:          r.Text,
				Score:         CosineSimilarity(vector, r.Vector),
			})
		}
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		return a.SequenceIndex < b.SequenceIndex
	})

	if len(results) > k {
		results = results[:k]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// CountByDocument returns the number of records stored for documentID.
func (s *VectorStore) CountByDocument(_ context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents[documentID]), nil
}

// Count returns the total number of records.
func (s *VectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(), nil
}

// Records returns a document's records in sequence order.
func (s *VectorStore) Records(documentID string) []domain.StoredRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.StoredRecord, 0, len(s.documents[documentID]))
	for _, r := range s.documents[documentID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceIndex < out[j].SequenceIndex })
	return out
}

// Close is a no-op.
func (s *VectorStore) Close() error {
	return nil
}

func (s *VectorStore) check(records []domain.StoredRecord) error {
	for _, r := range records {
		if r.DocumentID == "" {
			return fmt.Errorf("%w: record without document ID", domain.ErrInvalidInput)
		}
		if s.dimensions > 0 && len(r.Vector) != s.dimensions {
			return fmt.Errorf("%w: vector has %d dimensions, store has %d",
				domain.ErrInvalidInput, len(r.Vector), s.dimensions)
		}
	}
	return nil
}

// put stores r; the caller holds the write lock.
func (s *VectorStore) put(r domain.StoredRecord) {
	records, ok := s.documents[r.DocumentID]
	if !ok {
		records = make(map[int]domain.StoredRecord)
		s.documents[r.DocumentID] = records
	}
	s.nextID++
	r.ID = s.nextID
	r.Vector = append([]float32(nil), r.Vector...)
	records[r.SequenceIndex] = r
}

func (s *VectorStore) countLocked() int {
	n := 0
	for _, records := range s.documents {
		n += len(records)
	}
	return n
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, sim))
}
