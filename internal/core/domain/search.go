package domain

// SearchResult represents a single ranked fragment returned by the vector store.
type SearchResult struct {
	// Rank is the 1-based position in the result list.
	Rank int

	// DocumentID identifies the originating document.
	DocumentID string

	// SequenceIndex is the fragment's index within the document.
	SequenceIndex int

	// Text is the stored fragment text.
	Text string

	// Score is the cosine similarity in [-1, 1]; unit vectors from the same
	// model land in [0, 1] in practice.
	Score float64
}

// SearchOptions configures a query.
type SearchOptions struct {
	// Limit is the number of results (top-k).
	Limit int
}
