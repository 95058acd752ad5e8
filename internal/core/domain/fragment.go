package domain

// Fragment is one sentence-aligned chunk of document text.
type Fragment struct {
	// DocumentID links to the originating Document.
	DocumentID string

	// Index is the sequence index within the document, starting at 0.
	Index int

	// Text is the fragment content.
	Text string

	// WordCount is the number of words in the fragment's source sentences.
	WordCount int

	// Sentences is the number of whole sentences covered.
	Sentences int

	// Oversized marks a single sentence longer than the target window.
	Oversized bool
}

// StoredRecord is one row at the vector store boundary.
type StoredRecord struct {
	// ID is the store-assigned surrogate key. Zero before insertion.
	ID int64

	// DocumentID links to the originating Document.
	DocumentID string

	// SequenceIndex is the fragment's index within the document.
	SequenceIndex int

	// Text is the fragment text as embedded.
	Text string

	// Vector is the unit-length embedding.
	Vector []float32
}

// NewStoredRecords pairs fragments with their vectors in order.
// The caller guarantees len(fragments) == len(vectors).
func NewStoredRecords(fragments []Fragment, vectors [][]float32) []StoredRecord {
	records := make([]StoredRecord, len(fragments))
	for i := range fragments {
		records[i] = StoredRecord{
			DocumentID:    fragments[i].DocumentID,
			SequenceIndex: fragments[i].Index,
			Text:          fragments[i].Text,
			Vector:        vectors[i],
		}
	}
	return records
}
