package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

// Document represents one data sheet discovered at the start of an ingestion run.
// It is never mutated once discovered.
type Document struct {
	// ID is the stable identifier derived from the document's location.
	ID string

	// SourceID identifies the document source (directory root or bucket prefix).
	SourceID string

	// Path is the location relative to the source root, using forward slashes.
	Path string

	// Name is the display name (the base file name).
	Name string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Size is the content length in bytes.
	Size int64

	// ContentHash is the hex SHA-256 of the raw bytes.
	ContentHash string

	// PageCount is the number of physical pages, set after extraction.
	PageCount int
}

// RawDocument represents opaque bytes fetched by a document source.
// It is the source's output before extraction.
type RawDocument struct {
	// Document carries the identity of the bytes.
	Document Document

	// Content is the raw bytes.
	Content []byte

	// Metadata contains source-specific key-value pairs.
	Metadata map[string]any

	// Err is set when the source listed the document but could not read it.
	Err error
}

// UnreadableDocument reports a listed document whose bytes could not be read.
func UnreadableDocument(sourceID, relPath, mimeType string, err error) RawDocument {
	doc := NewDocument(sourceID, relPath, mimeType, nil)
	doc.ContentHash = ""
	return RawDocument{Document: doc, Err: err}
}

// NewDocument builds a Document for content found at relPath under sourceID.
// The ID depends only on sourceID and the cleaned path, so re-running
// ingestion over the same tree yields the same identifiers.
func NewDocument(sourceID, relPath, mimeType string, content []byte) Document {
	clean := path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	sum := sha256.Sum256(content)

	return Document{
		ID:          DocumentID(sourceID, clean),
		SourceID:    sourceID,
		Path:        clean,
		Name:        path.Base(clean),
		MIMEType:    mimeType,
		Size:        int64(len(content)),
		ContentHash: hex.EncodeToString(sum[:]),
	}
}

// DocumentID returns the stable identifier for a path within a source.
func DocumentID(sourceID, relPath string) string {
	h := sha256.New()
	h.Write([]byte(sourceID))
	h.Write([]byte{0})
	h.Write([]byte(relPath))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ChangeType represents the type of document change.
type ChangeType int

const (
	// ChangeCreated indicates a new document.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified document.
	ChangeUpdated

	// ChangeDeleted indicates a removed document.
	ChangeDeleted
)

// String returns a lowercase name for the change.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// DocumentChange represents a change event from a watched source.
type DocumentChange struct {
	// Type is the kind of change.
	Type ChangeType

	// Path is the affected path relative to the source root.
	Path string
}
