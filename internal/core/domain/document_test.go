package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDocument(t *testing.T) {
	content := []byte("%PDF-1.4 data sheet")
	doc := NewDocument("src", "fiches/farine.pdf", "application/pdf", content)

	assert.Equal(t, "src", doc.SourceID)
	assert.Equal(t, "fiches/farine.pdf", doc.Path)
	assert.Equal(t, "farine.pdf", doc.Name)
	assert.Equal(t, "application/pdf", doc.MIMEType)
	assert.Equal(t, int64(len(content)), doc.Size)
	assert.Len(t, doc.ContentHash, 64)
	assert.Len(t, doc.ID, 16)
}

func TestDocumentID_Stable(t *testing.T) {
	a := NewDocument("src", "a/b.pdf", "application/pdf", []byte("one"))
	b := NewDocument("src", "a/./b.pdf", "application/pdf", []byte("two"))
	assert.Equal(t, a.ID, b.ID, "ID depends on location, not content")
	assert.NotEqual(t, a.ContentHash, b.ContentHash)

	c := NewDocument("other", "a/b.pdf", "application/pdf", []byte("one"))
	assert.NotEqual(t, a.ID, c.ID, "ID is scoped to the source")

	w := NewDocument("src", `a\b.pdf`, "application/pdf", nil)
	assert.Equal(t, a.ID, w.ID, "backslashes are normalised")
}

func TestChangeType_String(t *testing.T) {
	assert.Equal(t, "created", ChangeCreated.String())
	assert.Equal(t, "updated", ChangeUpdated.String())
	assert.Equal(t, "deleted", ChangeDeleted.String())
	assert.Equal(t, "unknown", ChangeType(9).String())
}

func TestNewStoredRecords(t *testing.T) {
	frags := []Fragment{
		{DocumentID: "d", Index: 0, Text: "a"},
		{DocumentID: "d", Index: 1, Text: "b"},
	}
	vecs := [][]float32{{1, 0}, {0, 1}}

	recs := NewStoredRecords(frags, vecs)
	assert.Len(t, recs, 2)
	assert.Equal(t, 1, recs[1].SequenceIndex)
	assert.Equal(t, "b", recs[1].Text)
	assert.Equal(t, []float32{0, 1}, recs[1].Vector)
}
