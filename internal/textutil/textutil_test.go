package textutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean_Empty(t *testing.T) {
	assert.Equal(t, "", Clean(""))
	assert.Equal(t, "", Clean("   \n\n\t "))
}

func TestClean_NormalisesToNFC(t *testing.T) {
	decomposed := "pa\u0301te"
	assert.Equal(t, "p\u00e1te", Clean(decomposed))
}

func TestClean_StripsControlCharacters(t *testing.T) {
	assert.Equal(t, "farinede blé", Clean("farine\x00de\x07 blé\x0c"))
}

func TestClean_RemovesPageNumbering(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"page label", "Dosage recommandé Page 3", "Dosage recommandé"},
		{"page label with total", "Page 2 sur 10\nFiche technique", "Fiche technique"},
		{"dashed number", "Levure - 12 - sèche", "Levure sèche"},
		{"lone number line", "Ingrédients\n12\nFarine", "Ingrédients\n\nFarine"},
		{"fraction line", "Farine T55\n3/4\nSel", "Farine T55\n\nSel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.input))
		})
	}
}

func TestClean_KeepsInlineRatios(t *testing.T) {
	got := Clean("Ratio eau/farine de 3/4 pour la pâte")
	assert.Contains(t, got, "3/4")
}

func TestClean_RemovesBoilerplate(t *testing.T) {
	got := Clean("Document CONFIDENTIAL\n© Bakery Corp 2021 fiche")
	assert.NotContains(t, strings.ToLower(got), "confidential")
	assert.NotContains(t, got, "©")
	assert.Contains(t, got, "fiche")
}

func TestClean_CollapsesWhitespace(t *testing.T) {
	got := Clean("  alpha   amylase\t\tdosage  \n\n\n\n\nxylanase  ")
	assert.Equal(t, "alpha amylase dosage\n\nxylanase", got)
}

func TestScore_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Score(""))
	assert.Equal(t, 0.0, Score("  \n\t"))
}

func TestScore_Bounds(t *testing.T) {
	for _, s := range []string{
		"a",
		strings.Repeat("farine ", 200),
		strings.Repeat("�", 50),
		"!!!???...",
	} {
		got := Score(s)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestScore_MonotonicInLength(t *testing.T) {
	short := Score(strings.Repeat("a", 10))
	medium := Score(strings.Repeat("a", 50))
	long := Score(strings.Repeat("a", 200))
	assert.Less(t, short, medium)
	assert.LessOrEqual(t, medium, long)
	assert.InDelta(t, 1.0, long, 1e-9)
}

func TestScore_MonotonicInAlphanumericRatio(t *testing.T) {
	clean := Score(strings.Repeat("ab", 100))
	noisy := Score(strings.Repeat("a.", 100))
	garbage := Score(strings.Repeat("..", 100))
	assert.Greater(t, clean, noisy)
	assert.Greater(t, noisy, garbage)
}

func TestScore_PenalisesReplacementCharacters(t *testing.T) {
	base := strings.Repeat("farine ", 30)
	broken := base + strings.Repeat("�", 20)
	assert.Less(t, Score(broken), Score(base))
}

func TestScore_ReadableParagraphPassesDefaultThreshold(t *testing.T) {
	text := "L'alpha-amylase fongique s'utilise entre 5 et 20 ppm sur le poids de farine. " +
		"La xylanase améliore la tolérance de la pâte."
	assert.GreaterOrEqual(t, Score(text), 0.5)
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 3, WordCount("  farine  eau\nsel "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "court", Truncate("court", 10))
	assert.Equal(t, "court", Truncate("court", 0))
	assert.Equal(t, "éèà...", Truncate("éèàùç", 3))
}

func TestScoreBar(t *testing.T) {
	assert.Equal(t, "", ScoreBar(0.5, 0))
	assert.Equal(t, "█████░░░░░", ScoreBar(0.5, 10))
	assert.Equal(t, "██████████", ScoreBar(1.4, 10))
	assert.Equal(t, "░░░░", ScoreBar(-0.2, 4))
	assert.Equal(t, "█████████░", ScoreBar(0.91, 10))
}
