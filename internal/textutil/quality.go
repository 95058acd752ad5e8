package textutil

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SaturationChars is the non-whitespace length at which the length factor
// of Score stops growing.
const SaturationChars = 100

// Score estimates whether extracted text is usable, in [0, 1].
//
// The score is the product of a length factor (non-whitespace characters
// over SaturationChars, capped at 1) and the alphanumeric ratio, minus a
// penalty for U+FFFD replacement characters left by broken font encodings.
// It is monotonic in both character count and alphanumeric ratio.
func Score(text string) float64 {
	var total, alnum, replaced int
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			continue
		case r == utf8.RuneError:
			replaced++
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			alnum++
		}
		total++
	}
	if total == 0 {
		return 0
	}

	length := float64(total) / SaturationChars
	if length > 1 {
		length = 1
	}

	ratio := float64(alnum) / float64(total)
	penalty := 2 * float64(replaced) / float64(total)

	score := length * (ratio - penalty)
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}

// WordCount returns the number of whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Truncate shortens text to at most maxRunes runes, appending "..." when cut.
// A non-positive maxRunes returns text unchanged.
func Truncate(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxRunes])) + "..."
}

// ScoreBar renders a score in [0, 1] as a bar of width cells.
// Scores outside the range are clamped.
func ScoreBar(score float64, width int) string {
	if width <= 0 {
		return ""
	}
	score = math.Max(0, math.Min(1, score))
	filled := int(math.Round(score * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
