package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// paragraphBreak matches blank lines and page breaks.
var paragraphBreak = regexp.MustCompile(`[ \t]*\f\s*|\n[ \t]*\n\s*`)

// SplitSentences segments text into sentences.
//
// Paragraphs are split on blank lines and page breaks. Within a paragraph,
// line breaks are folded into spaces and a sentence ends after '.', '!', '?'
// or ';' followed by whitespace. Sentences shorter than minChars runes are
// merged into the following sentence, or the preceding one at the end, so
// no text is dropped.
func SplitSentences(text string, minChars int) []string {
	var sentences []string
	for _, para := range paragraphBreak.Split(text, -1) {
		para = strings.Join(strings.Fields(para), " ")
		if para == "" {
			continue
		}
		sentences = append(sentences, splitParagraph(para)...)
	}
	return mergeShort(sentences, minChars)
}

func splitParagraph(para string) []string {
	var (
		out   []string
		start int
	)
	for i, r := range para {
		if !isTerminator(r) {
			continue
		}
		next := i + utf8.RuneLen(r)
		if next >= len(para) {
			break
		}
		nr, _ := utf8.DecodeRuneInString(para[next:])
		if !unicode.IsSpace(nr) {
			continue
		}
		if s := strings.TrimSpace(para[start:next]); s != "" {
			out = append(out, s)
		}
		start = next
	}
	if s := strings.TrimSpace(para[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == ';'
}

func mergeShort(sentences []string, minChars int) []string {
	if minChars <= 0 || len(sentences) < 2 {
		return sentences
	}

	out := make([]string, 0, len(sentences))
	pending := ""
	for _, s := range sentences {
		if pending != "" {
			s = pending + " " + s
			pending = ""
		}
		if utf8.RuneCountInString(s) < minChars {
			pending = s
			continue
		}
		out = append(out, s)
	}
	if pending != "" {
		if len(out) == 0 {
			return []string{pending}
		}
		out[len(out)-1] += " " + pending
	}
	return out
}
