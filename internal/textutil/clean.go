// Package textutil holds the text normalisation, scoring and counting helpers
// shared by extraction, chunking and display.
package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	controlChars   = regexp.MustCompile(`[\x{00}-\x{08}\x{0b}\x{0c}\x{0e}-\x{1f}\x{7f}-\x{9f}]`)
	pageLabel      = regexp.MustCompile(`(?i)\bpage\s+\d+(?:\s*(?:/|sur|of)\s*\d+)?\b`)
	dashedNumber   = regexp.MustCompile(`[-—–]\s*\d+\s*[-—–]`)
	pageFraction   = regexp.MustCompile(`(?m)^[ \t]*\d+\s*/\s*\d+[ \t]*$`)
	lonePageNumber = regexp.MustCompile(`(?m)^[ \t]*\d{1,3}[ \t]*$`)
	boilerplate    = regexp.MustCompile(`(?i)(confidential|proprietary|all rights reserved|©.*?\d{4})`)
	horizontalWS   = regexp.MustCompile(`[ \t]+`)
	blankRuns      = regexp.MustCompile(`\n{3,}`)
)

// Clean normalises extracted page text.
//
// It applies NFC normalisation, strips control characters, removes page
// numbering and legal boilerplate, collapses horizontal whitespace, trims
// every line and limits blank runs to a single empty line.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = controlChars.ReplaceAllString(text, "")

	text = pageLabel.ReplaceAllString(text, "")
	text = dashedNumber.ReplaceAllString(text, "")
	text = pageFraction.ReplaceAllString(text, "")
	text = lonePageNumber.ReplaceAllString(text, "")
	text = boilerplate.ReplaceAllString(text, "")

	text = horizontalWS.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
