package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultSectionHeaders match the header lines of the usual data sheet
// sections, in French and English. Each pattern must match a whole line.
var DefaultSectionHeaders = []string{
	`Résumé Général`,
	`Propriétés Principales`,
	`Points Importants`,
	`Dosages? Recommandés?.*`,
	`Spécifications Techniques`,
	`Conditionnement.*`,
	`Mode d'Emploi.*`,
	`Avantages et Limitations`,
	`Réglementation`,
	`Stockage et Sécurité`,
	`Product Description`,
	`Application`,
	`Usage`,
	`Packaging.*`,
	`Storage.*`,
	`Technical Data.*`,
}

// DefaultSectionPattern is DefaultSectionHeaders compiled.
var DefaultSectionPattern = regexp.MustCompile(headerExpr(DefaultSectionHeaders))

// CompileSectionHeaders builds a line-anchored, case-insensitive pattern
// matching any of the given header patterns.
func CompileSectionHeaders(headers []string) (*regexp.Regexp, error) {
	if len(headers) == 0 {
		return nil, nil
	}
	re, err := regexp.Compile(headerExpr(headers))
	if err != nil {
		return nil, fmt.Errorf("section headers: %w", err)
	}
	return re, nil
}

func headerExpr(headers []string) string {
	return `(?im)^[ \t]*(?:` + strings.Join(headers, "|") + `)[ \t]*$`
}

// SplitSections cuts text before every line matching header. Each section
// after the first starts with its header line. Blank sections are dropped.
// A nil pattern returns the whole text as one section.
func SplitSections(text string, header *regexp.Regexp) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if header == nil {
		return []string{text}
	}

	var sections []string
	start := 0
	for _, loc := range header.FindAllStringIndex(text, -1) {
		if s := text[start:loc[0]]; strings.TrimSpace(s) != "" {
			sections = append(sections, s)
		}
		start = loc[0]
	}
	if s := text[start:]; strings.TrimSpace(s) != "" {
		sections = append(sections, s)
	}
	return sections
}
