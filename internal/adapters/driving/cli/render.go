package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/textutil"
)

// NoResults is printed when a question matches nothing.
const NoResults = "Aucun résultat trouvé."

const scoreBarWidth = 20

// displayText cuts text longer than maxChars to maxChars-3 runes plus "...".
func displayText(text string, maxChars int) string {
	if maxChars <= 3 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	return string([]rune(text)[:maxChars-3]) + "..."
}

// renderResults writes results as "Résultat N" blocks separated by a blank line.
// With bars set, each score is followed by a score bar.
func renderResults(w io.Writer, results []domain.SearchResult, maxChars int, bars bool) {
	if len(results) == 0 {
		fmt.Fprintln(w, NoResults)
		return
	}
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Résultat %d\n", r.Rank)
		fmt.Fprintf(w, "Texte : \"%s\"\n", displayText(r.Text, maxChars))
		if bars {
			fmt.Fprintf(w, "Score : %.2f  %s\n", r.Score, textutil.ScoreBar(r.Score, scoreBarWidth))
		} else {
			fmt.Fprintf(w, "Score : %.2f\n", r.Score)
		}
	}
}

type resultJSON struct {
	Rank          int     `json:"rank"`
	DocumentID    string  `json:"document_id"`
	SequenceIndex int     `json:"sequence_index"`
	Text          string  `json:"text"`
	Score         float64 `json:"score"`
}

func renderJSON(w io.Writer, question string, results []domain.SearchResult) error {
	out := struct {
		Question string       `json:"question"`
		Results  []resultJSON `json:"results"`
	}{Question: question, Results: make([]resultJSON, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, resultJSON{
			Rank:          r.Rank,
			DocumentID:    r.DocumentID,
			SequenceIndex: r.SequenceIndex,
			Text:          r.Text,
			Score:         r.Score,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	return nil
}

// renderSummary writes the end-of-run totals.
func renderSummary(w io.Writer, s *domain.Summary) {
	line := strings.Repeat("=", 48)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "  Ingestion terminée")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "  Documents traités  : %d\n", s.Succeeded)
	fmt.Fprintf(w, "  Documents ignorés  : %d\n", len(s.Skipped))
	fmt.Fprintf(w, "  Documents en échec : %d\n", len(s.Failed))
	fmt.Fprintf(w, "  Fragments insérés  : %d\n", s.TotalFragments)
	fmt.Fprintf(w, "  Durée              : %s\n", s.Elapsed.Round(time.Millisecond))
	if s.Aborted {
		fmt.Fprintln(w, "  Interrompu : les documents restants ont été ignorés.")
	}
	fmt.Fprintln(w, line)
}

// renderProgress formats one per-document progress line.
func renderProgress(ev domain.ProgressEvent) string {
	prefix := fmt.Sprintf("[%d/%d]", ev.Completed, ev.Total)
	switch ev.Status {
	case domain.StatusDone:
		return fmt.Sprintf("%s ✓ %s (%d fragments, %s)", prefix, ev.Name, ev.Fragments, ev.Elapsed.Round(time.Millisecond))
	case domain.StatusFailed:
		return fmt.Sprintf("%s ✗ %s: %s: %v", prefix, ev.Name, ev.Stage, domain.Cause(ev.Err))
	default:
		if ev.Err != nil {
			return fmt.Sprintf("%s ⊘ %s: %v", prefix, ev.Name, domain.Cause(ev.Err))
		}
		return fmt.Sprintf("%s ⊘ %s", prefix, ev.Name)
	}
}
