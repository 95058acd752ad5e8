package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

// DemoQuestion is the reference question asked by "fiches demo".
const DemoQuestion = "Améliorant de panification : quelles sont les quantités recommandées " +
	"d'alpha-amylase, xylanase et d'Acide ascorbique ?"

var (
	queryTopK int
	queryJSON bool
	queryBars bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a question with the most similar fragments",
	Long: `Embeds the question and prints the k fragments closest to it by cosine
similarity, best first, as "Résultat N" blocks.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return ask(cmd.Context(), cmd.OutOrStdout(), args[0], queryTopK, queryJSON, queryBars)
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Ask the reference demonstration question",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.Printf("Question : %s\n\n", DemoQuestion)
		return ask(cmd.Context(), cmd.OutOrStdout(), DemoQuestion, 0, false, queryBars)
	},
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of fragments to return (0 = configured value)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	for _, c := range []*cobra.Command{queryCmd, demoCmd} {
		c.Flags().BoolVar(&queryBars, "bars", true, "draw a score bar after each score")
	}
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(demoCmd)
}

// ask runs one question and renders the answer to w.
func ask(ctx context.Context, w io.Writer, question string, k int, asJSON, bars bool) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("empty question: %w", domain.ErrInvalidInput)
	}

	svc, err := services(ctx, nil)
	if err != nil {
		return err
	}
	if svc.Search == nil {
		return errors.New("search service not configured")
	}

	if k <= 0 {
		k = settings.Search.TopK
	}
	results, err := svc.Search.Search(ctx, question, domain.SearchOptions{Limit: k})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if asJSON {
		return renderJSON(w, question, results)
	}
	renderResults(w, results, settings.Search.MaxDisplayChars, bars)
	return nil
}
