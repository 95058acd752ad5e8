package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/fiches/internal/adapters/driving/tui"
)

var interactivePlain bool

// isTerminal reports whether the command can draw the TUI.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"tui"},
	Short:   "Ask questions until you quit",
	Long: `Starts a question loop. On a terminal the full-screen interface is used;
otherwise, or with --plain, questions are read line by line from stdin.

Controls (full screen):
  Enter    - Ask / show full fragment
  ↑/k, ↓/j - Navigate results, or recall earlier questions while typing
  n        - New question
  Esc      - Back
  Ctrl+C   - Quit

In plain mode an empty line is ignored and "exit" or end of input stops.`,
	Args: cobra.NoArgs,
	RunE: runInteractive,
}

func init() {
	interactiveCmd.Flags().BoolVar(&interactivePlain, "plain", false, "use the line-based loop even on a terminal")
	rootCmd.AddCommand(interactiveCmd)
}

func runInteractive(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	svc, err := services(ctx, nil)
	if err != nil {
		return err
	}

	if interactivePlain || !isTerminal() {
		return questionLoop(ctx, cmd, cmd.InOrStdin())
	}

	app, err := tui.NewApp(&tui.Ports{Search: svc.Search, Runs: svc.Runs}, settings.Search)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	if err := app.WithContext(ctx).Run(); err != nil && !errors.Is(err, ctx.Err()) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// questionLoop answers one question per input line.
func questionLoop(ctx context.Context, cmd *cobra.Command, in io.Reader) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, `Posez vos questions ("exit" pour quitter).`)
	for {
		fmt.Fprint(out, "\nVotre question : ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(question) {
		case "":
			fmt.Fprintln(out, "Veuillez entrer une question.")
			continue
		case "exit", "quit":
			fmt.Fprintln(out, "Session terminée. Au revoir !")
			return nil
		}

		fmt.Fprintln(out)
		if err := ask(ctx, out, question, 0, false, true); err != nil {
			// A failed question does not end the session.
			cmd.PrintErrf("Error: %v\n", err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Session terminée. Au revoir !")
	return scanner.Err()
}
