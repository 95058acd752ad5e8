package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

var (
	statusFailures bool
	statusHistory  int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last ingestion run",
	Long: `Shows the counts of the most recent ingestion run. With --failures the
failed documents are listed with their stage and cause. With --history N
the N most recent runs are listed instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := services(cmd.Context(), nil)
		if err != nil {
			return err
		}
		if svc.Runs == nil {
			return errors.New("run history not configured")
		}
		out := cmd.OutOrStdout()

		if statusHistory > 0 {
			runs, err := svc.Runs.ListRuns(cmd.Context(), statusHistory)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			if len(runs) == 0 {
				cmd.Println("Aucune ingestion enregistrée.")
				return nil
			}
			for i := range runs {
				renderRunLine(out, &runs[i])
			}
			return nil
		}

		run, outcomes, err := svc.Runs.LatestRun(cmd.Context())
		if errors.Is(err, domain.ErrNotFound) {
			cmd.Println("Aucune ingestion enregistrée.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load run: %w", err)
		}

		renderRun(out, run)
		if statusFailures {
			renderFailures(out, outcomes)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusFailures, "failures", false, "list failed documents")
	statusCmd.Flags().IntVar(&statusHistory, "history", 0, "list the N most recent runs")
	rootCmd.AddCommand(statusCmd)
}

func renderRun(w io.Writer, run *domain.RunRecord) {
	fmt.Fprintf(w, "Run        : %s\n", run.ID)
	fmt.Fprintf(w, "Source     : %s\n", run.Source)
	fmt.Fprintf(w, "Démarré    : %s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Durée      : %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "Documents  : %d tentés, %d réussis, %d échecs, %d ignorés\n",
		run.Attempted, run.Succeeded, run.Failed, run.Skipped)
	fmt.Fprintf(w, "Fragments  : %d\n", run.TotalFragments)
	if run.Aborted {
		fmt.Fprintln(w, "Interrompu avant la fin.")
	}
}

func renderRunLine(w io.Writer, run *domain.RunRecord) {
	mark := ""
	if run.Aborted {
		mark = " (interrompu)"
	}
	fmt.Fprintf(w, "%s  %s  %d/%d réussis, %d échecs, %d fragments  %s%s\n",
		run.StartedAt.Local().Format(time.DateTime), run.ID,
		run.Succeeded, run.Attempted, run.Failed, run.TotalFragments, run.Source, mark)
}

func renderFailures(w io.Writer, outcomes []domain.DocumentOutcome) {
	var n int
	for _, o := range outcomes {
		if o.Status != domain.StatusFailed {
			continue
		}
		if n == 0 {
			fmt.Fprintln(w, "\nDocuments en échec :")
		}
		n++
		fmt.Fprintf(w, "  ✗ %s [%s] %s\n", o.Path, o.Stage, o.Cause)
	}
	if n == 0 {
		fmt.Fprintln(w, "\nAucun échec.")
	}
}
