package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var resetAll bool

var resetCmd = &cobra.Command{
	Use:   "reset [document-id]",
	Short: "Delete stored fragments",
	Long: `Deletes the stored fragments of one document so that the next ingestion
processes it again. With --all every fragment is deleted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if resetAll == (len(args) == 1) {
			return errors.New("give a document ID or --all")
		}

		svc, err := services(cmd.Context(), nil)
		if err != nil {
			return err
		}
		if svc.Ingestion == nil {
			return errors.New("ingestion service not configured")
		}

		if resetAll {
			if err := svc.Ingestion.ResetAll(cmd.Context()); err != nil {
				return fmt.Errorf("reset failed: %w", err)
			}
			cmd.Println("Index vidé.")
			return nil
		}

		n, err := svc.Ingestion.Reset(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
		cmd.Printf("%d fragments supprimés pour %s\n", n, args[0])
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "delete every stored fragment")
	rootCmd.AddCommand(resetCmd)
}
