package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fiches/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Prints every setting after defaults, the config file and environment
variables have been applied. Secrets are masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var section string
		for _, e := range file.Entries(settings) {
			prefix, name, _ := strings.Cut(e.Key, ".")
			if prefix != section {
				if section != "" {
					cmd.Println()
				}
				cmd.Printf("[%s]\n", prefix)
				section = prefix
			}
			cmd.Printf("  %-20s %s\n", name, e.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a setting in the config file",
	Long: `Stores a setting in the config file. Environment variables still take
precedence over stored values.

Keys: ` + strings.Join(file.KnownKeys(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, raw := args[0], args[1]
		if configStore == nil {
			return errors.New("config store not configured")
		}
		if !file.IsKnownKey(key) {
			return fmt.Errorf("unknown key %q", key)
		}
		value, err := file.ParseValue(key, raw)
		if err != nil {
			return err
		}
		if err := configStore.Set(key, value); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		cmd.Printf("%s = %v\n", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
