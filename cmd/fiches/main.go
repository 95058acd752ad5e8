// Command fiches ingests technical data sheets and answers questions about
// them by semantic search.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/custodia-labs/fiches/internal/adapters/driven/config/file"
	"github.com/custodia-labs/fiches/internal/adapters/driving/cli"
	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := file.LoadDotEnv(".env"); err != nil {
		return err
	}

	store, err := file.NewConfigStore(os.Getenv("FICHES_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}

	settings, err := file.LoadSettings(store, os.LookupEnv)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidSettings) {
			return err
		}
		// Keep going so "fiches config" can show and fix the values.
		logger.Warn("%v", err)
	}

	cli.SetVersion(version)
	cli.Configure(settings, store, build)
	return cli.Execute(ctx)
}
