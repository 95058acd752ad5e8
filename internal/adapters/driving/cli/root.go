// Package cli provides the fiches command-line interface built on cobra.
// It is a driving adapter: commands reach the core through driving ports
// supplied by the composition root.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
	"github.com/custodia-labs/fiches/internal/core/ports/driving"
	"github.com/custodia-labs/fiches/internal/logger"
)

// version is set at build time.
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "fiches",
	Short: "Semantic search over technical data sheets",
	Long: `fiches ingests technical data sheets (PDF, office and text files),
splits them into overlapping fragments, embeds them and stores the vectors
so questions can be answered with the most similar passages.

Run "fiches ingest <dir>" first, then "fiches query", "fiches demo" or
"fiches interactive" to ask questions.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
}

// SourceSpec names the document source for an ingestion.
// UseS3 selects the configured bucket, limited to S3Prefix, instead of Dir.
type SourceSpec struct {
	Dir      string
	S3Prefix string
	UseS3    bool
}

// Services holds the driving ports the commands use.
type Services struct {
	Ingestion driving.IngestionService
	Search    driving.SearchService
	Runs      driving.RunHistoryService

	// Source opens the document source described by spec.
	Source func(ctx context.Context, spec SourceSpec) (driven.DocumentSource, error)

	// Close releases stores and clients. Optional.
	Close func() error
}

// Builder creates services from the effective settings.
type Builder func(ctx context.Context, settings domain.Settings) (*Services, error)

var (
	settings    = domain.DefaultSettings()
	configStore driven.ConfigStore
	builder     Builder

	// current caches the services built for this invocation.
	current *Services
)

// Configure installs the loaded settings, the config store used by
// "config set" and the service builder.
func Configure(s domain.Settings, store driven.ConfigStore, b Builder) {
	settings = s
	configStore = store
	builder = b
	current = nil
}

// SetVersion sets the version reported by "fiches version".
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

// services builds the ports once, after applying command-line overrides.
func services(ctx context.Context, override func(*domain.Settings)) (*Services, error) {
	if current != nil {
		return current, nil
	}
	if builder == nil {
		return nil, errors.New("services not configured")
	}

	effective := settings
	if override != nil {
		override(&effective)
	}
	if err := effective.Validate(); err != nil {
		return nil, err
	}

	svc, err := builder(ctx, effective)
	if err != nil {
		return nil, fmt.Errorf("starting fiches: %w", err)
	}
	settings = effective
	current = svc
	return svc, nil
}

func closeServices() {
	if current == nil || current.Close == nil {
		return
	}
	if err := current.Close(); err != nil {
		logger.Warn("closing services: %v", err)
	}
	current = nil
}
