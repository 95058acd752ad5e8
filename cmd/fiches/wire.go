package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/fiches/internal/adapters/driven/ai"
	"github.com/custodia-labs/fiches/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/fiches/internal/adapters/driven/storage/pgvector"
	"github.com/custodia-labs/fiches/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/fiches/internal/adapters/driving/cli"
	"github.com/custodia-labs/fiches/internal/connectors/filesystem"
	"github.com/custodia-labs/fiches/internal/connectors/s3"
	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
	"github.com/custodia-labs/fiches/internal/core/services"
	"github.com/custodia-labs/fiches/internal/logger"
	"github.com/custodia-labs/fiches/internal/normalisers"
	"github.com/custodia-labs/fiches/internal/postprocessors"
)

// build wires the adapters for settings into the core services.
func build(ctx context.Context, settings domain.Settings) (*cli.Services, error) {
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	registry := normalisers.NewRegistry()
	normalisers.RegisterDefaults(registry, settings.Extraction)

	processors := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(processors)
	pipeline, err := postprocessors.BuildPipeline(processors, settings.Chunking)
	if err != nil {
		return nil, err
	}

	embedder, err := ai.CreateAndValidateEmbeddingService(ctx, settings.Embedding)
	if err != nil {
		return nil, err
	}
	closers = append(closers, embedder.Close)
	dims := settings.Embedding.Dimensions

	var vectors driven.VectorStore
	var runs driven.RunStore
	switch settings.Store {
	case domain.StoreMemory:
		logger.Debug("using in-memory stores")
		vectors = memory.NewVectorStore(dims)
		runs = memory.NewRunStore()
	default:
		pg, err := pgvector.Open(ctx, settings.Database.DSN(), dims)
		if err != nil {
			_ = closeAll()
			return nil, err
		}
		closers = append(closers, pg.Close)
		vectors = pg

		ledger, err := sqlite.NewStore("")
		if err != nil {
			_ = closeAll()
			return nil, fmt.Errorf("opening run history: %w", err)
		}
		closers = append(closers, ledger.Close)
		runs = ledger
	}

	return &cli.Services{
		Ingestion: services.NewIngestionOrchestrator(registry, pipeline, embedder, vectors, runs, settings),
		Search:    services.NewSearchService(embedder, vectors, settings.Search.TopK),
		Runs:      services.NewRunHistoryService(runs),
		Source: func(ctx context.Context, spec cli.SourceSpec) (driven.DocumentSource, error) {
			return openSource(ctx, settings, registry, spec)
		},
		Close: closeAll,
	}, nil
}

// openSource returns the directory or S3 source named by spec. Only files
// with a registered normaliser are listed.
func openSource(
	ctx context.Context,
	settings domain.Settings,
	registry *normalisers.Registry,
	spec cli.SourceSpec,
) (driven.DocumentSource, error) {
	if spec.UseS3 {
		bucket, err := s3.NewFromSettings(ctx, settings.S3, spec.S3Prefix, filesystem.DetectMIMEType)
		if err != nil {
			return nil, err
		}
		return bucket, nil
	}

	root, err := filepath.Abs(spec.Dir)
	if err != nil {
		return nil, err
	}
	supported := func(mimeType string) bool {
		_, ok := registry.Get(mimeType)
		return ok
	}
	return filesystem.New("file://"+filepath.ToSlash(root), root, filesystem.WithMIMEFilter(supported)), nil
}
