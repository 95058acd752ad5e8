// Package ai provides factory functions for creating the embedding service
// from settings.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/fiches/internal/adapters/driven/embedding"
	geminiembed "github.com/custodia-labs/fiches/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/fiches/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/fiches/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, settings)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable (%w). Check 'fiches config' for embedding settings",
			domain.ErrEmbeddingUnavailable, settings.Provider, err)
	}
	return svc, nil
}

// CreateEmbeddingService creates the provider adapter for settings and wraps
// it in a rate-limited circuit breaker.
func CreateEmbeddingService(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: provider %q is not configured", domain.ErrEmbeddingUnavailable, settings.Provider)
	}

	svc, err := createProvider(ctx, settings)
	if err != nil {
		return nil, err
	}

	cfg := embedding.DefaultGuardConfig()
	cfg.RequestsPerSecond = settings.RequestsPerSecond
	return embedding.NewGuard(svc, cfg), nil
}

func createProvider(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	model := settings.Model
	if model == "" {
		model = domain.DefaultEmbeddingModels()[settings.Provider]
	}
	dimensions := ResolveDimensions(model, settings.Dimensions)

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      model,
			Dimensions: dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      model,
			Dimensions: dimensions,
		})

	case domain.AIProviderGemini:
		return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
			APIKey:     settings.APIKey,
			Model:      model,
			Dimensions: dimensions,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// ResolveDimensions returns the configured size, or the known size of model.
// Zero means the adapter default applies.
func ResolveDimensions(model string, configured int) int {
	if configured > 0 {
		return configured
	}
	return domain.EmbeddingDimensions()[model]
}
