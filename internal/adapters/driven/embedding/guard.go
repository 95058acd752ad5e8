package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
	"github.com/custodia-labs/fiches/internal/logger"
)

// Ensure Guard implements the interface.
var _ driven.EmbeddingService = (*Guard)(nil)

// GuardConfig tunes the rate limiter and circuit breaker.
type GuardConfig struct {
	// RequestsPerSecond throttles calls; zero disables throttling.
	RequestsPerSecond float64

	// Burst is the limiter bucket size (default 1).
	Burst int

	// FailureRatio trips the breaker once at least MinRequests calls were made.
	FailureRatio float64
	MinRequests  uint32

	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// DefaultGuardConfig returns the breaker settings used for every provider.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Burst:        1,
		FailureRatio: 0.6,
		MinRequests:  3,
		OpenTimeout:  30 * time.Second,
	}
}

// Guard wraps an EmbeddingService with a rate limiter and a circuit breaker.
// Once the provider keeps failing, calls fail fast with ErrEmbeddingService
// instead of waiting out a timeout per document.
type Guard struct {
	next    driven.EmbeddingService
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewGuard wraps next.
func NewGuard(next driven.EmbeddingService, cfg GuardConfig) *Guard {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 3
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = 0.6
	}

	g := &Guard{next: next}
	if cfg.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding:" + next.ModelName(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && ratio >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// A cancelled caller says nothing about the provider.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return g
}

// Embed generates one embedding through the guard.
func (g *Guard) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch waits for the limiter, then calls the wrapped service unless
// the breaker is open.
func (g *Guard) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	out, err := g.breaker.Execute(func() (any, error) {
		vectors, err := g.next.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if err := CheckBatch(vectors, len(texts), g.next.Dimensions()); err != nil {
			return nil, err
		}
		return vectors, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s unavailable: %w", domain.ErrEmbeddingService, g.next.ModelName(), err)
		}
		return nil, err
	}
	return out.([][]float32), nil
}

// State returns the breaker state.
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}

// Dimensions returns the wrapped service's vector size.
func (g *Guard) Dimensions() int {
	return g.next.Dimensions()
}

// ModelName returns the wrapped service's model.
func (g *Guard) ModelName() string {
	return g.next.ModelName()
}

// Ping bypasses the breaker so a health check always reaches the provider.
func (g *Guard) Ping(ctx context.Context) error {
	return g.next.Ping(ctx)
}

// Close closes the wrapped service.
func (g *Guard) Close() error {
	return g.next.Close()
}
