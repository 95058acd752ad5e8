// Package gemini provides an embedding service adapter using the Google
// Generative AI API.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/custodia-labs/fiches/internal/adapters/driven/embedding"
	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "text-embedding-004"
	DefaultDimensions = 768

	// maxBatch is the API limit on requests per BatchEmbedContents call.
	maxBatch = 100
)

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the embedding model (default: text-embedding-004).
	Model string

	// Dimensions is the embedding vector size.
	Dimensions int
}

// EmbeddingService generates embeddings using Gemini.
type EmbeddingService struct {
	client     *genai.Client
	model      *genai.EmbeddingModel
	modelName  string
	dimensions int
}

// NewEmbeddingService creates a client for the Gemini API.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required", domain.ErrEmbeddingUnavailable)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	model := client.EmbeddingModel(cfg.Model)
	model.TaskType = genai.TaskTypeRetrievalDocument

	return &EmbeddingService{
		client:     client,
		model:      model,
		modelName:  cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds texts with BatchEmbedContents, splitting at the API limit.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))

		batch := s.model.NewBatch()
		for _, text := range texts[start:end] {
			batch.AddContent(genai.Text(text))
		}

		resp, err := s.model.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: gemini: %w", domain.ErrEmbeddingService, err)
		}
		for _, e := range resp.Embeddings {
			if e == nil {
				return nil, fmt.Errorf("%w: gemini returned an empty embedding", domain.ErrEmbeddingService)
			}
			embeddings = append(embeddings, embedding.Normalize(e.Values))
		}
	}

	if err := embedding.CheckBatch(embeddings, len(texts), s.dimensions); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.modelName
}

// Ping fetches the model metadata, which validates the API key.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.model.Info(ctx); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *EmbeddingService) Close() error {
	return s.client.Close()
}
