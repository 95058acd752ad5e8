package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name      string
		settings  domain.EmbeddingSettings
		wantErr   error
		wantModel string
		wantDims  int
	}{
		{
			name:    "unconfigured provider",
			wantErr: domain.ErrEmbeddingUnavailable,
		},
		{
			name:     "openai without key",
			settings: domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantErr:  domain.ErrEmbeddingUnavailable,
		},
		{
			name:      "ollama default model",
			settings:  domain.EmbeddingSettings{Provider: domain.AIProviderOllama},
			wantModel: "all-minilm",
			wantDims:  384,
		},
		{
			name: "ollama explicit dimensions",
			settings: domain.EmbeddingSettings{
				Provider:   domain.AIProviderOllama,
				Model:      "nomic-embed-text",
				Dimensions: 512,
			},
			wantModel: "nomic-embed-text",
			wantDims:  512,
		},
		{
			name: "openai known model",
			settings: domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
			wantModel: "text-embedding-3-small",
			wantDims:  1536,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(context.Background(), tt.settings)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			defer svc.Close()
			assert.Equal(t, tt.wantModel, svc.ModelName())
			assert.Equal(t, tt.wantDims, svc.Dimensions())
		})
	}
}

func TestCreateAndValidateEmbeddingService_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := CreateAndValidateEmbeddingService(context.Background(), domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestCreateAndValidateEmbeddingService_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	svc, err := CreateAndValidateEmbeddingService(context.Background(), domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	})
	require.NoError(t, err)
	assert.NoError(t, svc.Close())
}

func TestResolveDimensions(t *testing.T) {
	assert.Equal(t, 100, ResolveDimensions("all-minilm", 100))
	assert.Equal(t, 768, ResolveDimensions("nomic-embed-text", 0))
	assert.Zero(t, ResolveDimensions("custom", 0))
}
