package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil search service returns error", func(t *testing.T) {
		ports := &Ports{}
		server, err := NewServer(ports, "test")
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSearchService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Search: &mockSearchService{},
		}
		server, err := NewServer(ports, "test")
		require.NoError(t, err)
		assert.NotNil(t, server)
	})

	t.Run("empty version accepted", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}}, "")
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestRunHTTP_StopsWithContext(t *testing.T) {
	server, err := NewServer(&Ports{Search: &mockSearchService{}}, "test")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.RunHTTP(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("RunHTTP did not return after cancel")
	}
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil search service returns error", func(t *testing.T) {
		ports := &Ports{}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingSearchService)
	})

	t.Run("search only is valid", func(t *testing.T) {
		ports := &Ports{
			Search: &mockSearchService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Search:    &mockSearchService{},
			Ingestion: &mockIngestionService{},
			Runs:      &mockRunHistory{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})
}
