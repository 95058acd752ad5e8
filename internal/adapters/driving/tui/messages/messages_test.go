package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

func TestViewType_String(t *testing.T) {
	tests := []struct {
		view ViewType
		want string
	}{
		{ViewMenu, "menu"},
		{ViewSearch, "search"},
		{ViewRuns, "runs"},
		{ViewHelp, "help"},
		{ViewType(42), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.view.String())
		})
	}
}

func TestViewType_StartsAtMenu(t *testing.T) {
	var v ViewType
	assert.Equal(t, ViewMenu, v)
}

func TestSearchCompleted_CarriesError(t *testing.T) {
	msg := SearchCompleted{Query: "couple de serrage", Err: domain.ErrEmbeddingService}
	assert.Nil(t, msg.Results)
	assert.True(t, errors.Is(msg.Err, domain.ErrEmbeddingService))
}
