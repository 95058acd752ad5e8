package keymap

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap_Bindings(t *testing.T) {
	km := DefaultKeyMap()
	require.NotNil(t, km)

	tests := []struct {
		name    string
		binding key.Binding
		keys    []string
	}{
		{"quit", km.Quit, []string{"q", "ctrl+c"}},
		{"help", km.Help, []string{"?"}},
		{"back", km.Back, []string{"esc"}},
		{"up", km.Up, []string{"up", "k"}},
		{"down", km.Down, []string{"down", "j"}},
		{"ask", km.Ask, []string{"enter"}},
		{"new question", km.NewQuestion, []string{"n"}},
		{"expand", km.Expand, []string{"enter", " "}},
		{"refresh", km.Refresh, []string{"r"}},
		{"failures only", km.FailuresOnly, []string{"f"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range tt.keys {
				assert.Contains(t, tt.binding.Keys(), k)
			}
			assert.NotEmpty(t, tt.binding.Help().Desc)
		})
	}
}

func TestKeyMap_HelpSets(t *testing.T) {
	km := DefaultKeyMap()

	assert.Len(t, km.ShortHelp(), 2)
	assert.Len(t, km.ResultsHelp(), 4)
	assert.Len(t, km.RunsHelp(), 4)
	assert.Len(t, km.FullHelp(), 4)
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	assert.True(t, Matches("k", km.Up))
	assert.True(t, Matches("ctrl+c", km.Quit))
	assert.False(t, Matches("x", km.Quit))
	assert.False(t, Matches("", km.Back))
}
