package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggest(t *testing.T) {
	names := []string{"dracula", "dark", "light", "notty", "tokyo-night"}

	t.Run("empty input returns all", func(t *testing.T) {
		assert.Equal(t, names, Suggest("", names, 2))
	})
	t.Run("close match first", func(t *testing.T) {
		got := Suggest("dracla", names, 1)
		assert.Equal(t, []string{"dracula"}, got)
	})
	t.Run("case insensitive", func(t *testing.T) {
		assert.Contains(t, Suggest("NOTTY", names, 0), "notty")
	})
	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, Suggest("zzz", names, 3))
	})
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains([]string{"a", "b"}, "c"))
}
