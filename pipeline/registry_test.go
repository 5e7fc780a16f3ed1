package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameRegistry(t *testing.T) {
	t.Run("register and contains", func(t *testing.T) {
		r := NewNameRegistry()
		require.NoError(t, r.Register("src"))
		require.NoError(t, r.Register("sink"))

		assert.True(t, r.Contains("src"))
		assert.True(t, r.Contains("sink"))
		assert.False(t, r.Contains("mixer"))
		assert.Equal(t, 2, r.Len())
		assert.Equal(t, []string{"sink", "src"}, r.Names())
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		r := NewNameRegistry()
		require.NoError(t, r.Register("src"))

		err := r.Register("src")
		require.Error(t, err)
		var dup *DuplicateNamesError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, []string{"src"}, dup.Names)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("unregister frees the name", func(t *testing.T) {
		r := NewNameRegistry()
		require.NoError(t, r.Register("src"))

		r.Unregister("src")
		assert.False(t, r.Contains("src"))
		require.NoError(t, r.Register("src"))
	})

	t.Run("unregister absent name is a no-op", func(t *testing.T) {
		r := NewNameRegistry()
		r.Unregister("ghost")
		assert.Equal(t, 0, r.Len())
	})
}
