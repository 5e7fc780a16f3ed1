package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkTable(t *testing.T) {
	link := func(from, fromPad, to, toPad string) Link {
		return Link{From: Pad{Child: from, Pad: fromPad}, To: Pad{Child: to, Pad: toPad}}
	}

	t.Run("merge and resolve", func(t *testing.T) {
		table := NewLinkTable()
		require.NoError(t, table.Merge([]Link{
			link("src", "out", "dec", "in"),
			link("dec", "out", "sink", "in"),
		}))

		assert.Equal(t, 2, table.Len())
		to, ok := table.Resolve(Pad{Child: "src", Pad: "out"})
		require.True(t, ok)
		assert.Equal(t, Pad{Child: "dec", Pad: "in"}, to)
	})

	t.Run("rejects reused endpoint across merges", func(t *testing.T) {
		table := NewLinkTable()
		require.NoError(t, table.Merge([]Link{link("src", "out", "a", "in")}))

		err := table.Merge([]Link{link("src", "out", "b", "in")})
		require.ErrorIs(t, err, ErrPadAlreadyLinked)
		var linkErr *LinkError
		require.ErrorAs(t, err, &linkErr)
		assert.Equal(t, "src", linkErr.Link.From.Child)
		assert.Equal(t, 1, table.Len())
	})

	t.Run("rejects reused endpoint within one merge, adds nothing", func(t *testing.T) {
		table := NewLinkTable()
		err := table.Merge([]Link{
			link("src", "out", "a", "in"),
			link("src", "out", "b", "in"),
		})
		require.ErrorIs(t, err, ErrPadAlreadyLinked)
		assert.Equal(t, 0, table.Len())
	})

	t.Run("distinct pads on one child are independent", func(t *testing.T) {
		table := NewLinkTable()
		require.NoError(t, table.Merge([]Link{
			link("tee", "out_a", "a", "in"),
			link("tee", "out_b", "b", "in"),
		}))
		assert.Equal(t, 2, table.Len())
	})

	t.Run("remove child drops its edges and frees endpoints", func(t *testing.T) {
		table := NewLinkTable()
		require.NoError(t, table.Merge([]Link{
			link("src", "out", "dec", "in"),
			link("dec", "out", "sink", "in"),
		}))

		table.RemoveChild("dec")
		assert.Equal(t, 0, table.Len())

		// both counterpart endpoints are reusable again
		require.NoError(t, table.Merge([]Link{link("src", "out", "sink", "in")}))
	})
}
