package core

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor(t *testing.T) {
	none := NoActions()
	_, ok := none.ID()
	assert.False(t, ok)
	assert.Equal(t, int64(0), none.After())
	assert.Equal(t, "none", none.String())

	c := none.Advance(4)
	id, ok := c.ID()
	assert.True(t, ok)
	assert.Equal(t, int64(4), id)
	assert.Equal(t, int64(4), c.After())

	assert.Equal(t, c, c.Advance(3), "cursors never move back")
	assert.Equal(t, CursorAt(9), c.Advance(9))
}

func TestDiffEmotes(t *testing.T) {
	prev := map[string]string{"wave": "a1", "smile": "a2", "cry": "a3"}
	next := map[string]string{"wave": "a1", "smile": "a9", "party": "a4"}

	delta := DiffEmotes(prev, next)
	assert.Equal(t, map[string]string{"smile": "a9", "party": "a4"}, delta.Additions)
	assert.Equal(t, []string{"cry"}, delta.Deletions)
	assert.Equal(t, next, delta.Apply(prev))

	same := DiffEmotes(next, next)
	assert.True(t, same.Empty())
	assert.NotNil(t, same.Deletions)
}

func TestDiffEmotesFromNothing(t *testing.T) {
	next := map[string]string{"wave": "a1"}
	delta := DiffEmotes(nil, next)
	assert.Equal(t, next, delta.Additions)
	assert.Equal(t, next, delta.Apply(nil))
}

func TestDiffEmotesAddAndRemove(t *testing.T) {
	abc := map[string]string{"a": "ref-a", "b": "ref-b", "c": "ref-c"}

	added := DiffEmotes(abc, map[string]string{"a": "ref-a", "b": "ref-b", "c": "ref-c", "d": "ref-d"})
	assert.Equal(t, map[string]string{"d": "ref-d"}, added.Additions)
	assert.Empty(t, added.Deletions)

	removed := DiffEmotes(abc, map[string]string{"a": "ref-a", "b": "ref-b"})
	assert.Empty(t, removed.Additions)
	assert.Equal(t, []string{"c"}, removed.Deletions)
}

func TestDiffEmotesReplayReconstructsCatalog(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	aliases := make([]string, 12)
	for i := range aliases {
		aliases[i] = fmt.Sprintf("emote%d", i)
	}

	for run := 0; run < 20; run++ {
		snapshot := map[string]string{}
		for _, alias := range aliases {
			if rng.IntN(2) == 0 {
				snapshot[alias] = fmt.Sprintf("ref-%d", rng.IntN(4))
			}
		}
		first := maps.Clone(snapshot)
		replayed := maps.Clone(snapshot)

		for step := 0; step < 30; step++ {
			next := maps.Clone(snapshot)
			for range rng.IntN(4) + 1 {
				alias := aliases[rng.IntN(len(aliases))]
				switch rng.IntN(3) {
				case 0:
					delete(next, alias)
				default:
					next[alias] = fmt.Sprintf("ref-%d", rng.IntN(4))
				}
			}

			replayed = DiffEmotes(snapshot, next).Apply(replayed)
			require.Equal(t, next, replayed, "run %d step %d", run, step)
			snapshot = next
		}
		assert.Equal(t, snapshot, DiffEmotes(first, snapshot).Apply(first), "run %d", run)
	}
}

func TestDiffRooms(t *testing.T) {
	set := func(ids ...int64) map[int64]struct{} {
		m := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			m[id] = struct{}{}
		}
		return m
	}

	delta := DiffRooms(set(1, 2, 3), set(2, 3, 5, 4))
	assert.Equal(t, []int64{4, 5}, delta.Added)
	assert.Equal(t, []int64{1}, delta.Removed)

	assert.True(t, DiffRooms(set(1), set(1)).Empty())
	assert.Equal(t, []int64{1}, DiffRooms(nil, set(1)).Added)
}

func TestBadgeDecreased(t *testing.T) {
	assert.False(t, BadgeDecreased(map[int64]int{1: 2}, map[int64]int{1: 3}))
	assert.True(t, BadgeDecreased(map[int64]int{1: 2}, map[int64]int{1: 0}))
	assert.False(t, BadgeDecreased(map[int64]int{}, map[int64]int{1: 0}), "new rooms are not decreases")
}
