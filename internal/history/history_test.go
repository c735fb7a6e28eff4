package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncbridge/syncd/internal/model"
	"github.com/syncbridge/syncd/internal/pathkey"
)

func p(t *testing.T, s string) pathkey.Path {
	t.Helper()

	path, err := pathkey.FromSlashString(s)
	require.NoError(t, err)

	return path
}

func TestHistory_GetEventsSortedByInsertionOrder(t *testing.T) {
	h := New(nil)

	h.Add(model.FileEvent{WatchGroupID: 1, RelativePath: p(t, "a.txt"), UTCMillis: 1})
	h.Add(model.FileEvent{WatchGroupID: 1, RelativePath: p(t, "a.txt"), UTCMillis: 5})
	h.Add(model.FileEvent{WatchGroupID: 1, RelativePath: p(t, "a.txt"), UTCMillis: 10})

	events, ok := h.GetEvents(1, "a.txt")
	require.True(t, ok)
	require.Len(t, events, 3)
	assert.Equal(t, model.Timestamp(1), events[0].UTCMillis)
	assert.Equal(t, model.Timestamp(10), events[2].UTCMillis)
}

func TestHistory_WatchGroupsIsolated(t *testing.T) {
	h := New(nil)

	h.Add(model.FileEvent{WatchGroupID: 1, RelativePath: p(t, "a.txt"), UTCMillis: 1})
	h.Add(model.FileEvent{WatchGroupID: 2, RelativePath: p(t, "a.txt"), UTCMillis: 2})

	latest1 := h.GetLatestEvents(1)
	require.Len(t, latest1, 1)
	assert.Equal(t, int64(1), latest1[0].WatchGroupID)

	latest2 := h.GetLatestEvents(2)
	require.Len(t, latest2, 1)
	assert.Equal(t, int64(2), latest2[0].WatchGroupID)
}

func TestHistory_GetLatestEvent(t *testing.T) {
	h := New(nil)

	_, ok := h.GetLatestEvent(1, "missing.txt")
	assert.False(t, ok)

	h.Add(model.FileEvent{WatchGroupID: 1, RelativePath: p(t, "a.txt"), UTCMillis: 1, SizeInBytes: 1})
	h.Add(model.FileEvent{WatchGroupID: 1, RelativePath: p(t, "a.txt"), UTCMillis: 2, SizeInBytes: 2})

	latest, ok := h.GetLatestEvent(1, "a.txt")
	require.True(t, ok)
	assert.Equal(t, uint64(2), latest.SizeInBytes)
}

func TestHistory_ConstructorSortsUnsortedInput(t *testing.T) {
	h := New([]model.FileEvent{
		{WatchGroupID: 1, RelativePath: p(t, "a.txt"), UTCMillis: 10},
		{WatchGroupID: 1, RelativePath: p(t, "a.txt"), UTCMillis: 1},
	})

	events, ok := h.GetEvents(1, "a.txt")
	require.True(t, ok)
	assert.Equal(t, model.Timestamp(1), events[0].UTCMillis)
	assert.Equal(t, model.Timestamp(10), events[1].UTCMillis)
}

func TestHistory_SanityCheckPanicsOnMiskeyedPath(t *testing.T) {
	assert.Panics(t, func() {
		h := &History{byPath: map[int64]map[string][]model.FileEvent{
			1: {
				"a.txt": {
					{WatchGroupID: 1, RelativePath: p(t, "b.txt"), UTCMillis: 1},
				},
			},
		}}
		h.sanityCheck()
	})
}

func TestHistory_WithAdmission_RejectsStaleThenAcceptsNewer(t *testing.T) {
	h := New(nil)

	admit := func(utc model.Timestamp) bool {
		return h.WithAdmission(
			model.FileEvent{WatchGroupID: 1, RelativePath: p(t, "a.txt"), UTCMillis: utc, EventType: model.EventChange},
			func(latest model.FileEvent, ok bool) bool {
				if !ok {
					return true
				}

				return !utc.Before(latest.UTCMillis)
			},
		)
	}

	assert.True(t, admit(2))
	assert.False(t, admit(1)) // stale: rejected, not appended
	assert.True(t, admit(2))  // equal timestamp: contract allows both through

	events, ok := h.GetEvents(1, "a.txt")
	require.True(t, ok)
	assert.Len(t, events, 2)
}
