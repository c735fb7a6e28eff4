package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncbridge/syncd/internal/model"
	"github.com/syncbridge/syncd/internal/pathkey"
)

func newTestStore(t *testing.T) *EventStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := Open(context.Background(), dbPath, logger)
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func mustPath(t *testing.T, s string) pathkey.Path {
	t.Helper()

	p, err := pathkey.FromSlashString(s)
	require.NoError(t, err)

	return p
}

func TestEventStore_InsertAndListEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	wg, err := s.InsertWatchGroup(ctx, "photos")
	require.NoError(t, err)

	e1, err := s.InsertEvent(ctx, model.FileEvent{
		WatchGroupID: wg.ID,
		UTCMillis:    1,
		RelativePath: mustPath(t, "a.txt"),
		SizeInBytes:  10,
		EventType:    model.EventChange,
	}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, e1.ID)

	all, err := s.ListAllEvents(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "a.txt", all[0].RelativePath.String())
}

func TestEventStore_WatchGroupCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	wg, err := s.InsertWatchGroup(ctx, "initial")
	require.NoError(t, err)

	require.NoError(t, s.RenameWatchGroup(ctx, wg.ID, "renamed"))

	groups, err := s.ListWatchGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "renamed", groups[0].Name)

	err = s.RenameWatchGroup(ctx, 9999, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventStore_UpsertClientConfig_ReplacesBindings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	wg, err := s.InsertWatchGroup(ctx, "docs")
	require.NoError(t, err)

	in := ClientConfigInput{
		ClientID:          "client-1",
		HostName:          "laptop",
		MinPollIntervalMS: 5000,
		Bindings: []BindingInput{
			{
				ServerWatchGroupID: wg.ID,
				PathToMonitor:      "/home/user/docs",
				ExcludeDotDirs:     true,
				ExcludeDirs:        []string{"node_modules", ".cache"},
			},
		},
	}
	require.NoError(t, s.UpsertClientConfig(ctx, in))

	cfg, ok, err := s.GetClientConfig(ctx, "client-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, cfg.WatchGroups, wg.ID)
	assert.ElementsMatch(t, []string{"node_modules", ".cache"}, cfg.WatchGroups[wg.ID].ExcludeDirs)

	// Re-upsert with a different binding set entirely; the old one must be gone.
	in.Bindings = nil
	require.NoError(t, s.UpsertClientConfig(ctx, in))

	cfg, ok, err = s.GetClientConfig(ctx, "client-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, cfg.WatchGroups)
}

func TestEventStore_GetClientConfig_UnregisteredReturnsFalse(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.GetClientConfig(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEventStore_ShareLink_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	wg, err := s.InsertWatchGroup(ctx, "shared")
	require.NoError(t, err)

	link, err := s.CreateShareLink(ctx, wg.ID, "report.pdf")
	require.NoError(t, err)

	resolved, err := s.ResolveShareLink(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", resolved.RelativePath)

	_, err = s.ResolveShareLink(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}
