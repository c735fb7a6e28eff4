package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncbridge/syncd/internal/model"
	"github.com/syncbridge/syncd/internal/pathkey"
)

func mustPath(t *testing.T, s string) pathkey.Path {
	t.Helper()

	p, err := pathkey.FromSlashString(s)
	require.NoError(t, err)

	return p
}

func changeEvent(t *testing.T, path string, size uint64, ts int64) model.FileEvent {
	t.Helper()

	return model.FileEvent{
		WatchGroupID: 1,
		RelativePath: mustPath(t, path),
		SizeInBytes:  size,
		UTCMillis:    model.Timestamp(ts),
		EventType:    model.EventChange,
	}
}

func deleteEvent(t *testing.T, path string, ts int64) model.FileEvent {
	t.Helper()

	return model.FileEvent{
		WatchGroupID: 1,
		RelativePath: mustPath(t, path),
		UTCMillis:    model.Timestamp(ts),
		EventType:    model.EventDelete,
	}
}

func desc(t *testing.T, path string, size uint64, lastUpdated int64) model.FileDescriptor {
	t.Helper()

	return model.FileDescriptor{
		RelativePath:     mustPath(t, path),
		SizeInBytes:      size,
		LastUpdatedMicro: model.Timestamp(lastUpdated),
	}
}

func TestReconcile_MissingOnClient(t *testing.T) {
	target := []model.FileEvent{changeEvent(t, "a/b.txt", 10, 5)}
	got := Reconcile(target, nil)

	require.Len(t, got, 1)
	assert.Equal(t, model.InstructionDownload, got[0].Kind)
	assert.Equal(t, "a/b.txt", got[0].Path.String())
}

func TestReconcile_IdenticalSizeIdempotence(t *testing.T) {
	target := []model.FileEvent{changeEvent(t, "a/b.txt", 10, 5)}
	client := []model.FileDescriptor{desc(t, "a/b.txt", 10, 999)}

	assert.Empty(t, Reconcile(target, client))
}

func TestReconcile_ServerNewerClientStale(t *testing.T) {
	target := []model.FileEvent{changeEvent(t, "a/b.txt", 20, 50)}
	client := []model.FileDescriptor{desc(t, "a/b.txt", 10, 10)}

	got := Reconcile(target, client)
	require.Len(t, got, 1)
	assert.Equal(t, model.InstructionDownload, got[0].Kind)
}

func TestReconcile_ClientNewer(t *testing.T) {
	target := []model.FileEvent{changeEvent(t, "a/b.txt", 20, 5)}
	client := []model.FileDescriptor{desc(t, "a/b.txt", 10, 50)}

	got := Reconcile(target, client)
	require.Len(t, got, 1)
	assert.Equal(t, model.InstructionUpload, got[0].Kind)
}

func TestReconcile_ServerDeleteClientHasFile(t *testing.T) {
	target := []model.FileEvent{deleteEvent(t, "a/b.txt", 50)}
	client := []model.FileDescriptor{desc(t, "a/b.txt", 10, 10)}

	got := Reconcile(target, client)
	require.Len(t, got, 1)
	assert.Equal(t, model.InstructionDelete, got[0].Kind)
}

func TestReconcile_ServerDeleteClientAlreadyGone(t *testing.T) {
	target := []model.FileEvent{deleteEvent(t, "a/b.txt", 50)}

	assert.Empty(t, Reconcile(target, nil))
}

func TestReconcile_ClientOnlyPathAppended(t *testing.T) {
	client := []model.FileDescriptor{desc(t, "new.txt", 5, 1)}

	got := Reconcile(nil, client)
	require.Len(t, got, 1)
	assert.Equal(t, model.InstructionUpload, got[0].Kind)
	assert.Equal(t, "new.txt", got[0].Path.String())
}

func TestReconcile_OrderingTargetThenClientOnly(t *testing.T) {
	target := []model.FileEvent{
		changeEvent(t, "first.txt", 10, 5),
		changeEvent(t, "second.txt", 10, 5),
	}
	client := []model.FileDescriptor{
		desc(t, "second.txt", 999, 50), // upload: client ahead
		desc(t, "only-on-client.txt", 1, 1),
	}

	got := Reconcile(target, client)
	require.Len(t, got, 3)
	assert.Equal(t, "first.txt", got[0].Path.String())
	assert.Equal(t, model.InstructionDownload, got[0].Kind)
	assert.Equal(t, "second.txt", got[1].Path.String())
	assert.Equal(t, model.InstructionUpload, got[1].Kind)
	assert.Equal(t, "only-on-client.txt", got[2].Path.String())
}
