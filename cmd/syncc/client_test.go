package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncbridge/syncd/internal/model"
	"github.com/syncbridge/syncd/internal/pathkey"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Download_WritesFileLocally(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remote contents"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := &client{serverURL: srv.URL, clientID: "c1", localRoot: dir, watchGroupID: 1, logger: discardLogger()}

	p, err := pathkey.FromSlashString("a/b.txt")
	require.NoError(t, err)

	require.NoError(t, c.download(context.Background(), p))

	contents, err := os.ReadFile(filepath.Join(dir, "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "remote contents", string(contents))
}

func TestClient_Delete_RemovesLocalFileOnNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gone.txt"), []byte("x"), 0o644))

	c := &client{serverURL: srv.URL, clientID: "c1", localRoot: dir, watchGroupID: 1, logger: discardLogger()}

	p, err := pathkey.FromSlashString("gone.txt")
	require.NoError(t, err)

	require.NoError(t, c.delete(context.Background(), p))

	_, statErr := os.Stat(filepath.Join(dir, "gone.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestClient_RequestSync_ParsesInstructions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"Upload":"a/b.txt"},{"Delete":"c.txt"}]`))
	}))
	defer srv.Close()

	c := &client{serverURL: srv.URL, clientID: "c1", watchGroupID: 1, logger: discardLogger()}

	instructions, err := c.requestSync(context.Background(), []model.FileDescriptor{})
	require.NoError(t, err)
	require.Len(t, instructions, 2)
	assert.Equal(t, model.InstructionUpload, instructions[0].Kind)
	assert.Equal(t, model.InstructionDelete, instructions[1].Kind)
}

