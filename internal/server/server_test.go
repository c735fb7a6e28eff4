package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncbridge/syncd/internal/history"
	"github.com/syncbridge/syncd/internal/model"
	"github.com/syncbridge/syncd/internal/store"
	"github.com/syncbridge/syncd/internal/telemetry"
)

func newTestServer(t *testing.T) (*Server, *store.EventStore) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	es, err := store.Open(context.Background(), t.TempDir()+"/test.db", logger)
	require.NoError(t, err)
	t.Cleanup(func() { es.Close() })

	// file_event.client_id is a foreign key, so the client the tests upload
	// and delete as must be registered first, as GET /sys/config does.
	require.NoError(t, es.UpsertClientConfig(context.Background(), store.ClientConfigInput{
		ClientID:          "client-1",
		HostName:          "test-host",
		MinPollIntervalMS: model.DefaultMinPollIntervalMS,
	}))

	h := history.New(nil)

	return New(es, h, telemetry.NewMetrics(), t.TempDir(), logger), es
}

func TestHandleUpload_ThenDownloadRoundTrips(t *testing.T) {
	s, es := newTestServer(t)
	mux := s.Routes()

	group, err := es.InsertWatchGroup(context.Background(), "photos")
	require.NoError(t, err)

	uploadReq := httptest.NewRequest(http.MethodPost,
		"/sys/upload/"+itoaTest(group.ID)+"?path=a/b.txt", bytes.NewBufferString("hello"))
	uploadReq.Header.Set("X-Client-Id", "client-1")
	uploadRec := httptest.NewRecorder()
	mux.ServeHTTP(uploadRec, uploadReq)
	require.Equal(t, http.StatusOK, uploadRec.Code, uploadRec.Body.String())

	downloadReq := httptest.NewRequest(http.MethodGet, "/sys/download/"+itoaTest(group.ID)+"?path=a/b.txt", nil)
	downloadRec := httptest.NewRecorder()
	mux.ServeHTTP(downloadRec, downloadReq)
	require.Equal(t, http.StatusOK, downloadRec.Code)
	assert.Equal(t, "hello", downloadRec.Body.String())
}

func TestHandleUpload_MissingClientIDRejected(t *testing.T) {
	s, _ := newTestServer(t)
	mux := s.Routes()

	req := httptest.NewRequest(http.MethodPost, "/sys/upload/1?path=a.txt", bytes.NewBufferString("x"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDelete_RemovesFileAndRecordsEvent(t *testing.T) {
	s, es := newTestServer(t)
	mux := s.Routes()

	group, err := es.InsertWatchGroup(context.Background(), "photos")
	require.NoError(t, err)

	uploadReq := httptest.NewRequest(http.MethodPost,
		"/sys/upload/"+itoaTest(group.ID)+"?path=a.txt", bytes.NewBufferString("x"))
	uploadReq.Header.Set("X-Client-Id", "client-1")
	mux.ServeHTTP(httptest.NewRecorder(), uploadReq)

	body, _ := json.Marshal(map[string]string{"relative_path": "a.txt"})
	delReq := httptest.NewRequest(http.MethodPost, "/sys/delete/"+itoaTest(group.ID), bytes.NewReader(body))
	delReq.Header.Set("X-Client-Id", "client-1")
	delRec := httptest.NewRecorder()
	mux.ServeHTTP(delRec, delReq)

	require.Equal(t, http.StatusNoContent, delRec.Code)

	downloadReq := httptest.NewRequest(http.MethodGet, "/sys/download/"+itoaTest(group.ID)+"?path=a.txt", nil)
	downloadRec := httptest.NewRecorder()
	mux.ServeHTTP(downloadRec, downloadReq)
	assert.Equal(t, http.StatusNotFound, downloadRec.Code)
}

func TestHandleGetConfig_RegistersNewClientWithDefaults(t *testing.T) {
	s, _ := newTestServer(t)
	mux := s.Routes()

	req := httptest.NewRequest(http.MethodGet, "/sys/config", nil)
	req.Header.Set("X-Client-Id", "new-client")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var cfg model.WatchConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, int64(model.DefaultMinPollIntervalMS), cfg.MinPollIntervalMS)
}

func TestHandleSync_ReturnsInstructions(t *testing.T) {
	s, es := newTestServer(t)
	mux := s.Routes()

	group, err := es.InsertWatchGroup(context.Background(), "photos")
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]any{"descriptors": []model.FileDescriptor{}})
	req := httptest.NewRequest(http.MethodPost, "/sys/sync/"+itoaTest(group.ID), bytes.NewReader(body))
	req.Header.Set("X-Client-Id", "client-1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func itoaTest(id int64) string {
	return strconv.FormatInt(id, 10)
}
