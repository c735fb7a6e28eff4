package server

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/syncbridge/syncd/internal/history"
	"github.com/syncbridge/syncd/internal/server/admin"
	"github.com/syncbridge/syncd/internal/store"
	"github.com/syncbridge/syncd/internal/telemetry"
)

// Version is stamped at build time in a real release; fixed here since
// this repo has no release pipeline wired up.
const Version = "0.1.0"

// Server holds every dependency the HTTP handlers need: the durable store,
// the in-memory history projection admission checks run against, the
// metrics counters handlers increment, and the blob root each watch
// group's files are mirrored under.
type Server struct {
	store    *store.EventStore
	history  *history.History
	metrics  *telemetry.Metrics
	blobRoot string
	logger   *slog.Logger
}

// New builds a Server. blobRoot is the data directory: each watch group's
// files are mirrored under blobRoot/blobs/wg-<id>, and uploads are staged
// under blobRoot/upload_in_progress/wg-<id>.
func New(es *store.EventStore, h *history.History, m *telemetry.Metrics, blobRoot string, logger *slog.Logger) *Server {
	return &Server{store: es, history: h, metrics: m, blobRoot: blobRoot, logger: logger}
}

// Routes builds the full HTTP handler tree.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("GET /version", s.handleVersion)

	mux.HandleFunc("GET /sys/config", s.wrap(s.handleGetConfig))
	mux.HandleFunc("POST /sys/sync/{wg_id}", s.wrap(s.handleSync))
	mux.HandleFunc("POST /sys/upload/{wg_id}", s.wrap(s.handleUpload))
	mux.HandleFunc("GET /sys/download/{wg_id}", s.wrap(s.handleDownload))
	mux.HandleFunc("POST /sys/delete/{wg_id}", s.wrap(s.handleDelete))

	mux.HandleFunc("GET /l/{token}", s.wrap(s.handleShareLinkRedirect))

	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	adminAPI := admin.New(s.store, s.logger)
	mux.Handle("/api/", http.StripPrefix("/api", adminAPI.Routes()))

	return s.withAccessLog(mux)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"service": "syncd", "version": Version})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}

// handlerFunc is an http.HandlerFunc variant that returns an error,
// centralizing status-code mapping in wrap.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			writeError(w, s.logger, err)
		}
	}
}

func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("server: request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

// blobPath resolves p under the watch group's blob directory.
func (s *Server) blobPath(watchGroupID int64, relPath string) string {
	groupDir := filepath.Join(s.blobRoot, "blobs", "wg-"+strconv.FormatInt(watchGroupID, 10))
	return filepath.Join(groupDir, filepath.FromSlash(relPath))
}

func (s *Server) uploadStagingDir(watchGroupID int64) string {
	return filepath.Join(s.blobRoot, "upload_in_progress", "wg-"+strconv.FormatInt(watchGroupID, 10))
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
