package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/syncbridge/syncd/internal/model"
	"github.com/syncbridge/syncd/internal/pathkey"
	"github.com/syncbridge/syncd/internal/reconcile"
	"github.com/syncbridge/syncd/internal/store"
)

func watchGroupID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("wg_id"), 10, 64)
	if err != nil {
		return 0, badRequest("wg_id must be an integer")
	}

	return id, nil
}

func clientID(r *http.Request) (string, error) {
	id := r.Header.Get("X-Client-Id")
	if id == "" {
		return "", badRequest("X-Client-Id header is required")
	}

	return id, nil
}

// syncRequest is the body of POST /sys/sync/{wg_id}: the client's full
// directory snapshot for the watch group.
type syncRequest struct {
	Descriptors []model.FileDescriptor `json:"descriptors"`
}

// handleSync computes the instruction list for one client poll (spec
// §4.6) by comparing the watch group's latest-per-path events against the
// client-reported snapshot.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) error {
	wgID, err := watchGroupID(r)
	if err != nil {
		return err
	}

	if _, err := clientID(r); err != nil {
		return err
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid JSON body")
	}

	target := s.history.GetLatestEvents(wgID)
	instructions := reconcile.Reconcile(target, req.Descriptors)

	s.metrics.SyncsTotal.Inc()

	writeJSON(w, http.StatusOK, instructions)

	return nil
}

// handleUpload streams the request body to a staging file, then admits it
// with History.WithAdmission, which compares against the latest event and
// appends to History under one lock, matching spec §4.7/§5's requirement
// that the comparison and publish happen without an await in between. The
// staged file is only renamed into place once admitted; the EventStore row
// is written with InsertEvent after the rename, outside that lock.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) error {
	wgID, err := watchGroupID(r)
	if err != nil {
		return err
	}

	cID, err := clientID(r)
	if err != nil {
		return err
	}

	relPath := r.URL.Query().Get("path")
	if relPath == "" {
		return badRequest("path query parameter is required")
	}

	p, err := pathkey.FromSlashString(relPath)
	if err != nil {
		return badRequest("invalid path: " + err.Error())
	}

	stagingDir := s.uploadStagingDir(wgID)
	if err := ensureDir(stagingDir); err != nil {
		return storageErr("creating upload staging directory", err)
	}

	tmp, err := os.CreateTemp(stagingDir, "upload-*")
	if err != nil {
		return storageErr("creating staging file", err)
	}
	tmpPath := tmp.Name()

	defer os.Remove(tmpPath) // no-op once successfully renamed

	size, err := io.Copy(tmp, r.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return storageErr("writing staged upload", err)
	}

	candidate := model.FileEvent{
		WatchGroupID: wgID,
		UTCMillis:    model.Now(),
		RelativePath: p,
		SizeInBytes:  uint64(size),
		EventType:    model.EventChange,
		ClientID:     cID,
	}

	admitted := s.history.WithAdmission(candidate, admitNotOlderThanLatest(candidate))
	if !admitted {
		return conflict(fmt.Sprintf("a newer event already exists for %s", p.String()))
	}

	dest := s.blobPath(wgID, p.String())
	if err := ensureDir(filepath.Dir(dest)); err != nil {
		return storageErr("creating blob directory", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return storageErr("publishing uploaded file", err)
	}

	if _, err := s.store.InsertEvent(r.Context(), candidate, cID); err != nil {
		return wrapStorage("recording upload event", err)
	}

	s.metrics.UploadsTotal.Inc()
	s.metrics.UploadBytes.Add(uint64(size))

	writeJSON(w, http.StatusOK, candidate)

	return nil
}

// admitNotOlderThanLatest builds the admission predicate for uploads and
// deletes: candidate is rejected only if a strictly newer event for the
// same path is already on record, preventing an out-of-order publish from
// clobbering a fresher one.
func admitNotOlderThanLatest(candidate model.FileEvent) func(latest model.FileEvent, ok bool) bool {
	return func(latest model.FileEvent, ok bool) bool {
		if !ok {
			return true
		}

		return !candidate.UTCMillis.Before(latest.UTCMillis)
	}
}

// handleDownload streams the current blob for path back to the client.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) error {
	wgID, err := watchGroupID(r)
	if err != nil {
		return err
	}

	relPath := r.URL.Query().Get("path")
	if relPath == "" {
		return badRequest("path query parameter is required")
	}

	p, err := pathkey.FromSlashString(relPath)
	if err != nil {
		return badRequest("invalid path: " + err.Error())
	}

	src := s.blobPath(wgID, p.String())

	f, err := os.Open(src)
	if os.IsNotExist(err) {
		return notFound("file not found: " + p.String())
	}

	if err != nil {
		return storageErr("opening blob", err)
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(p.String())+`"`)
	w.Header().Set("Content-Type", "application/octet-stream")

	if _, err := io.Copy(w, f); err != nil {
		s.logger.Warn("server: download interrupted", "path", p.String(), "error", err)
		return nil
	}

	s.metrics.DownloadsTotal.Inc()

	return nil
}

type deleteRequest struct {
	RelativePath string `json:"relative_path"`
}

// handleDelete records a delete event and removes the backing blob, using
// the same admission discipline as handleUpload.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) error {
	wgID, err := watchGroupID(r)
	if err != nil {
		return err
	}

	cID, err := clientID(r)
	if err != nil {
		return err
	}

	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid JSON body")
	}

	p, err := pathkey.FromSlashString(req.RelativePath)
	if err != nil {
		return badRequest("invalid relative_path: " + err.Error())
	}

	candidate := model.FileEvent{
		ID:           uuid.NewString(),
		WatchGroupID: wgID,
		UTCMillis:    model.Now(),
		RelativePath: p,
		SizeInBytes:  0,
		EventType:    model.EventDelete,
		ClientID:     cID,
	}

	admitted := s.history.WithAdmission(candidate, admitNotOlderThanLatest(candidate))
	if !admitted {
		return conflict(fmt.Sprintf("a newer event already exists for %s", p.String()))
	}

	blob := s.blobPath(wgID, p.String())
	if err := os.Remove(blob); err != nil && !os.IsNotExist(err) {
		return storageErr("removing blob", err)
	}

	if _, err := s.store.InsertEvent(r.Context(), candidate, cID); err != nil {
		return wrapStorage("recording delete event", err)
	}

	s.metrics.DeletesTotal.Inc()

	w.WriteHeader(http.StatusNoContent)

	return nil
}

// handleGetConfig returns (and, on first contact, creates) the calling
// client's WatchConfig, per spec §4.12.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) error {
	cID, err := clientID(r)
	if err != nil {
		return err
	}

	cfg, ok, err := s.store.GetClientConfig(r.Context(), cID)
	if err != nil {
		return wrapStorage("loading client config", err)
	}

	if !ok {
		if err := s.store.UpsertClientConfig(r.Context(), store.ClientConfigInput{
			ClientID:          cID,
			HostName:          r.Header.Get("X-Client-Host"),
			MinPollIntervalMS: model.DefaultMinPollIntervalMS,
		}); err != nil {
			return wrapStorage("registering client", err)
		}

		cfg = model.WatchConfig{
			MinPollIntervalMS: model.DefaultMinPollIntervalMS,
			WatchGroups:       map[int64]model.WatchConfigGroupEntry{},
		}
	}

	writeJSON(w, http.StatusOK, cfg)

	return nil
}
