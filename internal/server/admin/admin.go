// Package admin implements the admin JSON CRUD API (SPEC_FULL.md
// "Supplemented Features"): watch-group management, read-only client
// inspection, and share-link minting. It is mounted under /api by
// internal/server and has no authentication of its own — the operator is
// expected to keep it off a public listener or front it with a reverse
// proxy, per spec §9's unauthenticated-by-design decision.
package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/syncbridge/syncd/internal/store"
)

// API is the admin HTTP surface, holding just the store it reads and
// writes through.
type API struct {
	store  *store.EventStore
	logger *slog.Logger
}

// New builds an admin API bound to es.
func New(es *store.EventStore, logger *slog.Logger) *API {
	return &API{store: es, logger: logger}
}

// Routes builds the admin mux. internal/server mounts this under /api via
// http.StripPrefix, so every pattern here is relative to that prefix.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /watch-groups", a.wrap(a.listWatchGroups))
	mux.HandleFunc("POST /watch-groups", a.wrap(a.createWatchGroup))
	mux.HandleFunc("PATCH /watch-groups/{id}", a.wrap(a.renameWatchGroup))

	mux.HandleFunc("GET /clients", a.wrap(a.listClients))

	mux.HandleFunc("POST /links", a.wrap(a.createShareLink))

	return mux
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (a *API) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			status := http.StatusInternalServerError

			switch {
			case errors.Is(err, errBadRequest):
				status = http.StatusBadRequest
			case errors.Is(err, store.ErrNotFound):
				status = http.StatusNotFound
			}

			if status >= http.StatusInternalServerError {
				a.logger.Error("admin: request failed", slog.Any("error", err))
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		}
	}
}

var errBadRequest = errors.New("admin: bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) listWatchGroups(w http.ResponseWriter, r *http.Request) error {
	groups, err := a.store.ListWatchGroups(r.Context())
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, groups)

	return nil
}

type createWatchGroupRequest struct {
	Name string `json:"name"`
}

func (a *API) createWatchGroup(w http.ResponseWriter, r *http.Request) error {
	var req createWatchGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		return errBadRequest
	}

	group, err := a.store.InsertWatchGroup(r.Context(), req.Name)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusCreated, group)

	return nil
}

type renameWatchGroupRequest struct {
	Name string `json:"name"`
}

func (a *API) renameWatchGroup(w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return errBadRequest
	}

	var req renameWatchGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		return errBadRequest
	}

	if err := a.store.RenameWatchGroup(r.Context(), id, req.Name); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)

	return nil
}

func (a *API) listClients(w http.ResponseWriter, r *http.Request) error {
	clients, err := a.store.ListClientsWithBindings(r.Context())
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, clients)

	return nil
}

type createShareLinkRequest struct {
	WatchGroupID int64  `json:"watch_group_id"`
	RelativePath string `json:"relative_path"`
}

func (a *API) createShareLink(w http.ResponseWriter, r *http.Request) error {
	var req createShareLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RelativePath == "" {
		return errBadRequest
	}

	link, err := a.store.CreateShareLink(r.Context(), req.WatchGroupID, req.RelativePath)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusCreated, link)

	return nil
}
