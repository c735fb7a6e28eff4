// Package server implements syncd's HTTP surface: the /sys endpoints the
// reference client drives, the /api admin JSON API, the /l/{token}
// shared-link redirect, and /metrics for Prometheus scraping.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/syncbridge/syncd/internal/store"
)

// Kind classifies a handler-level failure into one of the HTTP status
// buckets the error handling design distinguishes: a caller mistake, a
// missing resource, a conflicting write, or a storage-layer fault.
type Kind int

const (
	KindBadRequest Kind = iota
	KindNotFound
	KindConflict
	KindStorage
)

// Error is the typed error every handler returns instead of calling
// http.Error directly, so status-code mapping happens in one place.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}

	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func badRequest(msg string) *Error               { return &Error{Kind: KindBadRequest, Msg: msg} }
func notFound(msg string) *Error                 { return &Error{Kind: KindNotFound, Msg: msg} }
func conflict(msg string) *Error                 { return &Error{Kind: KindConflict, Msg: msg} }
func storageErr(msg string, err error) *Error    { return &Error{Kind: KindStorage, Msg: msg, Err: err} }
func wrapStorage(op string, err error) *Error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(op)
	}

	return storageErr(op, err)
}

func statusFor(k Kind) int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status code and a small JSON body. Any error
// that isn't a *Error is treated as an unclassified storage-kind fault.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = storageErr("internal error", err)
	}

	status := statusFor(appErr.Kind)

	if status >= http.StatusInternalServerError {
		logger.Error("server: request failed", slog.Int("status", status), slog.Any("error", appErr))
	} else {
		logger.Debug("server: request rejected", slog.Int("status", status), slog.String("reason", appErr.Msg))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": appErr.Msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
