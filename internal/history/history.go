// Package history implements the in-memory projection of the EventStore
// (spec §4.4): per (watch-group, path) chronological event vectors behind
// one process-wide mutex, giving O(1) lookup for reconciliation and
// upload admission. It is a read-through convenience over the durable
// store, never authoritative on its own.
package history

import (
	"sort"
	"sync"

	"github.com/syncbridge/syncd/internal/model"
)

// History holds every path's event vector, grouped by watch group.
type History struct {
	mu     sync.Mutex
	byPath map[int64]map[string][]model.FileEvent
}

// New builds a History from a flat event list (typically
// EventStore.ListAllEvents at boot). The input is sorted by UTCMillis if
// not already, then grouped by (watch_group_id, relative_path) preserving
// relative order, then checked with sanityCheck.
func New(events []model.FileEvent) *History {
	sorted := make([]model.FileEvent, len(events))
	copy(sorted, events)

	if !sort.SliceIsSorted(sorted, func(i, j int) bool {
		return sorted[i].UTCMillis < sorted[j].UTCMillis
	}) {
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].UTCMillis < sorted[j].UTCMillis
		})
	}

	h := &History{byPath: make(map[int64]map[string][]model.FileEvent)}

	for _, e := range sorted {
		h.appendLocked(e)
	}

	h.sanityCheck()

	return h
}

// Add appends an event to its (watch_group, path) vector. The caller must
// guarantee monotonically non-decreasing UTCMillis per path — the upload
// and delete admission checks in internal/server enforce this for every
// producer by holding this same lock across "read latest, then append".
func (h *History) Add(e model.FileEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.appendLocked(e)
}

func (h *History) appendLocked(e model.FileEvent) {
	group, ok := h.byPath[e.WatchGroupID]
	if !ok {
		group = make(map[string][]model.FileEvent)
		h.byPath[e.WatchGroupID] = group
	}

	key := e.RelativePath.String()
	group[key] = append(group[key], e)
}

// GetEvents returns a copy of the event vector for (watchGroup, path), or
// ok=false if no events exist for that path.
func (h *History) GetEvents(watchGroup int64, path string) (events []model.FileEvent, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, exists := h.byPath[watchGroup]
	if !exists {
		return nil, false
	}

	vec, exists := group[path]
	if !exists {
		return nil, false
	}

	out := make([]model.FileEvent, len(vec))
	copy(out, vec)

	return out, true
}

// GetLatestEvent returns the most recent event for (watchGroup, path), or
// ok=false if the path has no history.
func (h *History) GetLatestEvent(watchGroup int64, path string) (event model.FileEvent, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, exists := h.byPath[watchGroup]
	if !exists {
		return model.FileEvent{}, false
	}

	vec, exists := group[path]
	if !exists || len(vec) == 0 {
		return model.FileEvent{}, false
	}

	return vec[len(vec)-1], true
}

// GetLatestEvents returns the latest event of every path in watchGroup
// (including Delete events), in an unspecified but stable-per-call order.
func (h *History) GetLatestEvents(watchGroup int64) []model.FileEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, exists := h.byPath[watchGroup]
	if !exists {
		return nil
	}

	out := make([]model.FileEvent, 0, len(group))

	for _, vec := range group {
		if len(vec) > 0 {
			out = append(out, vec[len(vec)-1])
		}
	}

	return out
}

// WithAdmission runs check under the History lock, then — only if check
// returns true — appends event and returns true. This is the single
// critical section spec §4.7/§5 requires: "no await between read and
// publish" for the admission comparison plus the eventual insertion.
// check receives the currently-stored latest event for the same
// (watch group, path) key as event (ok=false if none exists yet).
func (h *History) WithAdmission(event model.FileEvent, check func(latest model.FileEvent, ok bool) bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	group := h.byPath[event.WatchGroupID]

	key := event.RelativePath.String()

	var (
		latest model.FileEvent
		ok     bool
	)

	if group != nil {
		if vec, exists := group[key]; exists && len(vec) > 0 {
			latest = vec[len(vec)-1]
			ok = true
		}
	}

	if !check(latest, ok) {
		return false
	}

	h.appendLocked(event)

	return true
}

// sanityCheck panics if any per-path vector is not sorted by time, or if
// any event's RelativePath doesn't match the key it's stored under. These
// are programmer errors in the constructor's caller, never a runtime
// failure mode.
func (h *History) sanityCheck() {
	for wg, group := range h.byPath {
		for key, vec := range group {
			for i, e := range vec {
				if e.RelativePath.String() != key {
					panic("history: event path does not match its map key")
				}

				if e.WatchGroupID != wg {
					panic("history: event watch group does not match its map key")
				}

				if i > 0 && vec[i-1].UTCMillis > e.UTCMillis {
					panic("history: event vector is not sorted by utc_millis")
				}
			}
		}
	}
}
