package model

import (
	"github.com/syncbridge/syncd/internal/pathkey"
)

// EventType distinguishes a file-content change from a deletion. The wire
// and CSV forms use the lower-case strings.
type EventType string

const (
	EventChange EventType = "change"
	EventDelete EventType = "delete"
)

// FileDescriptor is what a client snapshot carries per file.
type FileDescriptor struct {
	FileName         string      `json:"file_name"`
	RelativePath     pathkey.Path `json:"relative_path"`
	SizeInBytes      uint64      `json:"size_in_bytes"`
	FileType         string      `json:"file_type"`
	LastUpdatedMicro Timestamp   `json:"last_updated_utc_millis"`
}

// FileEvent is what the EventStore persists, one row per upload or delete.
type FileEvent struct {
	ID           string       `json:"id"`
	WatchGroupID int64        `json:"watch_group_id"`
	UTCMillis    Timestamp    `json:"utc_millis"`
	RelativePath pathkey.Path `json:"relative_path"`
	SizeInBytes  uint64       `json:"size_in_bytes"`
	EventType    EventType    `json:"event_type"`
	ClientID     string       `json:"client_id,omitempty"`
	ClientHost   string       `json:"client_host,omitempty"`
}

// WatchGroup names one mirrored directory tree.
type WatchGroup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Client is a remote process identified by an opaque id sent in
// X-Client-Id.
type Client struct {
	ID                string `json:"id"`
	HostName          string `json:"host_name"`
	MinPollIntervalMS int64  `json:"min_poll_interval_in_ms"`
	CreatedAt         Timestamp `json:"created_at"`
}

// ClientWatchBinding attaches one client to one server watch group, with
// its own local exclusion rules.
type ClientWatchBinding struct {
	ClientID           string          `json:"client_id"`
	ServerWatchGroupID int64           `json:"server_watch_group_id"`
	PathToMonitor      string          `json:"path_to_monitor"`
	ExcludeDirs        map[string]bool `json:"exclude_dirs"`
	ExcludeDotDirs     bool            `json:"exclude_dot_dirs"`
}

// WatchConfig is the client-facing config document returned by
// GET /sys/config: one client's poll interval and its watch-group
// bindings, keyed by watch-group id.
type WatchConfig struct {
	MinPollIntervalMS int64                          `json:"min_poll_interval_in_ms"`
	WatchGroups       map[int64]WatchConfigGroupEntry `json:"watch_groups"`
}

// WatchConfigGroupEntry is one watch-group's worth of client-side scan
// parameters, embedded in WatchConfig.
type WatchConfigGroupEntry struct {
	Name           string   `json:"name"`
	PathToMonitor  string   `json:"path_to_monitor"`
	ExcludeDirs    []string `json:"exclude_dirs"`
	ExcludeDotDirs bool     `json:"exclude_dot_dirs"`
}

// DefaultMinPollIntervalMS is assigned to a client on first registration
// via GET /sys/config (§4.12).
const DefaultMinPollIntervalMS = 5000

// InstructionKind is the tag of an Instruction's wire-union variant.
type InstructionKind string

const (
	InstructionUpload   InstructionKind = "Upload"
	InstructionDownload InstructionKind = "Download"
	InstructionDelete   InstructionKind = "Delete"
)

// Instruction is one of Upload / Download / Delete, addressed to a client
// for a single path. It serializes as an externally-tagged union: a JSON
// object with exactly one key, the variant name, whose value is the
// slash-delimited path string.
type Instruction struct {
	Kind InstructionKind
	Path pathkey.Path
}
