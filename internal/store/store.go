// Package store implements the EventStore (spec §4.3): a durable,
// append-only log of file events backed by an embedded SQL database, plus
// CRUD for watch groups and per-client configuration. It never panics on
// query failure — every driver error is wrapped into a Storage-kind error
// for the HTTP layer to map to a 500.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/pressly/goose/v3"

	"github.com/syncbridge/syncd/internal/model"
	"github.com/syncbridge/syncd/internal/pathkey"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = errors.New("store: not found")

// EventStore is the durable log of file events, client registrations, and
// watch-group metadata. A single *sql.DB serializes writes; SQLite's own
// locking is sufficient since the History mirror (internal/history) is
// what serves the hot read path.
type EventStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) the SQLite database at path, enables
// foreign-key enforcement, and runs all pending migrations. A migration
// failure aborts boot per spec §7 ("Fatal boot").
func Open(ctx context.Context, path string, logger *slog.Logger) (*EventStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: pinging database: %w", err)
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &EventStore{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *EventStore) Close() error {
	return s.db.Close()
}

func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("store: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("store: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("store: applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// InsertEvent appends a single FileEvent row, stamping a fresh UUID if the
// event doesn't already carry one (the CSV migration and live deletes
// pre-assign IDs; live uploads don't).
func (s *EventStore) InsertEvent(ctx context.Context, event model.FileEvent, clientID string) (model.FileEvent, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO file_event (id, utc_millis, relative_path, size_in_bytes, event_type, client_id, watch_group_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, int64(event.UTCMillis), event.RelativePath.String(), event.SizeInBytes,
		string(event.EventType), nullString(clientID), event.WatchGroupID,
	)
	if err != nil {
		return model.FileEvent{}, fmt.Errorf("store: insert event %s: %w", event.RelativePath, err)
	}

	event.ClientID = clientID

	return event, nil
}

// BulkEventRow pairs a FileEvent with the client id it's attributed to,
// for BulkInsertEvents.
type BulkEventRow struct {
	Event    model.FileEvent
	ClientID string
}

// BulkInsertEvents inserts rows best-effort, used only by the one-time CSV
// migration (internal/migrate): a row that fails to insert is logged and
// skipped rather than aborting the whole batch.
func (s *EventStore) BulkInsertEvents(ctx context.Context, rows []BulkEventRow) (inserted int, err error) {
	for _, row := range rows {
		if _, insertErr := s.InsertEvent(ctx, row.Event, row.ClientID); insertErr != nil {
			s.logger.Warn("store: bulk insert skipped row",
				slog.String("path", row.Event.RelativePath.String()),
				slog.Any("error", insertErr),
			)

			continue
		}

		inserted++
	}

	return inserted, nil
}

// ListAllEvents returns every event ever recorded, in chronological order.
// Used once at boot to seed the in-memory History projection.
func (s *EventStore) ListAllEvents(ctx context.Context) ([]model.FileEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, utc_millis, relative_path, size_in_bytes, event_type, client_id, watch_group_id
		 FROM file_event ORDER BY utc_millis ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: list all events: %w", err)
	}
	defer rows.Close()

	var events []model.FileEvent

	for rows.Next() {
		e, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating events: %w", err)
	}

	return events, nil
}

func scanEvent(rows *sql.Rows) (model.FileEvent, error) {
	var (
		e            model.FileEvent
		relPath      string
		eventType    string
		clientID     sql.NullString
		watchGroupID int64
		utcMillis    int64
	)

	if err := rows.Scan(&e.ID, &utcMillis, &relPath, &e.SizeInBytes, &eventType, &clientID, &watchGroupID); err != nil {
		return model.FileEvent{}, fmt.Errorf("store: scanning event: %w", err)
	}

	p, err := pathkey.FromSlashString(relPath)
	if err != nil {
		return model.FileEvent{}, fmt.Errorf("store: event %s has invalid path: %w", e.ID, err)
	}

	e.UTCMillis = model.Timestamp(utcMillis)
	e.RelativePath = p
	e.EventType = model.EventType(eventType)
	e.ClientID = clientID.String
	e.WatchGroupID = watchGroupID

	return e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
