// Package migrate implements the one-time legacy CSV-to-SQL migration
// that runs at boot (spec §6 "CSV migration format"). It is
// contract-level only in the distilled spec; this implementation follows
// the original's server/src/csv_migration.rs behavior: one header row,
// each data row `id;utc_millis;relative_path;size_in_bytes;event_type[;client_host]`,
// unknown hosts attributed to the oldest registered client, and the whole
// migration skipped (with a warning, not a boot failure) if no clients
// are registered yet.
package migrate

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/syncbridge/syncd/internal/model"
	"github.com/syncbridge/syncd/internal/pathkey"
	"github.com/syncbridge/syncd/internal/store"
)

// LegacyFileName is the CSV file name checked under the data directory.
const LegacyFileName = "history.csv"

// clientResolver is the subset of *store.EventStore the migration needs,
// narrowed for testability.
type clientResolver interface {
	OldestClientID(ctx context.Context) (string, error)
	ClientIDByHost(ctx context.Context, host string) (string, error)
	BulkInsertEvents(ctx context.Context, rows []store.BulkEventRow) (int, error)
}

// RunOnce looks for dataDir/history.csv, imports it into the EventStore if
// found, and renames it to history.csv.migrated on success. A missing
// file is a no-op, not an error. If the file exists but no clients are
// registered, the migration is skipped with a warning — per spec, this is
// a contract-level concern, not a fatal-boot precondition.
//
// legacyWatchGroupID is stamped onto every imported row: the legacy CSV
// predates multi-watch-group support, so all its history belongs to
// whichever watch group the operator designates as the successor (by
// convention, the first one seeded at bootstrap).
func RunOnce(ctx context.Context, dataDir string, legacyWatchGroupID int64, es clientResolver, logger *slog.Logger) error {
	path := filepath.Join(dataDir, LegacyFileName)

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("migrate: opening %s: %w", path, err)
	}
	defer f.Close()

	rows, skipErr := parseAndResolve(ctx, f, legacyWatchGroupID, es, logger)
	if skipErr != nil {
		logger.Warn("migrate: skipping CSV migration", slog.Any("reason", skipErr))
		return nil
	}

	inserted, err := es.BulkInsertEvents(ctx, rows)
	if err != nil {
		return fmt.Errorf("migrate: bulk insert: %w", err)
	}

	logger.Info("migrate: imported legacy history",
		slog.Int("rows_parsed", len(rows)),
		slog.Int("rows_inserted", inserted),
	)

	if err := os.Rename(path, path+".migrated"); err != nil {
		return fmt.Errorf("migrate: renaming %s: %w", path, err)
	}

	return nil
}

var errNoClientsRegistered = errors.New("migrate: no clients registered, cannot attribute unknown hosts")

func parseAndResolve(ctx context.Context, r io.Reader, watchGroupID int64, es clientResolver, logger *slog.Logger) ([]store.BulkEventRow, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("migrate: reading header: %w", err)
	}

	_ = header // header is positional-only; columns are fixed per spec §6.

	oldest, oldestErr := es.OldestClientID(ctx)
	if oldestErr != nil {
		return nil, errNoClientsRegistered
	}

	var rows []store.BulkEventRow

	for {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return nil, fmt.Errorf("migrate: reading row: %w", readErr)
		}

		row, parseErr := parseRow(ctx, record, es, oldest, watchGroupID, logger)
		if parseErr != nil {
			logger.Warn("migrate: skipping malformed row", slog.Any("error", parseErr))
			continue
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func parseRow(ctx context.Context, record []string, es clientResolver, oldestClientID string, watchGroupID int64, logger *slog.Logger) (store.BulkEventRow, error) {
	if len(record) < 5 {
		return store.BulkEventRow{}, fmt.Errorf("migrate: row has %d fields, need at least 5", len(record))
	}

	id, utcField, pathField, sizeField, typeField := record[0], record[1], record[2], record[3], record[4]

	var utcMillis int64
	if _, err := fmt.Sscanf(utcField, "%d", &utcMillis); err != nil {
		return store.BulkEventRow{}, fmt.Errorf("migrate: bad utc_millis %q: %w", utcField, err)
	}

	var size uint64
	if _, err := fmt.Sscanf(sizeField, "%d", &size); err != nil {
		return store.BulkEventRow{}, fmt.Errorf("migrate: bad size %q: %w", sizeField, err)
	}

	p, err := pathkey.FromSlashString(pathField)
	if err != nil {
		return store.BulkEventRow{}, fmt.Errorf("migrate: bad path %q: %w", pathField, err)
	}

	var eventType model.EventType

	switch typeField {
	case "change":
		eventType = model.EventChange
	case "delete":
		eventType = model.EventDelete
	default:
		return store.BulkEventRow{}, fmt.Errorf("migrate: unknown event_type %q", typeField)
	}

	clientID := oldestClientID

	if len(record) >= 6 && record[5] != "" {
		if resolved, err := es.ClientIDByHost(ctx, record[5]); err == nil {
			clientID = resolved
		} else {
			logger.Warn("migrate: unknown host, attributing to oldest client",
				slog.String("host", record[5]))
		}
	}

	return store.BulkEventRow{
		Event: model.FileEvent{
			ID:           id,
			WatchGroupID: watchGroupID,
			UTCMillis:    model.Timestamp(utcMillis),
			RelativePath: p,
			SizeInBytes:  size,
			EventType:    eventType,
		},
		ClientID: clientID,
	}, nil
}
