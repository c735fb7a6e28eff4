package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// backupSweepInterval governs both the stale-upload cleanup and the daily
// backup checkpoint (a marker file only) mentioned in SPEC_FULL.md's
// "Supplemented Features".
const backupSweepInterval = 24 * time.Hour

// staleUploadAge is how long a file may sit in upload_in_progress before
// the sweep treats it as an abandoned transfer and removes it.
const staleUploadAge = 24 * time.Hour

// runBackupSweep periodically clears abandoned staged uploads and writes a
// backup checkpoint marker. A full off-host backup mechanism is left for
// the operator's own tooling (spec Non-goals exclude remote storage
// backends); this loop only guarantees upload_in_progress never
// accumulates dead files.
func runBackupSweep(ctx context.Context, dataDir string, logger *slog.Logger) error {
	ticker := time.NewTicker(backupSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			sweepStaleUploads(dataDir, logger)
			touchBackupMarker(dataDir, logger)
		}
	}
}

// touchBackupMarker records that a backup checkpoint occurred. The
// original implementation leaves the actual off-host copy as a TODO; this
// marker file is the same placeholder, carried forward rather than
// silently dropped.
func touchBackupMarker(dataDir string, logger *slog.Logger) {
	dir := filepath.Join(dataDir, "backup")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("syncd: backup marker dir", slog.Any("error", err))
		return
	}

	marker := filepath.Join(dir, "last_checkpoint")
	now := time.Now().UTC().Format(time.RFC3339)

	if err := os.WriteFile(marker, []byte(now+"\n"), 0o644); err != nil {
		logger.Warn("syncd: writing backup marker", slog.Any("error", err))
		return
	}

	logger.Info("syncd: backup checkpoint", slog.String("at", now))
}

func sweepStaleUploads(dataDir string, logger *slog.Logger) {
	root := filepath.Join(dataDir, "upload_in_progress")

	cutoff := time.Now().Add(-staleUploadAge)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}

			return err
		}

		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		if info.ModTime().Before(cutoff) {
			if rmErr := os.Remove(path); rmErr != nil {
				logger.Warn("syncd: failed to remove stale upload", slog.String("path", path), slog.Any("error", rmErr))
			} else {
				logger.Info("syncd: removed stale upload", slog.String("path", path))
			}
		}

		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		logger.Warn("syncd: backup sweep failed", slog.Any("error", err))
	}
}
