package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// WatchFile reloads the TOML config at path whenever it changes on disk
// and invokes onChange with the newly parsed Config. It runs until ctx is
// canceled. Errors from the watcher or a malformed reload are logged and
// do not stop the loop — the server keeps running on its last-known-good
// config, matching the teacher's "don't let config reload crash the
// process" posture.
func WatchFile(ctx context.Context, path string, logger *slog.Logger, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		logger.Warn("config: not watching for changes", slog.String("path", path), slog.Any("error", err))
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			cfg, loadErr := Load(path)
			if loadErr != nil {
				logger.Warn("config: reload failed, keeping previous config", slog.Any("error", loadErr))
				continue
			}

			logger.Info("config: reloaded", slog.String("path", path))
			onChange(cfg)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("config: watcher error", slog.Any("error", watchErr))
		}
	}
}
