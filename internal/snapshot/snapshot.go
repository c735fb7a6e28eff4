// Package snapshot implements the recursive directory scan a client runs
// to produce the FileDescriptor list it POSTs to /sys/sync (spec §4.5).
package snapshot

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/syncbridge/syncd/internal/model"
	"github.com/syncbridge/syncd/internal/pathkey"
)

// IgnoreMarkerFile is a gitignore-syntax exclusion file, layered on top of
// exclude_dirs/exclude_dot_dirs. Only the marker at the scan root is read;
// marker files in subdirectories are skipped as files but not consulted.
// This supplements spec §4.5's exclusion rules rather than replacing them.
const IgnoreMarkerFile = ".syncignore"

// Scan recursively walks root, producing a FileDescriptor for every
// regular file not excluded by the rules in §4.5: directories named with
// a leading dot are skipped entirely when excludeDotDirs is set; any
// directory whose path contains one of excludeDirs as a substring is
// skipped; ".DS_Store" (case-insensitive) is always skipped; any file or
// directory matched by the .syncignore marker at root is skipped.
// Ordering within the returned slice is unspecified. A file whose mtime
// cannot be read fails the whole scan, matching spec §4.5.
func Scan(root string, excludeDirs []string, excludeDotDirs bool, logger *slog.Logger) ([]model.FileDescriptor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var out []model.FileDescriptor

	matcher := loadIgnoreMarker(root, logger)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("snapshot: walking %s: %w", path, err)
		}

		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fmt.Errorf("snapshot: relativizing %s: %w", path, relErr)
		}

		if d.IsDir() {
			name := d.Name()
			if excludeDotDirs && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}

			if containsAny(path, excludeDirs) {
				return filepath.SkipDir
			}

			if matcher != nil && matcher.MatchesPath(rel) {
				return filepath.SkipDir
			}

			return nil
		}

		if strings.EqualFold(d.Name(), ".ds_store") || d.Name() == IgnoreMarkerFile {
			return nil
		}

		if containsAny(path, excludeDirs) {
			return nil
		}

		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return fmt.Errorf("snapshot: stat %s: %w", path, infoErr)
		}

		p, pathErr := pathkey.FromOSPath(rel)
		if pathErr != nil {
			return fmt.Errorf("snapshot: building path for %s: %w", rel, pathErr)
		}

		out = append(out, model.FileDescriptor{
			FileName:         d.Name(),
			RelativePath:     p,
			SizeInBytes:      uint64(info.Size()),
			FileType:         strings.TrimPrefix(filepath.Ext(d.Name()), "."),
			LastUpdatedMicro: model.FromTime(info.ModTime()),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func containsAny(path string, substrs []string) bool {
	for _, s := range substrs {
		if s == "" {
			continue
		}

		if strings.Contains(path, s) {
			return true
		}
	}

	return false
}

func loadIgnoreMarker(root string, logger *slog.Logger) *ignore.GitIgnore {
	markerPath := filepath.Join(root, IgnoreMarkerFile)

	if _, err := os.Stat(markerPath); err != nil {
		return nil
	}

	matcher, err := ignore.CompileIgnoreFile(markerPath)
	if err != nil {
		logger.Warn("snapshot: ignoring malformed .syncignore", slog.String("path", markerPath), slog.Any("error", err))
		return nil
	}

	return matcher
}
