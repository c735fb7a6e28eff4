package telemetry

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
)

// Sampler periodically snapshots process and filesystem health into a
// daily-rotating CSV under monitorDir.
type Sampler struct {
	metrics    *Metrics
	monitorDir string
	dataRoot   string
	interval   time.Duration
	logger     *slog.Logger

	currentDay  string
	currentFile *os.File
	writer      *csv.Writer
}

// NewSampler creates a Sampler writing CSV rows to monitorDir every
// interval, reporting free space under dataRoot.
func NewSampler(metrics *Metrics, monitorDir, dataRoot string, interval time.Duration, logger *slog.Logger) *Sampler {
	return &Sampler{
		metrics:    metrics,
		monitorDir: monitorDir,
		dataRoot:   dataRoot,
		interval:   interval,
		logger:     logger,
	}
}

// Run samples on a ticker until ctx is canceled. It satisfies the
// errgroup.Group function signature used by cmd/syncd's serve command to
// supervise background tasks.
func (s *Sampler) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.monitorDir, 0o755); err != nil {
		return fmt.Errorf("telemetry: creating monitor dir: %w", err)
	}

	defer s.closeCurrentFile()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if err := s.sampleOnce(); err != nil {
				s.logger.Warn("telemetry: sample failed", slog.Any("error", err))
			}
		}
	}
}

func (s *Sampler) sampleOnce() error {
	freeBytes, err := freeDiskBytes(s.dataRoot)
	if err != nil {
		return fmt.Errorf("telemetry: statfs %s: %w", s.dataRoot, err)
	}

	row := []string{
		time.Now().UTC().Format(time.RFC3339),
		fmt.Sprintf("%d", freeBytes),
		fmt.Sprintf("%d", runtime.NumGoroutine()),
		fmt.Sprintf("%d", s.metrics.UploadsTotal.Value()),
		fmt.Sprintf("%d", s.metrics.DownloadsTotal.Value()),
		fmt.Sprintf("%d", s.metrics.DeletesTotal.Value()),
		fmt.Sprintf("%d", s.metrics.SyncsTotal.Value()),
	}

	if err := s.appendRow(row); err != nil {
		return err
	}

	s.logger.Debug("telemetry: sampled",
		slog.String("free_disk", humanize.Bytes(freeBytes)),
		slog.Int("goroutines", runtime.NumGoroutine()),
	)

	return nil
}

func (s *Sampler) appendRow(row []string) error {
	day := time.Now().UTC().Format("2006-01-02")

	if day != s.currentDay {
		s.closeCurrentFile()

		path := filepath.Join(s.monitorDir, day+".csv")

		isNew := true
		if _, statErr := os.Stat(path); statErr == nil {
			isNew = false
		}

		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("telemetry: opening %s: %w", path, err)
		}

		s.currentDay = day
		s.currentFile = f
		s.writer = csv.NewWriter(f)

		if isNew {
			if err := s.writer.Write([]string{
				"timestamp_utc", "free_disk_bytes", "goroutines",
				"uploads_total", "downloads_total", "deletes_total", "syncs_total",
			}); err != nil {
				return fmt.Errorf("telemetry: writing header: %w", err)
			}
		}
	}

	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("telemetry: writing row: %w", err)
	}

	s.writer.Flush()

	return s.writer.Error()
}

func (s *Sampler) closeCurrentFile() {
	if s.currentFile == nil {
		return
	}

	s.writer.Flush()
	s.currentFile.Close()
	s.currentFile = nil
	s.writer = nil
}

