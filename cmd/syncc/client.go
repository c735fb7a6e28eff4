package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/syncbridge/syncd/internal/model"
	"github.com/syncbridge/syncd/internal/pathkey"
	"github.com/syncbridge/syncd/internal/snapshot"
)

type client struct {
	serverURL    string
	clientID     string
	localRoot    string
	watchGroupID int64
	logger       *slog.Logger

	httpClient http.Client
}

// loop repeatedly fetches the server-assigned config and syncs until ctx
// is canceled.
func (c *client) loop(ctx context.Context) error {
	interval := defaultPollInterval

	for {
		cfg, err := c.fetchConfig(ctx)
		if err != nil {
			c.logger.Warn("syncc: fetching config failed, using previous interval", slog.Any("error", err))
		} else {
			interval = time.Duration(cfg.MinPollIntervalMS) * time.Millisecond
		}

		if err := c.syncOnce(ctx); err != nil {
			c.logger.Error("syncc: sync failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (c *client) fetchConfig(ctx context.Context) (model.WatchConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/sys/config", nil)
	if err != nil {
		return model.WatchConfig{}, err
	}

	req.Header.Set("X-Client-Id", c.clientID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.WatchConfig{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.WatchConfig{}, fmt.Errorf("syncc: GET /sys/config: %s", resp.Status)
	}

	var cfg model.WatchConfig

	return cfg, json.NewDecoder(resp.Body).Decode(&cfg)
}

// syncOnce scans localRoot, sends the snapshot to /sys/sync, and executes
// the returned instructions in order.
func (c *client) syncOnce(ctx context.Context) error {
	descriptors, err := c.scan()
	if err != nil {
		return fmt.Errorf("scanning %s: %w", c.localRoot, err)
	}

	instructions, err := c.requestSync(ctx, descriptors)
	if err != nil {
		return fmt.Errorf("requesting sync: %w", err)
	}

	c.logger.Info("syncc: reconciled", slog.Int("files", len(descriptors)), slog.Int("instructions", len(instructions)))

	for _, instr := range instructions {
		if execErr := c.execute(ctx, instr); execErr != nil {
			c.logger.Error("syncc: instruction failed",
				slog.String("kind", string(instr.Kind)),
				slog.String("path", instr.Path.String()),
				slog.Any("error", execErr))
		}
	}

	return nil
}

func (c *client) scan() ([]model.FileDescriptor, error) {
	return snapshot.Scan(c.localRoot, nil, true, c.logger)
}

func (c *client) requestSync(ctx context.Context, descriptors []model.FileDescriptor) ([]model.Instruction, error) {
	body, err := json.Marshal(map[string]any{"descriptors": descriptors})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/sys/sync/%d", c.serverURL, c.watchGroupID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-Client-Id", c.clientID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("POST /sys/sync: %s", resp.Status)
	}

	var instructions []model.Instruction

	return instructions, json.NewDecoder(resp.Body).Decode(&instructions)
}

func (c *client) execute(ctx context.Context, instr model.Instruction) error {
	switch instr.Kind {
	case model.InstructionUpload:
		return c.upload(ctx, instr.Path)
	case model.InstructionDownload:
		return c.download(ctx, instr.Path)
	case model.InstructionDelete:
		return c.delete(ctx, instr.Path)
	default:
		return fmt.Errorf("unknown instruction kind %q", instr.Kind)
	}
}

func (c *client) upload(ctx context.Context, p pathkey.Path) error {
	localPath := filepath.Join(c.localRoot, filepath.FromSlash(p.String()))

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	url := fmt.Sprintf("%s/sys/upload/%d?path=%s", c.serverURL, c.watchGroupID, p.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, f)
	if err != nil {
		return err
	}

	req.Header.Set("X-Client-Id", c.clientID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload %s: %s", p.String(), resp.Status)
	}

	return nil
}

func (c *client) download(ctx context.Context, p pathkey.Path) error {
	url := fmt.Sprintf("%s/sys/download/%d?path=%s", c.serverURL, c.watchGroupID, p.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: %s", p.String(), resp.Status)
	}

	localPath := filepath.Join(c.localRoot, filepath.FromSlash(p.String()))
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}

	out, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)

	return err
}

func (c *client) delete(ctx context.Context, p pathkey.Path) error {
	body, _ := json.Marshal(map[string]string{"relative_path": p.String()})

	url := fmt.Sprintf("%s/sys/delete/%d", c.serverURL, c.watchGroupID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("X-Client-Id", c.clientID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("delete %s: %s", p.String(), resp.Status)
	}

	localPath := filepath.Join(c.localRoot, filepath.FromSlash(p.String()))
	if rmErr := os.Remove(localPath); rmErr != nil && !os.IsNotExist(rmErr) {
		return rmErr
	}

	return nil
}
