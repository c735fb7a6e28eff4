// Package config loads syncd's bootstrap configuration: a TOML file on
// disk for the knobs that rarely change (listen address, data directory,
// seed watch groups), plus the environment overrides for TLS
// (TLS_CERT_PATH, TLS_KEY_PATH) and log level (SYNCD_LOG_LEVEL).
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the bootstrap configuration for the syncd server.
type Config struct {
	ListenAddr      string   `toml:"listen_addr"`
	DataDir         string   `toml:"data_dir"`
	SeedWatchGroups []string `toml:"seed_watch_groups"`
	LogLevel        string   `toml:"log_level"`
}

// Defaults returns the configuration used when no TOML file is present.
func Defaults() Config {
	return Config{
		ListenAddr: "0.0.0.0:3000",
		DataDir:    "data",
		LogLevel:   "info",
	}
}

// Load reads the TOML file at path, falling back to Defaults for any
// field the file doesn't set. A missing file is not an error — it yields
// Defaults() with only the environment overrides applied.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		return applyEnv(cfg), nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return applyEnv(cfg), nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	return applyEnv(cfg), nil
}

// applyEnv layers the spec §6 environment overrides (log level) on top of
// the file-sourced config. TLS paths are resolved separately via
// ResolveTLS since they gate a decision (plain vs TLS listener) rather
// than a Config field.
func applyEnv(cfg Config) Config {
	if lvl := os.Getenv("SYNCD_LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}

	return cfg
}

// ParseLogLevel converts the configured level string to a slog.Level,
// defaulting to Info on an unrecognized value.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// TLSPaths holds the two env-sourced paths that enable HTTPS per spec §6.
type TLSPaths struct {
	CertPath string
	KeyPath  string
}

// ResolveTLS reads TLS_CERT_PATH and TLS_KEY_PATH. Enabled reports true
// only when both are set and point at readable files.
func ResolveTLS() (paths TLSPaths, enabled bool) {
	paths = TLSPaths{
		CertPath: os.Getenv("TLS_CERT_PATH"),
		KeyPath:  os.Getenv("TLS_KEY_PATH"),
	}

	if paths.CertPath == "" || paths.KeyPath == "" {
		return paths, false
	}

	if _, err := os.Stat(paths.CertPath); err != nil {
		return paths, false
	}

	if _, err := os.Stat(paths.KeyPath); err != nil {
		return paths, false
	}

	return paths, true
}
