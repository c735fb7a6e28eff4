package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().ListenAddr, cfg.ListenAddr)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syncd.toml")
	contents := "listen_addr = \":8080\"\ndata_dir = \"/srv/syncd\"\nseed_watch_groups = [\"photos\", \"docs\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "/srv/syncd", cfg.DataDir)
	assert.Equal(t, []string{"photos", "docs"}, cfg.SeedWatchGroups)
}

func TestLoad_EnvOverridesLogLevel(t *testing.T) {
	t.Setenv("SYNCD_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestResolveTLS_RequiresBothFiles(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	key := filepath.Join(dir, "key.pem")

	require.NoError(t, os.WriteFile(cert, []byte("cert"), 0o644))

	t.Setenv("TLS_CERT_PATH", cert)
	t.Setenv("TLS_KEY_PATH", key)

	_, enabled := ResolveTLS()
	assert.False(t, enabled, "key file missing, TLS must stay disabled")

	require.NoError(t, os.WriteFile(key, []byte("key"), 0o644))

	_, enabled = ResolveTLS()
	assert.True(t, enabled)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLogLevel("debug").String())
	assert.Equal(t, "INFO", ParseLogLevel("unknown").String())
}
