package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "backend:\n  base_url: http://backend:8000/\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://backend:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, time.Second, cfg.Sync.ResyncDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.ApproveRefreshDelay)
	assert.Equal(t, 4*time.Second, cfg.Sync.NoticeTTL)
	assert.Equal(t, 8, cfg.Sync.FetchConcurrency)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, 3600, cfg.Push.TTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Push.Enabled())
}

func TestLoad_ExplicitValues(t *testing.T) {
	path := writeConfig(t, `
sync:
  poll_interval_seconds: 5
  resync_delay_ms: 20
  approve_refresh_delay_ms: 10
  fetch_concurrency: 2
push:
  vapid_public_key: pub
  vapid_private_key: priv
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, 20*time.Millisecond, cfg.Sync.ResyncDelay)
	assert.Equal(t, 10*time.Millisecond, cfg.Sync.ApproveRefreshDelay)
	assert.Equal(t, 2, cfg.Sync.FetchConcurrency)
	assert.True(t, cfg.Push.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DASHBOARD_BACKEND_URL", "http://from-env:9000")
	t.Setenv("DASHBOARD_USERNAME", "tech1")
	path := writeConfig(t, "backend:\n  base_url: http://from-file\n  username: admin\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:9000", cfg.Backend.BaseURL)
	assert.Equal(t, "tech1", cfg.Backend.Username)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
