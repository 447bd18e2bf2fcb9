package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout())
	assert.Equal(t, 15*time.Second, cfg.API.MarketTimeout())
	assert.Equal(t, time.Second, cfg.API.SlowCall())
	assert.Equal(t, 5*time.Minute, cfg.Session.RevalidateInterval())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.toml")
	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://finance.example.com"
	cfg.API.RateLimitRPS = 5
	cfg.Session.RevalidateMinutes = 1

	require.NoError(t, SaveFile(path, cfg))
	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api]\nbase_url = \"http://api:9000\"\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://api:9000", cfg.API.BaseURL)
	assert.Equal(t, 30, cfg.API.TimeoutSec)
	assert.Equal(t, "flexoki-dark", cfg.Appearance.Theme)
}

func TestInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api\n"), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvAPIURL, " http://env:1 ")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvStore, "/tmp/s.db")
	t.Setenv("FINCTL_TIMEOUT_SEC", "7")

	cfg := DefaultConfig()
	ApplyEnv(&cfg)
	assert.Equal(t, "http://env:1", cfg.API.BaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/s.db", cfg.StorePath())
	assert.Equal(t, 7*time.Second, cfg.API.Timeout())
}

func TestStorePathDefaultsUnderStateDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join(dir, "finctl", "session.db"), cfg.StorePath())
}
