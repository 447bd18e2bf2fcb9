// Package config loads finctl settings from the TOML config file, a local
// .env file and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment overrides.
const (
	EnvAPIURL   = "FINCTL_API_URL"
	EnvLogLevel = "FINCTL_LOG_LEVEL"
	EnvStore    = "FINCTL_STORE"
)

// Config holds all finctl configuration.
type Config struct {
	API        APIConfig        `toml:"api"`
	Session    SessionConfig    `toml:"session"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Appearance AppearanceConfig `toml:"appearance"`
	LogLevel   string           `toml:"log_level,omitempty"`
}

// APIConfig holds backend connection settings.
type APIConfig struct {
	BaseURL           string  `toml:"base_url"`
	TimeoutSec        int     `toml:"timeout_sec"`
	MarketTimeoutSec  int     `toml:"market_timeout_sec"`
	PredictTimeoutSec int     `toml:"predict_timeout_sec"`
	SlowCallMS        int     `toml:"slow_call_ms"`
	RateLimitRPS      float64 `toml:"rate_limit_rps,omitempty"`
}

// SessionConfig holds session persistence and revalidation settings.
type SessionConfig struct {
	RevalidateMinutes int    `toml:"revalidate_minutes"`
	StorePath         string `toml:"store_path,omitempty"`
}

// DaemonConfig holds settings for the background session keeper.
type DaemonConfig struct {
	Addr string `toml:"addr"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:           "http://localhost:8000",
			TimeoutSec:        30,
			MarketTimeoutSec:  15,
			PredictTimeoutSec: 30,
			SlowCallMS:        1000,
		},
		Session: SessionConfig{
			RevalidateMinutes: 5,
		},
		Daemon: DaemonConfig{
			Addr: "127.0.0.1:8788",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		LogLevel: "warn",
	}
}

// Timeout returns the general request timeout.
func (a APIConfig) Timeout() time.Duration { return seconds(a.TimeoutSec, 30) }

// MarketTimeout returns the market-data request timeout.
func (a APIConfig) MarketTimeout() time.Duration { return seconds(a.MarketTimeoutSec, 15) }

// PredictTimeout returns the prediction request timeout.
func (a APIConfig) PredictTimeout() time.Duration { return seconds(a.PredictTimeoutSec, 30) }

// SlowCall returns the slow-call logging threshold.
func (a APIConfig) SlowCall() time.Duration {
	if a.SlowCallMS <= 0 {
		return time.Second
	}
	return time.Duration(a.SlowCallMS) * time.Millisecond
}

// RevalidateInterval returns the silent profile re-check interval.
func (s SessionConfig) RevalidateInterval() time.Duration {
	if s.RevalidateMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.RevalidateMinutes) * time.Minute
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "finctl")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "finctl")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// StateDir returns the XDG-compliant state directory for the session store
// and daemon files.
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "finctl")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "finctl")
}

// StorePath returns the credential store location.
func (c Config) StorePath() string {
	if c.Session.StorePath != "" {
		return c.Session.StorePath
	}
	return filepath.Join(StateDir(), "session.db")
}

// Load reads the config file, returning defaults if it doesn't exist, then
// applies .env and environment overrides.
func Load() (Config, error) {
	cfg, err := LoadFile(ConfigPath())
	if err != nil {
		return cfg, err
	}
	_ = godotenv.Load()
	ApplyEnv(&cfg)
	return cfg, nil
}

// LoadFile reads one config file without environment overrides.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is the user's own config
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *Config) {
	if v := getEnv(EnvAPIURL); v != "" {
		cfg.API.BaseURL = v
	}
	if v := getEnv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := getEnv(EnvStore); v != "" {
		cfg.Session.StorePath = v
	}
	if n, ok := getInt("FINCTL_TIMEOUT_SEC"); ok {
		cfg.API.TimeoutSec = n
	}
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveFile(ConfigPath(), cfg)
}

// SaveFile writes the config to path.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // path is the user's own config
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return toml.NewEncoder(f).Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getInt(key string) (int, bool) {
	v := getEnv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
