// Package config loads and saves the copilot-usage TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

const appName = "copilot-usage"

// Config holds all copilot-usage configuration.
type Config struct {
	GitHub     GitHubConfig     `toml:"github"`
	Cache      CacheConfig      `toml:"cache"`
	Appearance AppearanceConfig `toml:"appearance"`
	Plan       PlanConfig       `toml:"plan"`
	Export     ExportConfig     `toml:"export"`
	Log        LogConfig        `toml:"log"`
	Daemon     DaemonConfig     `toml:"daemon"`
}

// GitHubConfig holds API credentials and endpoint settings.
type GitHubConfig struct {
	Token          string `toml:"token,omitempty"`
	Username       string `toml:"username,omitempty"`
	BaseURL        string `toml:"base_url,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// CacheConfig holds snapshot cache settings.
type CacheConfig struct {
	TTLMinutes int    `toml:"ttl_minutes"`
	Backend    string `toml:"backend"`
	Dir        string `toml:"dir,omitempty"`
}

// AppearanceConfig holds dashboard preferences.
type AppearanceConfig struct {
	Theme       string `toml:"theme"`
	AutoRefresh bool   `toml:"auto_refresh"`
}

// PlanConfig selects the Copilot plan; MonthlyLimit overrides its quota.
type PlanConfig struct {
	Name         string  `toml:"name"`
	MonthlyLimit float64 `toml:"monthly_limit,omitempty"`
	OveragePrice float64 `toml:"overage_price"`
}

// ExportConfig holds status bar output settings.
type ExportConfig struct {
	Format string `toml:"format"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file,omitempty"`
}

// DaemonConfig holds the headless service settings.
type DaemonConfig struct {
	Addr            string `toml:"addr"`
	IntervalSeconds int    `toml:"interval_seconds"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		GitHub: GitHubConfig{
			TimeoutSeconds: 30,
		},
		Cache: CacheConfig{
			TTLMinutes: 5,
			Backend:    "file",
		},
		Appearance: AppearanceConfig{
			Theme:       "dark",
			AutoRefresh: true,
		},
		Plan: PlanConfig{
			Name:         "pro",
			OveragePrice: 0.04,
		},
		Export: ExportConfig{
			Format: "{percentage}%",
		},
		Log: LogConfig{
			Level: "info",
		},
		Daemon: DaemonConfig{
			Addr:            "127.0.0.1:8787",
			IntervalSeconds: 60,
		},
	}
}

// TTL returns the cache time-to-live.
func (c Config) TTL() time.Duration {
	if c.Cache.TTLMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// Timeout returns the per-request API timeout.
func (c Config) Timeout() time.Duration {
	if c.GitHub.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.GitHub.TimeoutSeconds) * time.Second
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	var errs []error
	if c.Cache.TTLMinutes < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl_minutes must not be negative (got %d)", c.Cache.TTLMinutes))
	}
	switch c.Cache.Backend {
	case "", "file", "sqlite", "bolt":
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q is not one of file, sqlite, bolt", c.Cache.Backend))
	}
	if c.Plan.MonthlyLimit < 0 {
		errs = append(errs, errors.New("plan.monthly_limit must not be negative"))
	}
	if _, ok := planLimits[strings.ToLower(c.Plan.Name)]; !ok && c.Plan.Name != "" && c.Plan.MonthlyLimit == 0 {
		errs = append(errs, fmt.Errorf("plan.name %q is unknown; set plan.monthly_limit", c.Plan.Name))
	}
	return errors.Join(errs...)
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// CacheDir returns the snapshot cache directory, honoring cache.dir.
func CacheDir(cfg Config) string {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", appName)
}

// LogPath returns the dashboard log file.
func LogPath(cfg Config) string {
	if cfg.Log.File != "" {
		return cfg.Log.File
	}
	return filepath.Join(CacheDir(cfg), appName+".log")
}

// LoadFrom reads the config at path, returning defaults if it doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
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

// SaveTo writes the config to path via a temp file and rename.
func SaveTo(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.CreateTemp(dir, "config-*.toml")
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if err := f.Chmod(0o600); err != nil {
		_ = f.Close()
		return fmt.Errorf("setting config permissions: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		_ = f.Close()
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

var saveMu sync.Mutex

// SaveTheme persists only the theme, keeping every other setting on disk.
func SaveTheme(path, theme string) error {
	return update(path, func(cfg *Config) { cfg.Appearance.Theme = theme })
}

// SaveAutoRefresh persists the auto refresh toggle.
func SaveAutoRefresh(path string, on bool) error {
	return update(path, func(cfg *Config) { cfg.Appearance.AutoRefresh = on })
}

func update(path string, fn func(*Config)) error {
	saveMu.Lock()
	defer saveMu.Unlock()

	cfg, err := LoadFrom(path)
	if err != nil {
		return err
	}
	fn(&cfg)
	return SaveTo(path, cfg)
}

// Token returns the GitHub token from env vars or config, in that order.
func Token(cfg Config) string {
	for _, key := range []string{"COPILOT_USAGE_TOKEN", "GITHUB_TOKEN"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return cfg.GitHub.Token
}
