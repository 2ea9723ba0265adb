package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.TTL() != 5*time.Minute {
		t.Fatalf("TTL = %v, want 5m", cfg.TTL())
	}
	if cfg.Export.Format != "{percentage}%" {
		t.Fatalf("Export.Format = %q", cfg.Export.Format)
	}
	if cfg.Appearance.Theme != "dark" || !cfg.Appearance.AutoRefresh {
		t.Fatalf("Appearance = %+v, want dark with auto refresh", cfg.Appearance)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := DefaultConfig()
	cfg.GitHub.Token = "ghp_secret"
	cfg.GitHub.Username = "octocat"
	cfg.Cache.TTLMinutes = 15
	cfg.Cache.Backend = "sqlite"

	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("config perms = %o, want 600", perm)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got.GitHub.Username != "octocat" || got.TTL() != 15*time.Minute || got.Cache.Backend != "sqlite" {
		t.Fatalf("loaded = %+v", got)
	}
}

func TestLoadFromPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[github]\ntoken = \"ghp_x\"\n\n[cache]\nttl_minutes = 2\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.TTL() != 2*time.Minute {
		t.Fatalf("TTL = %v, want 2m", cfg.TTL())
	}
	if cfg.Appearance.Theme != "dark" {
		t.Fatalf("Theme = %q, want default dark", cfg.Appearance.Theme)
	}
}

func TestLoadFromInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[github\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil || !strings.Contains(err.Error(), "parsing config") {
		t.Fatalf("err = %v, want parsing error", err)
	}
}

func TestSaveThemeKeepsOtherSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.GitHub.Username = "octocat"
	if err := SaveTo(path, cfg); err != nil {
		t.Fatal(err)
	}

	if err := SaveTheme(path, "nord"); err != nil {
		t.Fatalf("SaveTheme: %v", err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Appearance.Theme != "nord" || got.GitHub.Username != "octocat" {
		t.Fatalf("after SaveTheme = %+v", got)
	}
}

func TestTokenPrefersEnvironment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GitHub.Token = "ghp_fromfile"

	t.Setenv("COPILOT_USAGE_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")
	if got := Token(cfg); got != "ghp_fromfile" {
		t.Fatalf("Token = %q, want config token", got)
	}

	t.Setenv("GITHUB_TOKEN", "ghp_fromenv")
	if got := Token(cfg); got != "ghp_fromenv" {
		t.Fatalf("Token = %q, want GITHUB_TOKEN", got)
	}

	t.Setenv("COPILOT_USAGE_TOKEN", "ghp_specific")
	if got := Token(cfg); got != "ghp_specific" {
		t.Fatalf("Token = %q, want COPILOT_USAGE_TOKEN", got)
	}
}

func TestPathsHonorXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "cfg"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))

	if got, want := ConfigPath(), filepath.Join(dir, "cfg", appName, "config.toml"); got != want {
		t.Fatalf("ConfigPath = %s, want %s", got, want)
	}
	if got, want := CacheDir(DefaultConfig()), filepath.Join(dir, "cache", appName); got != want {
		t.Fatalf("CacheDir = %s, want %s", got, want)
	}
	cfg := DefaultConfig()
	cfg.Cache.Dir = "/tmp/elsewhere"
	if got := CacheDir(cfg); got != "/tmp/elsewhere" {
		t.Fatalf("CacheDir override = %s", got)
	}
}

func TestResolvePlan(t *testing.T) {
	cfg := DefaultConfig()
	if got := ResolvePlan(cfg).Limit; got != 300 {
		t.Fatalf("pro limit = %v, want 300", got)
	}
	cfg.Plan.Name = "Pro+"
	if got := ResolvePlan(cfg).Limit; got != 1500 {
		t.Fatalf("pro+ limit = %v, want 1500", got)
	}
	cfg.Plan.MonthlyLimit = 100
	if got := ResolvePlan(cfg).Limit; got != 100 {
		t.Fatalf("override limit = %v, want 100", got)
	}
	if names := PlanNames(); names[0] != "free" || names[len(names)-1] != "pro+" {
		t.Fatalf("PlanNames = %v", names)
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Cache.Backend = "redis"
	cfg.Cache.TTLMinutes = -1
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "redis") || !strings.Contains(err.Error(), "ttl_minutes") {
		t.Fatalf("Validate = %v, want backend and ttl errors", err)
	}
}

func TestWatchReportsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveTo(path, DefaultConfig()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed, err := Watch(ctx, path)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := SaveTheme(path, "gruvbox"); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification after SaveTheme")
	}
}
