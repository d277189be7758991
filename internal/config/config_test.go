package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RepoRoot != "." {
		t.Fatalf("RepoRoot = %q, want .", cfg.RepoRoot)
	}
	if cfg.MaxSearchDepth != 2 {
		t.Fatalf("MaxSearchDepth = %d, want 2", cfg.MaxSearchDepth)
	}
	if want := filepath.Join(os.TempDir(), "goblet-snapshots"); cfg.CacheRoot != want {
		t.Fatalf("CacheRoot = %q, want %q", cfg.CacheRoot, want)
	}
	if cfg.WatchDebounce != 2*time.Second {
		t.Fatalf("WatchDebounce = %v, want 2s", cfg.WatchDebounce)
	}
	if !slices.Equal(cfg.SnapshotFormats, []string{"tar.gz"}) {
		t.Fatalf("SnapshotFormats = %v", cfg.SnapshotFormats)
	}
}

func TestLoadFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "goblet.yaml")
	content := `repo_root: /srv/git
max_search_depth: 3
cache_root: /var/cache/goblet
log_level: debug
watch_debounce: 500ms
snapshot_formats: [zip, tar.xz]
clone_urls_base:
  ssh: "git@example.com:"
  http: https://example.com/git/
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RepoRoot != "/srv/git" || cfg.MaxSearchDepth != 3 || cfg.CacheRoot != "/var/cache/goblet" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.WatchDebounce != 500*time.Millisecond {
		t.Fatalf("WatchDebounce = %v", cfg.WatchDebounce)
	}
	if !slices.Equal(cfg.SnapshotFormats, []string{"zip", "tar.xz"}) {
		t.Fatalf("SnapshotFormats = %v", cfg.SnapshotFormats)
	}
	if cfg.CloneURLsBase["ssh"] != "git@example.com:" || cfg.CloneURLsBase["http"] != "https://example.com/git/" {
		t.Fatalf("CloneURLsBase = %v", cfg.CloneURLsBase)
	}
	level, err := cfg.SlogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Fatalf("SlogLevel() = %v, %v", level, err)
	}
}

func TestLoadFindsFileInWorkingDirectory(t *testing.T) {
	isolate(t)

	if err := os.WriteFile("goblet.toml", []byte("max_search_depth = 5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxSearchDepth != 5 {
		t.Fatalf("MaxSearchDepth = %d, want 5", cfg.MaxSearchDepth)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("GOBLET_REPO_ROOT", "/from/env")
	t.Setenv("GOBLET_MAX_SEARCH_DEPTH", "0")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RepoRoot != "/from/env" {
		t.Fatalf("RepoRoot = %q, want /from/env", cfg.RepoRoot)
	}
	if cfg.MaxSearchDepth != 0 {
		t.Fatalf("MaxSearchDepth = %d, want 0", cfg.MaxSearchDepth)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := Config{CacheRoot: "/tmp/x", WatchDebounce: time.Second, LogLevel: "info"}
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{name: "negative depth", edit: func(c *Config) { c.MaxSearchDepth = -1 }, field: "max_search_depth"},
		{name: "empty cache root", edit: func(c *Config) { c.CacheRoot = "" }, field: "cache_root"},
		{name: "zero debounce", edit: func(c *Config) { c.WatchDebounce = 0 }, field: "watch_debounce"},
		{name: "bad level", edit: func(c *Config) { c.LogLevel = "loud" }, field: "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.edit(&cfg)
			var cfgErr *ConfigError
			if err := cfg.Validate(); !errors.As(err, &cfgErr) || cfgErr.Field != tt.field {
				t.Fatalf("Validate() = %v, want error on %s", err, tt.field)
			}
		})
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate() on valid config: %v", err)
	}
}
