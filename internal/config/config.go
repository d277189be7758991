package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "GOBLET"

type Config struct {
	RepoRoot        string            `mapstructure:"repo_root"`
	MaxSearchDepth  int               `mapstructure:"max_search_depth"`
	CacheRoot       string            `mapstructure:"cache_root"`
	CloneURLsBase   map[string]string `mapstructure:"clone_urls_base"`
	LogLevel        string            `mapstructure:"log_level"`
	SnapshotFormats []string          `mapstructure:"snapshot_formats"`
	WatchDebounce   time.Duration     `mapstructure:"watch_debounce"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("repo_root", ".")
	v.SetDefault("max_search_depth", 2)
	v.SetDefault("cache_root", filepath.Join(os.TempDir(), "goblet-snapshots"))
	v.SetDefault("clone_urls_base", map[string]string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("snapshot_formats", []string{"tar.gz"})
	v.SetDefault("watch_debounce", 2*time.Second)
}

// Load reads the configuration. An explicit file must exist; otherwise
// goblet.{toml,yaml,json} is looked up in the working directory and in
// $HOME/.config/goblet, and defaults apply when none is found. GOBLET_*
// environment variables override both.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("goblet")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "goblet"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		slog.Debug("loaded config", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

func (c *Config) Validate() error {
	if c.MaxSearchDepth < 0 {
		return &ConfigError{Field: "max_search_depth", Message: "must not be negative"}
	}
	if c.CacheRoot == "" {
		return &ConfigError{Field: "cache_root", Message: "must be set"}
	}
	if c.WatchDebounce <= 0 {
		return &ConfigError{Field: "watch_debounce", Message: "must be positive"}
	}
	if _, err := c.SlogLevel(); err != nil {
		return &ConfigError{Field: "log_level", Message: err.Error()}
	}
	return nil
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}
