// Package config resolves wcmove settings from flags, WCMOVE_* environment
// variables, an optional config file in the admin directory, and defaults,
// in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	EnvPrefix       = "WCMOVE"
	DefaultAdminDir = ".wcmove"
	configName      = "config.yaml"
)

// ValidFormats are the accepted output formats.
var ValidFormats = []string{"text", "json"}

// Config is the resolved configuration of one wcmove invocation.
type Config struct {
	// WCRoot is the working copy directory.
	WCRoot string `mapstructure:"wc"`

	// AdminDir is the administrative directory name below WCRoot.
	AdminDir string `mapstructure:"admin_dir"`

	// CacheSize is the number of pristine texts kept in memory.
	CacheSize int `mapstructure:"cache_size"`

	// BusyTimeout is the SQLite busy timeout in milliseconds.
	BusyTimeout int `mapstructure:"busy_timeout_ms"`

	LogLevel string `mapstructure:"log_level"`
	Format   string `mapstructure:"format"`

	// Path is the config file that was read, if any.
	Path string `mapstructure:"-"`
}

// Default returns the built-in configuration for a working copy at root.
func Default(root string) *Config {
	return &Config{
		WCRoot:      root,
		AdminDir:    DefaultAdminDir,
		CacheSize:   256,
		BusyTimeout: 5000,
		LogLevel:    "info",
		Format:      "text",
	}
}

// flagKeys maps config keys to the persistent flags bound to them.
var flagKeys = map[string]string{
	"wc":        "wc",
	"format":    "format",
	"log_level": "log-level",
}

// Load resolves the configuration. cmd may be nil, in which case only the
// environment, the config file and defaults are consulted.
func Load(cmd *cobra.Command) (*Config, error) {
	d := Default(".")
	v := viper.New()
	v.SetDefault("wc", d.WCRoot)
	v.SetDefault("admin_dir", d.AdminDir)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("busy_timeout_ms", d.BusyTimeout)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("format", d.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		for key, name := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	// The config file lives inside the working copy, so its location comes
	// from the layers above it.
	path := filepath.Join(v.GetString("wc"), v.GetString("admin_dir"), configName)
	v.SetConfigFile(path)
	read := true
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config read %q: %w", path, err)
		}
		read = false
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	if read {
		cfg.Path = path
	}
	return cfg, nil
}

// Validate checks the resolved values.
func (c *Config) Validate() error {
	if c.WCRoot == "" {
		return errors.New("working copy root is required")
	}
	if c.AdminDir == "" || strings.ContainsRune(c.AdminDir, filepath.Separator) {
		return fmt.Errorf("invalid admin dir %q", c.AdminDir)
	}
	if !slices.Contains(ValidFormats, c.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", c.Format, ValidFormats)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("invalid cache size %d", c.CacheSize)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// AdminPath returns the absolute admin directory.
func (c *Config) AdminPath() string {
	return filepath.Join(c.WCRoot, c.AdminDir)
}

// DBPath returns the metadata database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.AdminPath(), "wc.db")
}

// PristineDir returns the pristine text directory.
func (c *Config) PristineDir() string {
	return filepath.Join(c.AdminPath(), "pristine")
}

// LockPath returns the advisory lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.AdminPath(), "wc.lock")
}
