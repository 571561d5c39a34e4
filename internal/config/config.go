// Package config loads gitstat settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/gitstat/config.toml (os.UserConfigDir)
// unless GITSTAT_CONFIG or the --config flag names another one. Command line
// flags override file values; the file overrides the defaults.
//
//	backend = "native"        # "cli" or "native"
//	git_binary = "/usr/bin/git"
//	color = "auto"            # "auto", "always" or "never"
//	theme = "auto"            # "auto", "light" or "dark"
//	show_unchanged = false
//
//	[watch]
//	delay = "350ms"
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// EnvPath overrides the default config file location.
	EnvPath = "GITSTAT_CONFIG"

	DefaultWatchDelay = 350 * time.Millisecond
)

var (
	backends = []string{"cli", "native"}
	colors   = []string{"auto", "always", "never"}
	themes   = []string{"auto", "light", "dark"}
)

type WatchConfig struct {
	Delay time.Duration `toml:"delay"`
}

type Config struct {
	Backend       string      `toml:"backend"`
	GitBinary     string      `toml:"git_binary"`
	Color         string      `toml:"color"`
	Theme         string      `toml:"theme"`
	ShowUnchanged bool        `toml:"show_unchanged"`
	Watch         WatchConfig `toml:"watch"`
}

func Default() Config {
	return Config{
		Backend: "cli",
		Color:   "auto",
		Theme:   "auto",
		Watch:   WatchConfig{Delay: DefaultWatchDelay},
	}
}

// DefaultPath returns the config file location, honoring EnvPath.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "gitstat", "config.toml"), nil
}

// Load reads the config at path, or at DefaultPath when path is empty. A
// missing default file yields Default(); a missing explicit file is an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			slog.Debug("no config dir", slog.Any("error", err))
			return Default(), nil
		}
		path = p
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return Default(), nil
		}
		return Default(), fmt.Errorf("read config file: %w", err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return Default(), fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("loaded config", slog.String("path", path))
	return cfg, nil
}

// Parse decodes TOML on top of Default() and validates the result.
func Parse(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Default(), fmt.Errorf("parse config: %w", err)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("unknown config key", slog.String("key", key.String()))
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.Color = strings.ToLower(strings.TrimSpace(c.Color))
	c.Theme = strings.ToLower(strings.TrimSpace(c.Theme))
	c.GitBinary = strings.TrimSpace(c.GitBinary)
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	if err := oneOf("backend", c.Backend, backends); err != nil {
		return err
	}
	if err := oneOf("color", c.Color, colors); err != nil {
		return err
	}
	if err := oneOf("theme", c.Theme, themes); err != nil {
		return err
	}
	if c.Watch.Delay < 0 {
		return fmt.Errorf("invalid watch.delay %s: must not be negative", c.Watch.Delay)
	}
	return nil
}

func oneOf(field, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("invalid %s %q: must be one of %s", field, value, strings.Join(allowed, ", "))
}
