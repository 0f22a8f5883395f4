// Package config loads the ftlext YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/ftlext/bridge"
	"github.com/hazyhaar/ftlext/features"
	"github.com/hazyhaar/ftlext/recipes"
)

const (
	DefaultURL  = "https://www.fishtank.live"
	DefaultAddr = "127.0.0.1:8917"
)

// Config is the top-level configuration.
type Config struct {
	// URL is the host page opened in the browser.
	URL string `yaml:"url"`
	// Addr is the listen address of the HTTP API. "-" disables it.
	Addr string `yaml:"addr"`
	// Store is the SQLite file backing settings and activity logs.
	Store string `yaml:"store"`
	// Record, when set, appends every snapshot and batch from the page to
	// this JSON-lines file for ftlreplay.
	Record   string `yaml:"record"`
	LogLevel string `yaml:"log_level"`
	// Debug enables the per-message debug logs of the features.
	Debug bool `yaml:"debug"`
	// MCP mounts the MCP tools on /mcp.
	MCP bool `yaml:"mcp"`

	Browser  bridge.Config   `yaml:"browser"`
	Recipes  recipes.Config  `yaml:"recipes"`
	Features features.Config `yaml:"features"`
}

// Default returns the configuration used without a file.
func Default() *Config {
	cfg := &Config{MCP: true}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := &Config{MCP: true}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Store == "" {
		c.Store = "ftlext.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Level maps LogLevel to a slog level; unknown names mean info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
