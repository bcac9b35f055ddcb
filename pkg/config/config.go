// Package config loads the settings of an application hosting a bus System.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds host settings
type Config struct {
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`
	// Console attaches the coloured console printer to the reporter
	Console bool `json:"console" yaml:"console" toml:"console"`

	SearchPaths []string `json:"search_paths" yaml:"search_paths" toml:"search_paths"`
	Modules     []string `json:"modules" yaml:"modules" toml:"modules"`
	ModuleDirs  []string `json:"module_dirs" yaml:"module_dirs" toml:"module_dirs"`
	Watch       bool     `json:"watch" yaml:"watch" toml:"watch"`

	// InspectAddr is the introspection listen address; empty disables it
	InspectAddr string `json:"inspect_addr" yaml:"inspect_addr" toml:"inspect_addr"`
	// Journal is the sqlite file load attempts are recorded in; empty
	// disables it
	Journal string `json:"journal" yaml:"journal" toml:"journal"`
}

// Default returns the settings used when no file is given
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// DefaultPath returns ~/.config/bus/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "bus", "config.yaml"), nil
}

// Load reads a config file. The format follows the extension: .json,
// .yaml/.yml or .toml. Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field values
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log_format: unknown format %q", c.LogFormat)
	}
	for name, list := range map[string][]string{
		"search_paths": c.SearchPaths,
		"modules":      c.Modules,
		"module_dirs":  c.ModuleDirs,
	} {
		for i, v := range list {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("%s[%d]: empty entry", name, i)
			}
		}
	}
	if c.Watch && len(c.ModuleDirs) == 0 {
		return fmt.Errorf("watch: no module_dirs to watch")
	}
	return nil
}

// NewLogger builds the zap logger described by c
func NewLogger(c *Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}

	var zc zap.Config
	if c.LogFormat == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
