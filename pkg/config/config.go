// Package config loads grooveshift tool settings
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/james-see/grooveshift/pkg/groove"
)

// ErrConfigExists is returned by Init when the target file is already there
var ErrConfigExists = errors.New("config file already exists")

// ServerConfig holds API server settings
type ServerConfig struct {
	Port int `yaml:"port" json:"port"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug | info | warn | error
	Format string `yaml:"format" json:"format"` // text | json
}

// Defaults are used when a command does not specify a value
type Defaults struct {
	Domain       string `yaml:"domain" json:"domain"`
	NotesPerBeat int    `yaml:"notes_per_beat" json:"notes_per_beat"`
	Padding      string `yaml:"padding" json:"padding"`
}

// Config is the main configuration structure
type Config struct {
	Server   ServerConfig `yaml:"server" json:"server"`
	Log      LogConfig    `yaml:"log" json:"log"`
	Defaults Defaults     `yaml:"defaults" json:"defaults"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info", Format: "text"},
		Defaults: Defaults{
			Domain:       "ntsc",
			NotesPerBeat: groove.CanonicalNotesPerBeat,
			Padding:      "middle",
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "grooveshift"), nil
}

// ConfigPath returns the full path to config.yaml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads a config file over the defaults. An empty path loads the
// default location, and a missing default file is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("load config %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config data over the defaults
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Defaults.NotesPerBeat <= 0 {
		return fmt.Errorf("invalid notes_per_beat %d", c.Defaults.NotesPerBeat)
	}
	if _, err := c.Domain(); err != nil {
		return err
	}
	if _, err := c.Padding(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	return nil
}

// Domain returns the default tempo domain
func (c *Config) Domain() (groove.Domain, error) {
	return groove.ParseDomain(c.Defaults.Domain)
}

// Padding returns the default padding mode
func (c *Config) Padding() (groove.PaddingMode, error) {
	return groove.ParsePaddingMode(c.Defaults.Padding)
}

// Save writes the config to path, creating its directory
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Init writes the default config to path, or to ConfigPath when path is
// empty, and returns the path written. An existing file is only replaced
// when force is set.
func Init(path string, force bool) (string, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return "", err
		}
		path = p
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}
	if err := DefaultConfig().Save(path); err != nil {
		return "", fmt.Errorf("write config %q: %w", path, err)
	}
	return path, nil
}
