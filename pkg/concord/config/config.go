// Package config loads concord settings from a YAML file with CONCORD_
// environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/concord/pkg/concord/bridge"
	"github.com/cognicore/concord/pkg/concord/convert"
	"github.com/cognicore/concord/pkg/concord/internalerr"
)

// DefaultBodyLabels are the section labels that carry body text.
var DefaultBodyLabels = []string{"TURN", "HEADLINE", "TEXT", "POST", "QUOTE"}

// Config holds every setting of the library, CLI and server.
type Config struct {
	Language   string   `yaml:"language"`
	Tool       string   `yaml:"tool"`
	BodyLabels []string `yaml:"body_labels"`
	Layers     []string `yaml:"layers"`
	Workers    int      `yaml:"workers"`

	Engine EngineConfig `yaml:"engine"`
	Store  StoreConfig  `yaml:"store"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// EngineConfig locates the external annotation engine.
type EngineConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// StoreConfig selects the run ledger. An empty path keeps runs in memory.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Language:   bridge.LangEnglish,
		Tool:       "concord",
		BodyLabels: append([]string(nil), DefaultBodyLabels...),
		Layers:     append([]string(nil), convert.DefaultLayers...),
		Workers:    4,
		Engine: EngineConfig{
			URL:     "http://localhost:9000",
			Timeout: 2 * time.Minute,
		},
		Server: ServerConfig{Addr: ":8095"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// LoadFile reads a YAML file over the defaults. Keys missing from the file
// keep their default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Load builds the effective configuration: defaults, then the YAML file if
// path is set, then environment overrides. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings that would only fail later, mid-document.
func (c Config) Validate() error {
	if _, err := bridge.ModeFor(c.Language); err != nil {
		return err
	}
	if _, err := convert.ParseLayers(c.Layers); err != nil {
		return err
	}
	if c.Workers <= 0 {
		return internalerr.NewValidation("workers", "must be positive, got %d", c.Workers)
	}
	if c.Engine.Timeout < 0 {
		return internalerr.NewValidation("engine.timeout", "must not be negative")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return internalerr.NewValidation("log.format", "unknown format %q", c.Log.Format)
	}
	return nil
}

// LayerSet returns the parsed layer selection.
func (c Config) LayerSet() convert.LayerSet {
	ls, err := convert.ParseLayers(c.Layers)
	if err != nil || ls == (convert.LayerSet{}) {
		return convert.AllLayers()
	}
	return ls
}
