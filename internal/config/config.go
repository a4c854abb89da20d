// Package config loads the phenoviz configuration from YAML and the
// environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"phenoqc/internal/blob"
	"phenoqc/internal/core"
	"phenoqc/pkg/domain"
	"phenoqc/pkg/viz/controls"
)

// Config is the complete phenoviz configuration.
type Config struct {
	Source   core.SourceConfig    `yaml:"source"`
	Blob     blob.Config          `yaml:"blob"`
	Layout   core.Layout          `yaml:"layout"`
	Controls []string             `yaml:"controls"` // toggle names; empty selects the defaults
	Contexts []domain.DataContext `yaml:"contexts"`
	Issue    int64                `yaml:"issue"` // cited data points to restore after loading
	Export   bool                 `yaml:"export"`
	Log      LogConfig            `yaml:"log"`
	Metrics  MetricsConfig        `yaml:"metrics"`
	Trace    TraceConfig          `yaml:"trace"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig selects the metrics backend. Addr, when set, serves the
// backend over HTTP.
type MetricsConfig struct {
	Backend string `yaml:"backend"` // none, expvar, prometheus
	Addr    string `yaml:"addr"`
}

// TraceConfig selects the tracer.
type TraceConfig struct {
	Backend string `yaml:"backend"` // none, json, otel
}

// Default returns the configuration used without a file: the built-in
// demonstration dataset, exports to ./snapshots and text logs at info.
func Default() Config {
	return Config{
		Source:  core.SourceConfig{Driver: core.SourceMemory},
		Blob:    blob.Config{Driver: blob.DriverFilesystem},
		Log:     LogConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Backend: "expvar"},
		Trace:   TraceConfig{Backend: "none"},
	}
}

// Load reads path over the defaults, applies PHENOQC_* environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator supplied config path
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ParsedControls returns the configured toggles.
func (c *Config) ParsedControls() (controls.Controls, error) {
	if len(c.Controls) == 0 {
		return controls.Default(), nil
	}
	names := make([]string, 0, len(c.Controls))
	for _, n := range c.Controls {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return controls.Parse(names)
}
