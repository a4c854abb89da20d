package config

import (
	"fmt"

	"phenoqc/internal/blob"
	"phenoqc/internal/core"
)

// Validate checks cfg and fills in defaults for empty optional fields.
func Validate(cfg *Config) error {
	switch cfg.Source.Driver {
	case "":
		cfg.Source.Driver = core.SourceMemory
	case core.SourceMemory, core.SourceSQLite, core.SourcePostgres:
	default:
		return fmt.Errorf("source.driver %q is not one of memory, sqlite, postgres", cfg.Source.Driver)
	}

	switch cfg.Blob.Driver {
	case "":
		cfg.Blob.Driver = blob.DriverFilesystem
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if cfg.Blob.S3.Bucket == "" {
			return fmt.Errorf("blob.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("blob.driver %q is not one of fs, s3, memory", cfg.Blob.Driver)
	}

	if cfg.Layout.Width < 0 || cfg.Layout.Height < 0 || cfg.Layout.Padding < 0 || cfg.Layout.Ticks < 0 {
		return fmt.Errorf("layout dimensions must not be negative")
	}
	layout := cfg.Layout.WithDefaults()
	if layout.Padding*2 >= layout.Width {
		return fmt.Errorf("layout.padding %v leaves no drawing width in %v", layout.Padding, layout.Width)
	}
	if layout.Padding*2 >= layout.Height {
		return fmt.Errorf("layout.padding %v leaves no drawing height in %v", layout.Padding, layout.Height)
	}
	if _, err := cfg.ParsedControls(); err != nil {
		return fmt.Errorf("controls: %w", err)
	}
	for i, dc := range cfg.Contexts {
		if err := dc.Validate(); err != nil {
			return fmt.Errorf("contexts[%d]: %w", i, err)
		}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if !oneOf(cfg.Log.Level, "debug", "info", "warn", "error") {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level)
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if !oneOf(cfg.Log.Format, "text", "json") {
		return fmt.Errorf("log.format %q is not one of text, json", cfg.Log.Format)
	}
	if cfg.Metrics.Backend == "" {
		cfg.Metrics.Backend = "none"
	}
	if !oneOf(cfg.Metrics.Backend, "none", "expvar", "prometheus") {
		return fmt.Errorf("metrics.backend %q is not one of none, expvar, prometheus", cfg.Metrics.Backend)
	}
	if cfg.Trace.Backend == "" {
		cfg.Trace.Backend = "none"
	}
	if !oneOf(cfg.Trace.Backend, "none", "json", "otel") {
		return fmt.Errorf("trace.backend %q is not one of none, json, otel", cfg.Trace.Backend)
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
