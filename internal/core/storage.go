package core

import (
	"context"
	"fmt"
	"os"

	"phenoqc/internal/infra/persistence/memory"
	"phenoqc/internal/infra/persistence/postgres"
	"phenoqc/internal/infra/persistence/sqlite"
)

// SourceDriver names a measurement source backend.
type SourceDriver string

// Supported source backends.
const (
	SourceMemory   SourceDriver = "memory"
	SourceSQLite   SourceDriver = "sqlite"
	SourcePostgres SourceDriver = "postgres"
)

// Source is a backend answering every lookup the service needs.
type Source interface {
	MeasurementSource
	ParameterSource
	CitationSource
}

// SourceConfig selects and configures a measurement source. Fixture names a
// JSON snapshot to seed the source with; the memory driver falls back to the
// built-in demonstration dataset without one.
type SourceConfig struct {
	Driver  SourceDriver `yaml:"driver"`
	Path    string       `yaml:"path"`
	DSN     string       `yaml:"dsn"`
	Fixture string       `yaml:"fixture"`
}

// OpenSource opens the configured backend. The returned close function
// releases it.
func OpenSource(ctx context.Context, cfg SourceConfig) (Source, func() error, error) {
	var seed *memory.Snapshot
	if cfg.Fixture != "" {
		snap, err := readFixture(cfg.Fixture)
		if err != nil {
			return nil, nil, err
		}
		seed = &snap
	}
	noClose := func() error { return nil }

	switch cfg.Driver {
	case "", SourceMemory:
		if seed == nil {
			fixture := memory.Fixture()
			seed = &fixture
		}
		return memory.NewFromSnapshot(*seed), noClose, nil
	case SourceSQLite, SourcePostgres:
		open := sqlite.Open
		target := cfg.Path
		if cfg.Driver == SourcePostgres {
			open, target = postgres.Open, cfg.DSN
		}
		src, err := open(ctx, target)
		if err != nil {
			return nil, nil, err
		}
		if seed != nil {
			if err := src.Import(ctx, *seed); err != nil {
				_ = src.Close()
				return nil, nil, fmt.Errorf("seed %s source: %w", cfg.Driver, err)
			}
		}
		return src, src.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown source driver %q", cfg.Driver)
	}
}

func readFixture(path string) (memory.Snapshot, error) {
	f, err := os.Open(path) // #nosec G304 -- operator supplied fixture path
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("open fixture: %w", err)
	}
	defer func() { _ = f.Close() }()
	return memory.LoadSnapshot(f)
}
