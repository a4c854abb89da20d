// Package sqlite opens a measurement source stored in an embedded SQLite
// database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"phenoqc/internal/infra/persistence/sqlsource"
)

// DefaultPath is used when no database path is configured.
const DefaultPath = "phenoqc.db"

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*sqlsource.Source, error) {
	if path == "" {
		path = DefaultPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases shared across queries
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	src := sqlsource.New(db, sqlsource.SQLite)
	if err := src.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return src, nil
}
