// Package blob is the entry point for snapshot storage. It re-exports the
// backend contract and opens the configured backend; other packages must not
// import the concrete backends.
package blob

import (
	"phenoqc/internal/blob/core"
)

type (
	// Driver names a storage backend.
	Driver = core.Driver
	// PutOptions describes an object being written.
	PutOptions = core.PutOptions
	// SignedURLOptions configures a pre-signed link.
	SignedURLOptions = core.SignedURLOptions
	// Info describes a stored snapshot.
	Info = core.Info
	// Store is the snapshot store contract.
	Store = core.Store
)

// Supported drivers.
const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// Sentinel errors shared by every backend.
var (
	ErrUnsupported = core.ErrUnsupported
	ErrExists      = core.ErrExists
	ErrNotFound    = core.ErrNotFound
)
