// Package core defines the contract shared by the snapshot storage backends
// that hold exported visualisations.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Driver names a storage backend.
type Driver string

// Supported drivers.
const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// PutOptions describes the object being written.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// SignedURLOptions configures a pre-signed download link. Only GET is
// supported.
type SignedURLOptions struct {
	Method string
	Expiry time.Duration
}

// DefaultURLExpiry applies when SignedURLOptions.Expiry is unset.
const DefaultURLExpiry = 15 * time.Minute

// Info describes a stored snapshot.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store is a create-only object store. Put never overwrites.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

var (
	// ErrUnsupported is returned when a backend lacks an optional capability.
	ErrUnsupported = errors.New("snapshot store: unsupported operation")
	// ErrExists is returned by Put when the key is taken.
	ErrExists = errors.New("snapshot store: key exists")
	// ErrNotFound is returned when a key has no object.
	ErrNotFound = errors.New("snapshot store: key not found")
)

// CleanKey validates key and returns it in canonical slash form. Keys are
// relative and may not climb out of the store root.
func CleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("snapshot key: empty")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("snapshot key %q: absolute", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("snapshot key %q: traversal", key)
		}
	}
	return path.Clean(key), nil
}

// CheckMethod validates a pre-sign method and returns the effective expiry.
func CheckMethod(opts SignedURLOptions) (time.Duration, error) {
	if opts.Method != "" && !strings.EqualFold(opts.Method, "GET") {
		return 0, ErrUnsupported
	}
	if opts.Expiry <= 0 {
		return DefaultURLExpiry, nil
	}
	return opts.Expiry, nil
}

// CloneMetadata copies user metadata so callers cannot mutate stored state.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
