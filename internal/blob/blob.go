// Package blob provides the object-storage abstraction the pipeline reads raw
// files from and publishes partitions to. Semantics mirror a minimal subset
// of S3 so the s3 driver is nearly 1:1 while fs and memory emulate them.
//
// Put is atomic: a reader never observes a partially written object under its
// final key. The fs driver guarantees this with a temp file plus rename; for
// s3 and memory, object puts are atomic by nature. Put overwrites an existing
// key — publishing a new partition version replaces the previous one in a
// single step.
package blob

import (
	"context"
	"io"
	"time"
)

// Driver identifies a concrete storage backend implementation.
type Driver string

const (
	DriverFS     Driver = "fs"     // local filesystem (default, dev)
	DriverS3     Driver = "s3"     // S3 / MinIO compatible
	DriverMemory Driver = "memory" // in-memory (tests)
)

// Info describes a stored object.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the interface for object storage backends.
type Store interface {
	// Put stores an object at key, replacing any previous version atomically.
	Put(ctx context.Context, key string, r io.Reader) (Info, error)
	// Get retrieves the object contents. The error wraps os.ErrNotExist when
	// the key is absent.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes an object. Returns (false, nil) if not found.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns objects whose key has the given prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Driver reports the configured backend.
	Driver() Driver
}
