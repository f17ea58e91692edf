// Package store defines the byte-source contract for unstructured file
// tables: listing physical files under configured root paths and opening
// scoped handles to their raw bytes. Implementations cover the local
// filesystem, S3-compatible object storage and an in-memory store for
// tests.
package store

import (
	"context"
	"io"
	"time"
)

// FileRef identifies one physical file, together with the metadata the
// projection logic derives columns from.
type FileRef struct {
	// Path is the file's absolute path within the store.
	Path string

	// Size of the file in bytes.
	Size int64

	// ModifiedAt is the file's last modification time.
	ModifiedAt time.Time
}

// FileStore provides access to the files of one unstructured datasource.
// All implementations are safe for concurrent use across partition readers.
type FileStore interface {
	// Name returns the identifier name defined for this store.
	Name() string

	// Open is part of the lifecycle behaviour and gets called when the
	// owning backend is opened.
	Open(ctx context.Context) error

	// Close is part of the lifecycle behaviour and gets called when the
	// owning backend is closed.
	Close(ctx context.Context) error

	// List returns a reference for every file under the given root path,
	// recursively.
	List(ctx context.Context, root string) ([]FileRef, error)

	// OpenObject acquires a scoped handle to one file's raw bytes.
	// The handle yields the full byte content in a single read pass and
	// must be closed on every exit path.
	OpenObject(ctx context.Context, path string) (io.ReadCloser, error)

	// StatObject returns the reference for a single file.
	// Returns data.ErrObjectNotFound if the path does not exist.
	StatObject(ctx context.Context, path string) (*FileRef, error)
}
