package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mwantia/metacat/data"
	"github.com/mwantia/metacat/store"
)

// LocalStore serves unstructured file tables straight from the local
// filesystem. Paths handed out by List are absolute.
type LocalStore struct{}

// NewLocalStore creates a local filesystem store.
func NewLocalStore() *LocalStore {
	return &LocalStore{}
}

// Name returns the identifier name defined for this store.
func (*LocalStore) Name() string {
	return "local"
}

// Open is part of the lifecycle behaviour and gets called when the owning
// backend is opened.
func (*LocalStore) Open(ctx context.Context) error {
	// The filesystem needs no initialization
	return nil
}

// Close is part of the lifecycle behaviour and gets called when the owning
// backend is closed.
func (*LocalStore) Close(ctx context.Context) error {
	// The underlying filesystem persists independently
	return nil
}

// List walks the root directory recursively and returns a reference for
// every regular file found.
func (ls *LocalStore) List(ctx context.Context, root string) ([]store.FileRef, error) {
	root = filepath.Clean(root)

	var refs []store.FileRef
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if entry.IsDir() {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		refs = append(refs, store.FileRef{
			Path:       filepath.ToSlash(path),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return refs, nil
}

// OpenObject acquires a handle to one file's raw bytes.
func (ls *LocalStore) OpenObject(ctx context.Context, path string) (io.ReadCloser, error) {
	file, err := os.Open(filepath.FromSlash(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, data.ErrObjectNotFound
		}
		return nil, err
	}
	return file, nil
}

// StatObject returns the reference for a single file.
func (ls *LocalStore) StatObject(ctx context.Context, path string) (*store.FileRef, error) {
	info, err := os.Stat(filepath.FromSlash(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, data.ErrObjectNotFound
		}
		return nil, err
	}

	return &store.FileRef{
		Path:       path,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}, nil
}

var _ store.FileStore = (*LocalStore)(nil)
