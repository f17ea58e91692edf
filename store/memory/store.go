package memory

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mwantia/metacat/data"
	"github.com/mwantia/metacat/store"
)

type object struct {
	content    []byte
	modifiedAt time.Time
}

// MemoryStore keeps file objects in memory. It backs tests and counts how
// often each object's bytes are actually read, which lets callers verify
// the at-most-one-read guarantee of the record builder.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*object
	reads   map[string]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]*object),
		reads:   make(map[string]int),
	}
}

// Name returns the identifier name defined for this store.
func (*MemoryStore) Name() string {
	return "memory"
}

// Open is part of the lifecycle behaviour and gets called when the owning
// backend is opened.
func (*MemoryStore) Open(ctx context.Context) error {
	return nil
}

// Close is part of the lifecycle behaviour and gets called when the owning
// backend is closed.
func (ms *MemoryStore) Close(ctx context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.objects = make(map[string]*object)
	ms.reads = make(map[string]int)
	return nil
}

// Put stores an object under the given path.
func (ms *MemoryStore) Put(path string, content []byte, modifiedAt time.Time) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.objects[path] = &object{
		content:    append([]byte(nil), content...),
		modifiedAt: modifiedAt,
	}
}

// ReadCount reports how many read passes have touched the object's bytes.
func (ms *MemoryStore) ReadCount(path string) int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return ms.reads[path]
}

// List returns a reference for every object under the given root path.
func (ms *MemoryStore) List(ctx context.Context, root string) ([]store.FileRef, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	prefix := strings.TrimSuffix(root, "/") + "/"

	var refs []store.FileRef
	for path, obj := range ms.objects {
		if path == root || strings.HasPrefix(path, prefix) {
			refs = append(refs, store.FileRef{
				Path:       path,
				Size:       int64(len(obj.content)),
				ModifiedAt: obj.modifiedAt,
			})
		}
	}

	return refs, nil
}

// OpenObject acquires a handle to one object's raw bytes.
func (ms *MemoryStore) OpenObject(ctx context.Context, path string) (io.ReadCloser, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	obj, exists := ms.objects[path]
	if !exists {
		return nil, data.ErrObjectNotFound
	}

	return &countingReader{
		reader: bytes.NewReader(obj.content),
		store:  ms,
		path:   path,
	}, nil
}

// countingReader increments the store's read counter on the first Read of
// each handle.
type countingReader struct {
	reader  *bytes.Reader
	store   *MemoryStore
	path    string
	counted bool
}

func (cr *countingReader) Read(p []byte) (int, error) {
	if !cr.counted {
		cr.counted = true
		cr.store.mu.Lock()
		cr.store.reads[cr.path]++
		cr.store.mu.Unlock()
	}
	return cr.reader.Read(p)
}

func (cr *countingReader) Close() error {
	return nil
}

// StatObject returns the reference for a single object.
func (ms *MemoryStore) StatObject(ctx context.Context, path string) (*store.FileRef, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	obj, exists := ms.objects[path]
	if !exists {
		return nil, data.ErrObjectNotFound
	}

	return &store.FileRef{
		Path:       path,
		Size:       int64(len(obj.content)),
		ModifiedAt: obj.modifiedAt,
	}, nil
}

var _ store.FileStore = (*MemoryStore)(nil)
