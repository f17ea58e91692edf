package metacat

import (
	"fmt"
	"sync"

	"github.com/mwantia/metacat/data"
)

// Well-known datasource kinds. The built-in variants ship in the backend
// subpackages; structured kinds like jdbc or iceberg are registered by the
// embedding application.
const (
	// KindNested marks nested-namespace sources served by the built-in
	// registry-backed variant.
	KindNested = "nested"

	// KindUnstructured marks flat file trees of unstructured documents.
	KindUnstructured = "unstructured"
)

// BackendFactory constructs the backend catalog variant for one resolved
// datasource definition.
type BackendFactory func(def *data.DatasourceDefinition, registry MetadataRegistry) (BackendCatalog, error)

// KindTable maps datasource kinds to backend catalog factories. The mapping
// is total: every registered kind has exactly one factory, and resolving an
// unknown kind is a configuration error, never a silent default.
type KindTable struct {
	mu        sync.RWMutex
	factories map[string]BackendFactory
}

// NewKindTable creates an empty kind table.
func NewKindTable() *KindTable {
	return &KindTable{
		factories: make(map[string]BackendFactory),
	}
}

// Register binds a kind to its factory.
// Returns ErrKindRegistered if the kind is already bound.
func (kt *KindTable) Register(kind string, factory BackendFactory) error {
	kt.mu.Lock()
	defer kt.mu.Unlock()

	if _, exists := kt.factories[kind]; exists {
		return fmt.Errorf("%w: %s", ErrKindRegistered, kind)
	}

	kt.factories[kind] = factory
	return nil
}

// Resolve constructs the backend catalog for the given datasource.
// Returns ErrUnknownBackendKind if no factory is registered for its kind.
func (kt *KindTable) Resolve(def *data.DatasourceDefinition, registry MetadataRegistry) (BackendCatalog, error) {
	kt.mu.RLock()
	factory, exists := kt.factories[def.Kind]
	kt.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s (datasource %s)", ErrUnknownBackendKind, def.Kind, def.FullNamespace())
	}

	return factory(def, registry)
}
