package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/btree"

	"github.com/mwantia/metacat"
	"github.com/mwantia/metacat/data"
)

// MemoryRegistry keeps the namespace tree, datasource definitions and table
// definitions in ordered in-memory B-trees. Keys are lowercased dotted
// namespace strings, which makes every lookup case-insensitive and keeps
// listings sorted.
//
// The two reserved roots are seeded on construction and protected by the
// dispatcher, not the registry.
type MemoryRegistry struct {
	mu          sync.RWMutex
	namespaces  *btree.Map[string, map[string]string]
	datasources *btree.Map[string, *data.DatasourceDefinition]
	tables      *btree.Map[string, *data.TableDefinition]
}

// NewMemoryRegistry creates a registry with the reserved roots seeded.
func NewMemoryRegistry() *MemoryRegistry {
	r := &MemoryRegistry{
		namespaces:  btree.NewMap[string, map[string]string](0),
		datasources: btree.NewMap[string, *data.DatasourceDefinition](0),
		tables:      btree.NewMap[string, *data.TableDefinition](0),
	}

	r.namespaces.Set(data.RootDatasource, nil)
	r.namespaces.Set(data.RootMetastore, nil)

	return r
}

// key lowercases a dotted namespace path for case-insensitive storage.
func key(segments ...string) string {
	return strings.ToLower(strings.Join(segments, "."))
}

func namespaceKey(namespace data.Namespace) string {
	return strings.ToLower(namespace.String())
}

// LookupDatasource returns the datasource registered under the owner
// namespace with the given name.
func (r *MemoryRegistry) LookupDatasource(ctx context.Context, owner data.Namespace, name string) (*data.DatasourceDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.datasources.Get(key(namespaceKey(owner), name))
	if !exists {
		return nil, fmt.Errorf("%w: %s.%s", data.ErrDatasourceNotFound, owner, name)
	}
	return def, nil
}

// CreateDatasource registers a new datasource definition, assigning it a
// unique id when none is set.
func (r *MemoryRegistry) CreateDatasource(ctx context.Context, def *data.DatasourceDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(namespaceKey(def.Owner), def.Name)
	if _, exists := r.datasources.Get(k); exists {
		return fmt.Errorf("%w: %s", data.ErrDatasourceExists, def.FullNamespace())
	}

	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	r.datasources.Set(k, def)
	return nil
}

// DropDatasource removes a registered datasource definition.
func (r *MemoryRegistry) DropDatasource(ctx context.Context, owner data.Namespace, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, removed := r.datasources.Delete(key(namespaceKey(owner), name)); !removed {
		return fmt.Errorf("%w: %s.%s", data.ErrDatasourceNotFound, owner, name)
	}
	return nil
}

// ListDatasources returns all datasources registered directly under the
// owner namespace, in key order.
func (r *MemoryRegistry) ListDatasources(ctx context.Context, owner data.Namespace) ([]*data.DatasourceDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var defs []*data.DatasourceDefinition
	r.datasources.Scan(func(k string, def *data.DatasourceDefinition) bool {
		if def.Owner.Equal(owner) {
			defs = append(defs, def)
		}
		return true
	})
	return defs, nil
}

// ListChildNamespaces returns the names of the immediate children of the
// namespace: explicitly created child namespaces plus registered
// datasources and stored table namespaces beneath it.
func (r *MemoryRegistry) ListChildNamespaces(ctx context.Context, namespace data.Namespace) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !namespace.IsEmpty() && !r.hasNamespace(namespace) {
		return nil, fmt.Errorf("%w: %s", data.ErrNamespaceNotFound, namespace)
	}

	seen := make(map[string]bool)
	var children []string
	collect := func(child string) {
		lower := strings.ToLower(child)
		if !seen[lower] {
			seen[lower] = true
			children = append(children, child)
		}
	}

	prefix := namespaceKey(namespace)
	r.namespaces.Scan(func(k string, _ map[string]string) bool {
		if child, ok := childSegment(k, prefix); ok {
			collect(child)
		}
		return true
	})
	r.datasources.Scan(func(k string, def *data.DatasourceDefinition) bool {
		if child, ok := childSegment(k, prefix); ok {
			collect(child)
		}
		return true
	})
	r.tables.Scan(func(k string, table *data.TableDefinition) bool {
		if table.Namespace.HasPrefix(namespace) && len(table.Namespace) > len(namespace) {
			collect(table.Namespace[len(namespace)])
		}
		return true
	})

	return children, nil
}

// CreateNamespace records a new namespace. The parent must already exist.
func (r *MemoryRegistry) CreateNamespace(ctx context.Context, namespace data.Namespace, properties map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hasNamespace(namespace) {
		return fmt.Errorf("%w: %s", data.ErrNamespaceExists, namespace)
	}
	if parent := namespace.Parent(); !parent.IsEmpty() && !r.hasNamespace(parent) {
		return fmt.Errorf("%w: %s", data.ErrNamespaceNotFound, parent)
	}

	r.namespaces.Set(namespaceKey(namespace), properties)
	return nil
}

// DropNamespace removes a namespace. Without cascade a namespace that still
// has children is rejected; with cascade its whole subtree is removed,
// including datasources and tables.
func (r *MemoryRegistry) DropNamespace(ctx context.Context, namespace data.Namespace, cascade bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.hasNamespace(namespace) {
		return fmt.Errorf("%w: %s", data.ErrNamespaceNotFound, namespace)
	}

	prefix := namespaceKey(namespace)
	if !cascade && r.hasChildren(prefix) {
		return fmt.Errorf("%w: %s", data.ErrNamespaceNotEmpty, namespace)
	}

	r.namespaces.Delete(prefix)
	deleteSubtree(r.namespaces, prefix)
	deleteSubtree(r.datasources, prefix)
	deleteSubtree(r.tables, prefix)
	return nil
}

// LookupTable returns a stored table definition.
func (r *MemoryRegistry) LookupTable(ctx context.Context, id data.Identifier) (*data.TableDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table, exists := r.tables.Get(strings.ToLower(id.String()))
	if !exists {
		return nil, fmt.Errorf("%w: %s", data.ErrTableNotFound, id)
	}
	return table, nil
}

// CreateTable stores a new table definition, assigning it a unique id when
// none is set.
func (r *MemoryRegistry) CreateTable(ctx context.Context, table *data.TableDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := strings.ToLower(table.Identifier().String())
	if _, exists := r.tables.Get(k); exists {
		return fmt.Errorf("%w: %s", data.ErrTableExists, table.Identifier())
	}

	if table.ID == "" {
		table.ID = uuid.NewString()
	}
	r.tables.Set(k, table)
	return nil
}

// DropTable removes a stored table definition.
func (r *MemoryRegistry) DropTable(ctx context.Context, id data.Identifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, removed := r.tables.Delete(strings.ToLower(id.String())); !removed {
		return fmt.Errorf("%w: %s", data.ErrTableNotFound, id)
	}
	return nil
}

// ListTables returns the identifiers of all tables stored directly under
// the namespace, in key order.
func (r *MemoryRegistry) ListTables(ctx context.Context, namespace data.Namespace) ([]data.Identifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []data.Identifier
	r.tables.Scan(func(k string, table *data.TableDefinition) bool {
		if table.Namespace.Equal(namespace) {
			ids = append(ids, table.Identifier())
		}
		return true
	})
	return ids, nil
}

// hasNamespace reports whether the namespace exists: explicitly created,
// coinciding with a datasource's full namespace, or implied by an entry
// beneath it. Must be called with the lock held.
func (r *MemoryRegistry) hasNamespace(namespace data.Namespace) bool {
	prefix := namespaceKey(namespace)
	if _, exists := r.namespaces.Get(prefix); exists {
		return true
	}
	if _, exists := r.datasources.Get(prefix); exists {
		return true
	}
	return r.hasChildren(prefix)
}

// hasChildren reports whether any entry lives beneath the prefix.
// Must be called with the lock held.
func (r *MemoryRegistry) hasChildren(prefix string) bool {
	found := false
	check := func(k string) bool {
		if strings.HasPrefix(k, prefix+".") {
			found = true
			return false
		}
		return true
	}

	r.namespaces.Scan(func(k string, _ map[string]string) bool { return check(k) })
	if !found {
		r.datasources.Scan(func(k string, _ *data.DatasourceDefinition) bool { return check(k) })
	}
	if !found {
		r.tables.Scan(func(k string, _ *data.TableDefinition) bool { return check(k) })
	}
	return found
}

// childSegment extracts the immediate child segment of prefix from a stored
// key, if the key lives directly or transitively beneath it.
func childSegment(k, prefix string) (string, bool) {
	if prefix != "" {
		if !strings.HasPrefix(k, prefix+".") {
			return "", false
		}
		k = strings.TrimPrefix(k, prefix+".")
	}
	if k == "" {
		return "", false
	}
	if i := strings.IndexByte(k, '.'); i >= 0 {
		k = k[:i]
	}
	return k, true
}

// deleteSubtree removes every entry beneath the prefix.
func deleteSubtree[V any](m *btree.Map[string, V], prefix string) {
	var doomed []string
	m.Scan(func(k string, _ V) bool {
		if strings.HasPrefix(k, prefix+".") {
			doomed = append(doomed, k)
		}
		return true
	})
	for _, k := range doomed {
		m.Delete(k)
	}
}

var _ metacat.MetadataRegistry = (*MemoryRegistry)(nil)
