package metacat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mwantia/metacat/data"
	"github.com/mwantia/metacat/log"
)

// Catalog is the public entry point of the federated metadata catalog.
// It presents one hierarchical namespace of tables where each branch is
// backed by an independently configured external datasource. Every public
// operation routes through owner resolution, then delegates to the matching
// backend catalog variant with the routing prefix stripped.
//
// The catalog is stateless between calls; the injected registry is the
// source of truth and is consulted per call.
type Catalog struct {
	registry MetadataRegistry
	kinds    *KindTable
	logger   *log.Logger
}

// New creates a catalog dispatcher around the given registry.
func New(registry MetadataRegistry, opts ...Option) (*Catalog, error) {
	if registry == nil {
		return nil, fmt.Errorf("metacat: registry is required")
	}

	c := &Catalog{
		registry: registry,
		kinds:    NewKindTable(),
		logger:   log.Discard(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// RegisterKind binds a datasource kind to its backend catalog factory.
func (c *Catalog) RegisterKind(kind string, factory BackendFactory) error {
	return c.kinds.Register(kind, factory)
}

// Registry returns the injected metadata registry.
func (c *Catalog) Registry() MetadataRegistry {
	return c.registry
}

// ListTables returns the identifiers of all tables under the namespace.
// Returns ErrNamespaceNotDefined if no datasource owns the namespace.
func (c *Catalog) ListTables(ctx context.Context, namespace data.Namespace) ([]data.Identifier, error) {
	def, backend, residual, err := c.resolveBackend(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrNamespaceNotDefined, namespace)
	}

	// Nested-namespace sources manage a self-contained flat catalog per
	// top-level entry, so the built-in variant only receives the last
	// namespace segment as its local root.
	if def.Kind == KindNested {
		return backend.ListTables(ctx, data.NewNamespace(namespace.Last()))
	}

	return backend.ListTables(ctx, residual)
}

// LoadTable returns the definition of the addressed table. The first
// namespace segment selects a mode: the system catalog name routes to the
// internal catalog reading metastore tables straight from the registry, the
// datasource root triggers owner resolution and delegation.
func (c *Catalog) LoadTable(ctx context.Context, id data.Identifier) (*data.TableDefinition, error) {
	if id.Namespace.IsEmpty() {
		return nil, fmt.Errorf("%w: %s", ErrMissingNamespace, id.Name)
	}

	first := id.Namespace[0]
	switch {
	case strings.EqualFold(first, data.SystemCatalogName):
		return c.loadSystemTable(ctx, id)

	case strings.EqualFold(first, data.RootDatasource):
		def, backend, residual, err := c.resolveBackend(ctx, id.Namespace)
		if err != nil {
			return nil, err
		}
		if def == nil {
			return nil, fmt.Errorf("%w: %s", ErrNamespaceNotDefined, id.Namespace)
		}
		return backend.LoadTable(ctx, id.WithNamespace(residual))

	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidNamespace, id.Namespace)
	}
}

// loadSystemTable serves system and metastore tables directly from the
// registry, without owner resolution.
func (c *Catalog) loadSystemTable(ctx context.Context, id data.Identifier) (*data.TableDefinition, error) {
	stripped := id.WithNamespace(id.Namespace.Drop(1))
	return c.registry.LookupTable(ctx, stripped)
}

// CreateTable creates a table in the backend owning the identifier's
// namespace. Returns ErrNamespaceNotDefined if no datasource owns it.
func (c *Catalog) CreateTable(ctx context.Context, id data.Identifier, schema []data.Column, partitioning []string, properties map[string]string) error {
	def, backend, residual, err := c.resolveBackend(ctx, id.Namespace)
	if err != nil {
		return err
	}
	if def == nil {
		return fmt.Errorf("%w: %s", ErrNamespaceNotDefined, id.Namespace)
	}

	return backend.CreateTable(ctx, id.WithNamespace(residual), schema, partitioning, properties)
}

// DropTable removes a table from the backend owning the identifier's
// namespace. Returns ErrNamespaceNotDefined if no datasource owns it.
func (c *Catalog) DropTable(ctx context.Context, id data.Identifier) error {
	def, backend, residual, err := c.resolveBackend(ctx, id.Namespace)
	if err != nil {
		return err
	}
	if def == nil {
		return fmt.Errorf("%w: %s", ErrNamespaceNotDefined, id.Namespace)
	}

	return backend.DropTable(ctx, id.WithNamespace(residual))
}

// TableExists reports whether the addressed table exists. An unresolved
// namespace yields false, not an error.
func (c *Catalog) TableExists(ctx context.Context, id data.Identifier) (bool, error) {
	def, backend, residual, err := c.resolveBackend(ctx, id.Namespace)
	if err != nil {
		return false, err
	}
	if def == nil {
		return false, nil
	}

	return backend.TableExists(ctx, id.WithNamespace(residual))
}

// AlterTable is not supported by the federated catalog.
func (c *Catalog) AlterTable(ctx context.Context, id data.Identifier, properties map[string]string) error {
	return fmt.Errorf("%w: alter table %s", ErrUnsupportedOperation, id)
}

// RenameTable is not supported by the federated catalog.
func (c *Catalog) RenameTable(ctx context.Context, from, to data.Identifier) error {
	return fmt.Errorf("%w: rename table %s", ErrUnsupportedOperation, from)
}

// AlterNamespace is not supported by the federated catalog.
func (c *Catalog) AlterNamespace(ctx context.Context, namespace data.Namespace, properties map[string]string) error {
	return fmt.Errorf("%w: alter namespace %s", ErrUnsupportedOperation, namespace)
}

// ListNamespaces returns the namespaces directly under the given one.
// The empty namespace always yields exactly the two reserved roots. For an
// unresolved namespace the registry's own tree is listed instead; this is
// the fallback for purely organizational namespace levels that have no
// datasource yet.
func (c *Catalog) ListNamespaces(ctx context.Context, namespace data.Namespace) ([]data.Namespace, error) {
	if namespace.IsEmpty() {
		return []data.Namespace{
			data.NewNamespace(data.RootDatasource),
			data.NewNamespace(data.RootMetastore),
		}, nil
	}

	def, backend, residual, err := c.resolveBackend(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if def != nil {
		return backend.ListNamespaces(ctx, residual)
	}

	children, err := c.registry.ListChildNamespaces(ctx, namespace)
	if err != nil {
		return nil, err
	}

	namespaces := make([]data.Namespace, 0, len(children))
	for _, child := range children {
		namespaces = append(namespaces, namespace.Child(child))
	}
	return namespaces, nil
}

// NamespaceExists reports whether the namespace exists. For an unresolved
// namespace, its last segment is checked against the registry listing of
// its parent.
func (c *Catalog) NamespaceExists(ctx context.Context, namespace data.Namespace) (bool, error) {
	def, backend, residual, err := c.resolveBackend(ctx, namespace)
	if err != nil {
		return false, err
	}
	if def != nil {
		return backend.NamespaceExists(ctx, residual)
	}

	children, err := c.registry.ListChildNamespaces(ctx, namespace.Parent())
	if err != nil {
		if errors.Is(err, data.ErrNamespaceNotFound) {
			return false, nil
		}
		return false, err
	}

	for _, child := range children {
		if strings.EqualFold(child, namespace.Last()) {
			return true, nil
		}
	}
	return false, nil
}

// CreateNamespace creates the namespace, delegating to the owning backend
// when one resolves and recording it directly in the registry otherwise.
func (c *Catalog) CreateNamespace(ctx context.Context, namespace data.Namespace, properties map[string]string) error {
	def, backend, residual, err := c.resolveBackend(ctx, namespace)
	if err != nil {
		return err
	}
	if def != nil {
		return backend.CreateNamespace(ctx, residual, properties)
	}

	return c.registry.CreateNamespace(ctx, namespace, properties)
}

// DropNamespace removes the namespace. Dropping a reserved root is always
// rejected, regardless of registry state.
func (c *Catalog) DropNamespace(ctx context.Context, namespace data.Namespace, cascade bool) error {
	if len(namespace) == 1 && data.IsReservedRoot(namespace[0]) {
		return fmt.Errorf("%w: %s", ErrReservedNamespace, namespace)
	}

	def, backend, residual, err := c.resolveBackend(ctx, namespace)
	if err != nil {
		return err
	}
	if def != nil {
		return backend.DropNamespace(ctx, residual, cascade)
	}

	return c.registry.DropNamespace(ctx, namespace, cascade)
}
