package nested

import (
	"context"
	"errors"
	"strings"

	"github.com/mwantia/metacat"
	"github.com/mwantia/metacat/data"
)

// NestedCatalog serves a datasource whose namespaces and tables live in the
// metadata registry itself, forming a nested tree beneath the datasource's
// full namespace. It is the built-in variant for hierarchical sources such
// as directory-style metastores.
//
// All arguments are backend-relative; the catalog qualifies them beneath
// the datasource before touching the registry and strips the prefix again
// on the way out.
type NestedCatalog struct {
	def      *data.DatasourceDefinition
	registry metacat.MetadataRegistry
}

// Factory constructs the nested variant for a resolved datasource.
func Factory(def *data.DatasourceDefinition, registry metacat.MetadataRegistry) (metacat.BackendCatalog, error) {
	return &NestedCatalog{
		def:      def,
		registry: registry,
	}, nil
}

// qualify maps a backend-relative namespace onto the registry tree.
//
// A single segment equal to the datasource name addresses the local root;
// list requests arrive this way because nested sources treat the final
// request segment as the root of their own tree.
func (nc *NestedCatalog) qualify(namespace data.Namespace) data.Namespace {
	full := nc.def.FullNamespace()
	if len(namespace) == 1 && strings.EqualFold(namespace[0], nc.def.Name) {
		return full
	}
	return append(append(data.Namespace{}, full...), namespace...)
}

// relative strips the datasource prefix from a registry namespace.
func (nc *NestedCatalog) relative(namespace data.Namespace) data.Namespace {
	return namespace.Drop(len(nc.def.FullNamespace()))
}

// ListTables returns the identifiers of all tables directly under the
// backend-relative namespace.
func (nc *NestedCatalog) ListTables(ctx context.Context, namespace data.Namespace) ([]data.Identifier, error) {
	ids, err := nc.registry.ListTables(ctx, nc.qualify(namespace))
	if err != nil {
		return nil, err
	}

	relative := make([]data.Identifier, 0, len(ids))
	for _, id := range ids {
		relative = append(relative, data.Identifier{
			Namespace: nc.relative(id.Namespace),
			Name:      id.Name,
		})
	}
	return relative, nil
}

// LoadTable returns the definition of the addressed table.
func (nc *NestedCatalog) LoadTable(ctx context.Context, id data.Identifier) (*data.TableDefinition, error) {
	return nc.registry.LookupTable(ctx, id.WithNamespace(nc.qualify(id.Namespace)))
}

// CreateTable stores a new table definition beneath the datasource.
func (nc *NestedCatalog) CreateTable(ctx context.Context, id data.Identifier, schema []data.Column, partitioning []string, properties map[string]string) error {
	return nc.registry.CreateTable(ctx, &data.TableDefinition{
		Namespace:    nc.qualify(id.Namespace),
		Name:         id.Name,
		Schema:       schema,
		Partitioning: partitioning,
		Properties:   properties,
	})
}

// DropTable removes the addressed table.
func (nc *NestedCatalog) DropTable(ctx context.Context, id data.Identifier) error {
	return nc.registry.DropTable(ctx, id.WithNamespace(nc.qualify(id.Namespace)))
}

// TableExists reports whether the addressed table exists.
func (nc *NestedCatalog) TableExists(ctx context.Context, id data.Identifier) (bool, error) {
	_, err := nc.registry.LookupTable(ctx, id.WithNamespace(nc.qualify(id.Namespace)))
	if errors.Is(err, data.ErrTableNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListNamespaces returns the namespaces directly under the backend-relative
// namespace.
func (nc *NestedCatalog) ListNamespaces(ctx context.Context, namespace data.Namespace) ([]data.Namespace, error) {
	children, err := nc.registry.ListChildNamespaces(ctx, nc.qualify(namespace))
	if err != nil {
		return nil, err
	}

	namespaces := make([]data.Namespace, 0, len(children))
	for _, child := range children {
		namespaces = append(namespaces, namespace.Child(child))
	}
	return namespaces, nil
}

// NamespaceExists reports whether the backend-relative namespace exists.
func (nc *NestedCatalog) NamespaceExists(ctx context.Context, namespace data.Namespace) (bool, error) {
	_, err := nc.registry.ListChildNamespaces(ctx, nc.qualify(namespace))
	if errors.Is(err, data.ErrNamespaceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateNamespace creates the backend-relative namespace.
func (nc *NestedCatalog) CreateNamespace(ctx context.Context, namespace data.Namespace, properties map[string]string) error {
	return nc.registry.CreateNamespace(ctx, nc.qualify(namespace), properties)
}

// DropNamespace removes the backend-relative namespace.
func (nc *NestedCatalog) DropNamespace(ctx context.Context, namespace data.Namespace, cascade bool) error {
	return nc.registry.DropNamespace(ctx, nc.qualify(namespace), cascade)
}

var _ metacat.BackendCatalog = (*NestedCatalog)(nil)
