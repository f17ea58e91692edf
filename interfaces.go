package metacat

import (
	"context"

	"github.com/mwantia/metacat/data"
)

// MetadataRegistry persists namespace trees, datasource definitions and
// table definitions. It is the source of truth for the catalog; definitions
// are looked up per call and never cached across calls.
//
// Implementations provide their own consistency guarantees. A single
// dispatcher call expects to observe one consistent snapshot of registry
// state across its resolution and delegation sequence.
type MetadataRegistry interface {
	// LookupDatasource returns the datasource registered under the owner
	// namespace with the given name.
	// Returns data.ErrDatasourceNotFound if no such datasource exists.
	LookupDatasource(ctx context.Context, owner data.Namespace, name string) (*data.DatasourceDefinition, error)

	// CreateDatasource registers a new datasource definition.
	// Returns data.ErrDatasourceExists if the owner/name pair is taken.
	CreateDatasource(ctx context.Context, def *data.DatasourceDefinition) error

	// DropDatasource removes a registered datasource definition.
	// Returns data.ErrDatasourceNotFound if no such datasource exists.
	DropDatasource(ctx context.Context, owner data.Namespace, name string) error

	// ListDatasources returns all datasources registered under the owner
	// namespace.
	ListDatasources(ctx context.Context, owner data.Namespace) ([]*data.DatasourceDefinition, error)

	// ListChildNamespaces returns the names of the immediate child
	// namespaces of the given namespace.
	ListChildNamespaces(ctx context.Context, namespace data.Namespace) ([]string, error)

	// CreateNamespace records a new namespace.
	// Returns data.ErrNamespaceExists if it already exists.
	CreateNamespace(ctx context.Context, namespace data.Namespace, properties map[string]string) error

	// DropNamespace removes a namespace. If cascade is false and the
	// namespace still has children, returns data.ErrNamespaceNotEmpty.
	DropNamespace(ctx context.Context, namespace data.Namespace, cascade bool) error

	// LookupTable returns a stored table definition.
	// Returns data.ErrTableNotFound if no such table exists.
	LookupTable(ctx context.Context, id data.Identifier) (*data.TableDefinition, error)

	// CreateTable stores a new table definition.
	// Returns data.ErrTableExists if the identifier is taken.
	CreateTable(ctx context.Context, table *data.TableDefinition) error

	// DropTable removes a stored table definition.
	// Returns data.ErrTableNotFound if no such table exists.
	DropTable(ctx context.Context, id data.Identifier) error

	// ListTables returns the identifiers of all tables stored directly
	// under the given namespace.
	ListTables(ctx context.Context, namespace data.Namespace) ([]data.Identifier, error)
}

// BackendCatalog performs table and namespace operations against one
// concrete external system. All namespace and identifier arguments are
// backend-relative; the dispatcher strips the routing prefix before
// delegating.
//
// There is exactly one implementation per datasource kind, selected through
// the catalog's kind table.
type BackendCatalog interface {
	// ListTables returns the identifiers of all tables under the
	// backend-relative namespace.
	ListTables(ctx context.Context, namespace data.Namespace) ([]data.Identifier, error)

	// LoadTable returns the definition of the addressed table.
	// Returns data.ErrTableNotFound if no such table exists.
	LoadTable(ctx context.Context, id data.Identifier) (*data.TableDefinition, error)

	// CreateTable creates a table with the given schema, partitioning and
	// properties.
	CreateTable(ctx context.Context, id data.Identifier, schema []data.Column, partitioning []string, properties map[string]string) error

	// DropTable removes the addressed table.
	DropTable(ctx context.Context, id data.Identifier) error

	// TableExists reports whether the addressed table exists.
	TableExists(ctx context.Context, id data.Identifier) (bool, error)

	// ListNamespaces returns the namespaces directly under the given
	// backend-relative namespace.
	ListNamespaces(ctx context.Context, namespace data.Namespace) ([]data.Namespace, error)

	// NamespaceExists reports whether the backend-relative namespace
	// exists.
	NamespaceExists(ctx context.Context, namespace data.Namespace) (bool, error)

	// CreateNamespace creates the backend-relative namespace.
	CreateNamespace(ctx context.Context, namespace data.Namespace, properties map[string]string) error

	// DropNamespace removes the backend-relative namespace.
	DropNamespace(ctx context.Context, namespace data.Namespace, cascade bool) error
}
