package filestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mwantia/metacat"
	"github.com/mwantia/metacat/data"
	"github.com/mwantia/metacat/filter"
	"github.com/mwantia/metacat/log"
	"github.com/mwantia/metacat/scan"
	"github.com/mwantia/metacat/store"
	"github.com/mwantia/metacat/store/local"
	"github.com/mwantia/metacat/store/s3"
)

// ErrFilterOutsideProjection marks a pushed filter referencing a column the
// table's projection mode does not serve. This is a table configuration
// mismatch and is rejected at plan time, before any file is touched.
var ErrFilterOutsideProjection = errors.New("metacat: pushed filter references column outside projection mode")

// Table property keys understood by the filestore variant.
const (
	// PropertyMode selects the metadata or content projection.
	PropertyMode = "mode"

	// PropertyRoots lists the comma-separated root paths of the table.
	PropertyRoots = "roots"

	// PropertyPreviewLength bounds the preview column, in characters.
	// It can also be set on the datasource as the default for its tables.
	PropertyPreviewLength = "preview_length"

	// PropertyStore selects the file store serving the datasource.
	PropertyStore = "store"
)

// FilestoreCatalog serves datasources whose tables are flat trees of
// unstructured files. Table and namespace definitions live in the metadata
// registry beneath the datasource's full namespace; the file bytes live in
// the configured file store.
type FilestoreCatalog struct {
	def      *data.DatasourceDefinition
	registry metacat.MetadataRegistry
	fs       store.FileStore
	logger   *log.Logger
}

// New creates a filestore catalog over an explicit file store.
func New(def *data.DatasourceDefinition, registry metacat.MetadataRegistry, fs store.FileStore, logger *log.Logger) *FilestoreCatalog {
	if logger == nil {
		logger = log.Discard()
	}
	return &FilestoreCatalog{
		def:      def,
		registry: registry,
		fs:       fs,
		logger:   logger.Named("filestore"),
	}
}

// Factory constructs the filestore variant for a resolved datasource,
// building the file store from the datasource properties.
func Factory(def *data.DatasourceDefinition, registry metacat.MetadataRegistry) (metacat.BackendCatalog, error) {
	fs, err := storeFor(def)
	if err != nil {
		return nil, err
	}
	return New(def, registry, fs, nil), nil
}

// storeFor builds the file store selected by the datasource properties.
func storeFor(def *data.DatasourceDefinition) (store.FileStore, error) {
	name := def.Property(PropertyStore, "local")
	switch strings.ToLower(name) {
	case "local":
		return local.NewLocalStore(), nil

	case "s3":
		useSSL, _ := strconv.ParseBool(def.Property("use_ssl", "false"))
		return s3.NewS3Store(s3.Config{
			Endpoint:  def.Property("endpoint", ""),
			Bucket:    def.Property("bucket", ""),
			AccessKey: def.Property("access_key", ""),
			SecretKey: def.Property("secret_key", ""),
			UseSSL:    useSSL,
		})

	default:
		return nil, fmt.Errorf("metacat: unknown file store %q for datasource %s", name, def.FullNamespace())
	}
}

// qualify maps a backend-relative namespace onto the registry tree.
func (fc *FilestoreCatalog) qualify(namespace data.Namespace) data.Namespace {
	full := fc.def.FullNamespace()
	if len(namespace) == 1 && strings.EqualFold(namespace[0], fc.def.Name) {
		return full
	}
	return append(append(data.Namespace{}, full...), namespace...)
}

// relative strips the datasource prefix from a registry namespace.
func (fc *FilestoreCatalog) relative(namespace data.Namespace) data.Namespace {
	return namespace.Drop(len(fc.def.FullNamespace()))
}

// ListTables returns the identifiers of all tables directly under the
// backend-relative namespace.
func (fc *FilestoreCatalog) ListTables(ctx context.Context, namespace data.Namespace) ([]data.Identifier, error) {
	ids, err := fc.registry.ListTables(ctx, fc.qualify(namespace))
	if err != nil {
		return nil, err
	}

	relative := make([]data.Identifier, 0, len(ids))
	for _, id := range ids {
		relative = append(relative, data.Identifier{
			Namespace: fc.relative(id.Namespace),
			Name:      id.Name,
		})
	}
	return relative, nil
}

// LoadTable returns the definition of the addressed table.
func (fc *FilestoreCatalog) LoadTable(ctx context.Context, id data.Identifier) (*data.TableDefinition, error) {
	return fc.registry.LookupTable(ctx, id.WithNamespace(fc.qualify(id.Namespace)))
}

// CreateTable stores a new table definition. The projection mode is
// validated so that a misconfigured table fails at creation, not at scan.
func (fc *FilestoreCatalog) CreateTable(ctx context.Context, id data.Identifier, schema []data.Column, partitioning []string, properties map[string]string) error {
	if _, err := scan.ParseMode(properties[PropertyMode]); err != nil {
		return err
	}

	return fc.registry.CreateTable(ctx, &data.TableDefinition{
		Namespace:    fc.qualify(id.Namespace),
		Name:         id.Name,
		Schema:       schema,
		Partitioning: partitioning,
		Properties:   properties,
	})
}

// DropTable removes the addressed table.
func (fc *FilestoreCatalog) DropTable(ctx context.Context, id data.Identifier) error {
	return fc.registry.DropTable(ctx, id.WithNamespace(fc.qualify(id.Namespace)))
}

// TableExists reports whether the addressed table exists.
func (fc *FilestoreCatalog) TableExists(ctx context.Context, id data.Identifier) (bool, error) {
	_, err := fc.registry.LookupTable(ctx, id.WithNamespace(fc.qualify(id.Namespace)))
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
func (fc *FilestoreCatalog) ListNamespaces(ctx context.Context, namespace data.Namespace) ([]data.Namespace, error) {
	children, err := fc.registry.ListChildNamespaces(ctx, fc.qualify(namespace))
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
func (fc *FilestoreCatalog) NamespaceExists(ctx context.Context, namespace data.Namespace) (bool, error) {
	_, err := fc.registry.ListChildNamespaces(ctx, fc.qualify(namespace))
	if errors.Is(err, data.ErrNamespaceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateNamespace creates the backend-relative namespace.
func (fc *FilestoreCatalog) CreateNamespace(ctx context.Context, namespace data.Namespace, properties map[string]string) error {
	return fc.registry.CreateNamespace(ctx, fc.qualify(namespace), properties)
}

// DropNamespace removes the backend-relative namespace.
func (fc *FilestoreCatalog) DropNamespace(ctx context.Context, namespace data.Namespace, cascade bool) error {
	return fc.registry.DropNamespace(ctx, fc.qualify(namespace), cascade)
}

// PlanScan expands the addressed table into one partition per physical
// file beneath its configured roots. Pushed filters are validated at plan
// time: an unsupported operator or a column outside the table's projection
// mode rejects the whole scan before any file is opened.
func (fc *FilestoreCatalog) PlanScan(ctx context.Context, id data.Identifier, columns []string, filters []filter.PushedFilter) ([]scan.Partition, error) {
	table, err := fc.LoadTable(ctx, id)
	if err != nil {
		return nil, err
	}

	mode, err := scan.ParseMode(table.Property(PropertyMode, ""))
	if err != nil {
		return nil, err
	}

	for _, f := range filters {
		if !mode.Recognizes(f.Column) {
			return nil, fmt.Errorf("%w: %s (table %s, mode %s)",
				ErrFilterOutsideProjection, f.Column, id, mode)
		}
	}
	if _, err := filter.CompileAll(filters); err != nil {
		return nil, err
	}

	roots := tableRoots(table)
	if len(roots) == 0 {
		return nil, fmt.Errorf("metacat: table %s defines no root paths", id)
	}

	previewLength, err := fc.previewLength(table)
	if err != nil {
		return nil, err
	}

	var partitions []scan.Partition
	for _, root := range roots {
		refs, err := fc.fs.List(ctx, root)
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			partitions = append(partitions, scan.Partition{
				File:          ref,
				Columns:       columns,
				Mode:          mode,
				Roots:         roots,
				PreviewLength: previewLength,
				Filters:       filters,
			})
		}
	}

	fc.logger.Debug("planned %d partitions for %s across %d roots",
		len(partitions), id, len(roots))
	return partitions, nil
}

// OpenPartition creates an unopened reader for one planned partition.
func (fc *FilestoreCatalog) OpenPartition(partition scan.Partition) *scan.PartitionReader {
	return scan.NewPartitionReader(fc.fs, partition, fc.logger)
}

// tableRoots parses the comma-separated root path property.
func tableRoots(table *data.TableDefinition) []string {
	var roots []string
	for _, root := range strings.Split(table.Property(PropertyRoots, ""), ",") {
		if root = strings.TrimSpace(root); root != "" {
			roots = append(roots, root)
		}
	}
	return roots
}

// previewLength resolves the preview bound, with the table property taking
// precedence over the datasource default. An unset property falls back to
// the default length; an explicit zero disables truncation.
func (fc *FilestoreCatalog) previewLength(table *data.TableDefinition) (int, error) {
	raw := table.Property(PropertyPreviewLength, fc.def.Property(PropertyPreviewLength, ""))
	if raw == "" {
		return scan.DefaultPreviewLength, nil
	}

	length, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("metacat: invalid %s %q: %w", PropertyPreviewLength, raw, err)
	}
	return length, nil
}

var _ metacat.BackendCatalog = (*FilestoreCatalog)(nil)
