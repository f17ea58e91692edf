package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (CGO_ENABLED=0 compatible)

	"github.com/mwantia/metacat"
	"github.com/mwantia/metacat/data"
)

// SQLiteRegistry persists the namespace tree, datasource definitions and
// table definitions in a SQLite database. Lookup keys are lowercased dotted
// namespace paths; the original-case definitions are stored as JSON.
// This implementation uses modernc.org/sqlite which works without CGO.
type SQLiteRegistry struct {
	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteRegistry creates a SQLite-backed registry.
// The dbPath can be ":memory:" for an in-memory database or a file path.
func NewSQLiteRegistry(dbPath string) (*SQLiteRegistry, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection sees its own in-memory database, so pin the
	// pool to one connection to keep it alive and shared
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	registry := &SQLiteRegistry{
		db: db,
	}

	if err := registry.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return registry, nil
}

// initSchema creates the registry tables and seeds the reserved roots.
func (r *SQLiteRegistry) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS catalog_namespaces (
		namespace TEXT PRIMARY KEY,
		properties TEXT
	);

	CREATE TABLE IF NOT EXISTS catalog_datasources (
		owner TEXT NOT NULL,
		name TEXT NOT NULL,
		definition TEXT NOT NULL,
		PRIMARY KEY (owner, name)
	);
	CREATE INDEX IF NOT EXISTS idx_catalog_datasources_owner ON catalog_datasources(owner);

	CREATE TABLE IF NOT EXISTS catalog_tables (
		namespace TEXT NOT NULL,
		name TEXT NOT NULL,
		definition TEXT NOT NULL,
		PRIMARY KEY (namespace, name)
	);
	CREATE INDEX IF NOT EXISTS idx_catalog_tables_namespace ON catalog_tables(namespace);
	`

	if _, err := r.db.Exec(schema); err != nil {
		return err
	}

	_, err := r.db.Exec(`
		INSERT OR IGNORE INTO catalog_namespaces (namespace, properties)
		VALUES (?, NULL), (?, NULL)
	`, data.RootDatasource, data.RootMetastore)

	return err
}

// Shutdown closes the database connection.
func (r *SQLiteRegistry) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.db.Close()
}

func lowerKey(namespace data.Namespace) string {
	return strings.ToLower(namespace.String())
}

// LookupDatasource returns the datasource registered under the owner
// namespace with the given name.
func (r *SQLiteRegistry) LookupDatasource(ctx context.Context, owner data.Namespace, name string) (*data.DatasourceDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var raw string
	err := r.db.QueryRowContext(ctx, `
		SELECT definition FROM catalog_datasources WHERE owner = ? AND name = ?
	`, lowerKey(owner), strings.ToLower(name)).Scan(&raw)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s.%s", data.ErrDatasourceNotFound, owner, name)
	}
	if err != nil {
		return nil, err
	}

	var def data.DatasourceDefinition
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return nil, fmt.Errorf("failed to decode datasource definition: %w", err)
	}
	return &def, nil
}

// CreateDatasource registers a new datasource definition, assigning it a
// unique id when none is set.
func (r *SQLiteRegistry) CreateDatasource(ctx context.Context, def *data.DatasourceDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if def.ID == "" {
		def.ID = uuid.NewString()
	}

	raw, err := json.Marshal(def)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO catalog_datasources (owner, name, definition) VALUES (?, ?, ?)
	`, lowerKey(def.Owner), strings.ToLower(def.Name), string(raw))

	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return fmt.Errorf("%w: %s", data.ErrDatasourceExists, def.FullNamespace())
	}
	return err
}

// DropDatasource removes a registered datasource definition.
func (r *SQLiteRegistry) DropDatasource(ctx context.Context, owner data.Namespace, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.ExecContext(ctx, `
		DELETE FROM catalog_datasources WHERE owner = ? AND name = ?
	`, lowerKey(owner), strings.ToLower(name))
	if err != nil {
		return err
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: %s.%s", data.ErrDatasourceNotFound, owner, name)
	}
	return nil
}

// ListDatasources returns all datasources registered directly under the
// owner namespace.
func (r *SQLiteRegistry) ListDatasources(ctx context.Context, owner data.Namespace) ([]*data.DatasourceDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT definition FROM catalog_datasources WHERE owner = ? ORDER BY name
	`, lowerKey(owner))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*data.DatasourceDefinition
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}

		var def data.DatasourceDefinition
		if err := json.Unmarshal([]byte(raw), &def); err != nil {
			return nil, err
		}
		defs = append(defs, &def)
	}

	return defs, rows.Err()
}

// ListChildNamespaces returns the names of the immediate children of the
// namespace across created namespaces, datasources and tables.
func (r *SQLiteRegistry) ListChildNamespaces(ctx context.Context, namespace data.Namespace) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prefix := lowerKey(namespace)
	if !namespace.IsEmpty() {
		exists, err := r.namespaceExists(ctx, prefix)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", data.ErrNamespaceNotFound, namespace)
		}
	}

	seen := make(map[string]bool)
	var children []string
	collect := func(key string) {
		if child, ok := childSegment(key, prefix); ok && !seen[child] {
			seen[child] = true
			children = append(children, child)
		}
	}

	// Keys are filtered in Go through childSegment, which keeps the three
	// queries identical in shape and handles the empty root prefix.
	queries := []string{
		"SELECT namespace FROM catalog_namespaces ORDER BY namespace",
		"SELECT owner || '.' || name FROM catalog_datasources ORDER BY owner, name",
		"SELECT namespace || '.' || name FROM catalog_tables ORDER BY namespace, name",
	}

	for _, q := range queries {
		rows, err := r.db.QueryContext(ctx, q)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				rows.Close()
				return nil, err
			}
			collect(key)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	return children, nil
}

// CreateNamespace records a new namespace. The parent must already exist.
func (r *SQLiteRegistry) CreateNamespace(ctx context.Context, namespace data.Namespace, properties map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := lowerKey(namespace)
	exists, err := r.namespaceExists(ctx, prefix)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", data.ErrNamespaceExists, namespace)
	}

	if parent := namespace.Parent(); !parent.IsEmpty() {
		parentExists, err := r.namespaceExists(ctx, lowerKey(parent))
		if err != nil {
			return err
		}
		if !parentExists {
			return fmt.Errorf("%w: %s", data.ErrNamespaceNotFound, parent)
		}
	}

	var props any
	if len(properties) > 0 {
		raw, err := json.Marshal(properties)
		if err != nil {
			return err
		}
		props = string(raw)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO catalog_namespaces (namespace, properties) VALUES (?, ?)
	`, prefix, props)
	return err
}

// DropNamespace removes a namespace and, with cascade, its whole subtree.
func (r *SQLiteRegistry) DropNamespace(ctx context.Context, namespace data.Namespace, cascade bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := lowerKey(namespace)
	exists, err := r.namespaceExists(ctx, prefix)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", data.ErrNamespaceNotFound, namespace)
	}

	if !cascade {
		hasChildren, err := r.hasChildren(ctx, prefix)
		if err != nil {
			return err
		}
		if hasChildren {
			return fmt.Errorf("%w: %s", data.ErrNamespaceNotEmpty, namespace)
		}
	}

	statements := []struct {
		query string
		args  []any
	}{
		{"DELETE FROM catalog_namespaces WHERE namespace = ? OR namespace LIKE ?", []any{prefix, likePrefix(prefix)}},
		{"DELETE FROM catalog_datasources WHERE owner = ? OR owner LIKE ?", []any{prefix, likePrefix(prefix)}},
		{"DELETE FROM catalog_tables WHERE namespace = ? OR namespace LIKE ?", []any{prefix, likePrefix(prefix)}},
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			return err
		}
	}
	return nil
}

// LookupTable returns a stored table definition.
func (r *SQLiteRegistry) LookupTable(ctx context.Context, id data.Identifier) (*data.TableDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var raw string
	err := r.db.QueryRowContext(ctx, `
		SELECT definition FROM catalog_tables WHERE namespace = ? AND name = ?
	`, lowerKey(id.Namespace), strings.ToLower(id.Name)).Scan(&raw)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", data.ErrTableNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var table data.TableDefinition
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		return nil, fmt.Errorf("failed to decode table definition: %w", err)
	}
	return &table, nil
}

// CreateTable stores a new table definition, assigning it a unique id when
// none is set.
func (r *SQLiteRegistry) CreateTable(ctx context.Context, table *data.TableDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if table.ID == "" {
		table.ID = uuid.NewString()
	}

	raw, err := json.Marshal(table)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO catalog_tables (namespace, name, definition) VALUES (?, ?, ?)
	`, lowerKey(table.Namespace), strings.ToLower(table.Name), string(raw))

	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return fmt.Errorf("%w: %s", data.ErrTableExists, table.Identifier())
	}
	return err
}

// DropTable removes a stored table definition.
func (r *SQLiteRegistry) DropTable(ctx context.Context, id data.Identifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.ExecContext(ctx, `
		DELETE FROM catalog_tables WHERE namespace = ? AND name = ?
	`, lowerKey(id.Namespace), strings.ToLower(id.Name))
	if err != nil {
		return err
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: %s", data.ErrTableNotFound, id)
	}
	return nil
}

// ListTables returns the identifiers of all tables stored directly under
// the namespace.
func (r *SQLiteRegistry) ListTables(ctx context.Context, namespace data.Namespace) ([]data.Identifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT definition FROM catalog_tables WHERE namespace = ? ORDER BY name
	`, lowerKey(namespace))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []data.Identifier
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}

		var table data.TableDefinition
		if err := json.Unmarshal([]byte(raw), &table); err != nil {
			return nil, err
		}
		ids = append(ids, table.Identifier())
	}

	return ids, rows.Err()
}

// namespaceExists reports whether the namespace exists, either created
// explicitly or implied by a datasource or table beneath it.
func (r *SQLiteRegistry) namespaceExists(ctx context.Context, prefix string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 WHERE EXISTS (SELECT 1 FROM catalog_namespaces WHERE namespace = ?)
			OR EXISTS (SELECT 1 FROM catalog_datasources WHERE owner || '.' || name = ? OR owner = ? OR owner LIKE ?)
			OR EXISTS (SELECT 1 FROM catalog_tables WHERE namespace = ? OR namespace LIKE ?)
	`, prefix, prefix, prefix, likePrefix(prefix), prefix, likePrefix(prefix)).Scan(&exists)

	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// hasChildren reports whether any entry lives beneath the prefix.
func (r *SQLiteRegistry) hasChildren(ctx context.Context, prefix string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 WHERE EXISTS (SELECT 1 FROM catalog_namespaces WHERE namespace LIKE ?)
			OR EXISTS (SELECT 1 FROM catalog_datasources WHERE owner = ? OR owner LIKE ?)
			OR EXISTS (SELECT 1 FROM catalog_tables WHERE namespace = ? OR namespace LIKE ?)
	`, likePrefix(prefix), prefix, likePrefix(prefix), prefix, likePrefix(prefix)).Scan(&exists)

	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// likePrefix builds the LIKE pattern matching everything beneath a dotted
// prefix.
func likePrefix(prefix string) string {
	return prefix + ".%"
}

// childSegment extracts the immediate child segment of prefix from a
// stored key, if the key lives beneath it.
func childSegment(key, prefix string) (string, bool) {
	if prefix != "" {
		if !strings.HasPrefix(key, prefix+".") {
			return "", false
		}
		key = strings.TrimPrefix(key, prefix+".")
	}
	if key == "" {
		return "", false
	}
	if i := strings.IndexByte(key, '.'); i >= 0 {
		key = key[:i]
	}
	return key, true
}

var _ metacat.MetadataRegistry = (*SQLiteRegistry)(nil)
