package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mwantia/metacat/data"
)

func setupRegistry(t *testing.T) *SQLiteRegistry {
	t.Helper()

	reg, err := NewSQLiteRegistry(":memory:")
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	t.Cleanup(func() { reg.Shutdown() })
	return reg
}

func TestSeededRoots(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	children, err := reg.ListChildNamespaces(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to list roots: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("Expected 2 seeded roots, got %v", children)
	}
}

func TestDatasourceRoundTrip(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	owner := data.NewNamespace("datasource", "rdbms")
	def := &data.DatasourceDefinition{
		Owner:      owner,
		Name:       "mydb",
		Kind:       "test",
		Properties: map[string]string{"dsn": "postgres://localhost"},
	}

	if err := reg.CreateDatasource(ctx, def); err != nil {
		t.Fatalf("Failed to create datasource: %v", err)
	}
	if def.ID == "" {
		t.Error("Expected an assigned datasource id")
	}

	if err := reg.CreateDatasource(ctx, def); !errors.Is(err, data.ErrDatasourceExists) {
		t.Errorf("Expected ErrDatasourceExists, got %v", err)
	}

	found, err := reg.LookupDatasource(ctx, data.NewNamespace("DataSource", "RDBMS"), "MyDB")
	if err != nil {
		t.Fatalf("Failed to look up datasource: %v", err)
	}
	if found.Property("dsn", "") != "postgres://localhost" {
		t.Errorf("Expected properties to survive the round trip, got %v", found.Properties)
	}
	// The stored definition keeps its original case
	if found.Name != "mydb" || !found.Owner.Equal(owner) {
		t.Errorf("Expected original definition, got %v", found)
	}

	defs, err := reg.ListDatasources(ctx, owner)
	if err != nil {
		t.Fatalf("Failed to list datasources: %v", err)
	}
	if len(defs) != 1 {
		t.Errorf("Expected 1 datasource, got %d", len(defs))
	}

	if err := reg.DropDatasource(ctx, owner, "mydb"); err != nil {
		t.Fatalf("Failed to drop datasource: %v", err)
	}
	if _, err := reg.LookupDatasource(ctx, owner, "mydb"); !errors.Is(err, data.ErrDatasourceNotFound) {
		t.Errorf("Expected ErrDatasourceNotFound, got %v", err)
	}
}

func TestTableRoundTrip(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	table := &data.TableDefinition{
		Namespace: data.ParseNamespace("datasource.files.docs"),
		Name:      "documents",
		Schema: []data.Column{
			{Name: data.ColumnPath, Type: "string"},
		},
		Partitioning: []string{data.ColumnSubDir},
		Properties:   map[string]string{"mode": "metadata", "roots": "docs"},
	}

	if err := reg.CreateTable(ctx, table); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	if err := reg.CreateTable(ctx, table); !errors.Is(err, data.ErrTableExists) {
		t.Errorf("Expected ErrTableExists, got %v", err)
	}

	found, err := reg.LookupTable(ctx, data.Identifier{
		Namespace: data.ParseNamespace("DataSource.Files.Docs"),
		Name:      "Documents",
	})
	if err != nil {
		t.Fatalf("Failed to look up table: %v", err)
	}
	if len(found.Schema) != 1 || found.Schema[0].Name != data.ColumnPath {
		t.Errorf("Expected schema to survive the round trip, got %v", found.Schema)
	}
	if len(found.Partitioning) != 1 || found.Partitioning[0] != data.ColumnSubDir {
		t.Errorf("Expected partitioning to survive the round trip, got %v", found.Partitioning)
	}

	ids, err := reg.ListTables(ctx, table.Namespace)
	if err != nil {
		t.Fatalf("Failed to list tables: %v", err)
	}
	if len(ids) != 1 || ids[0].Name != "documents" {
		t.Errorf("Expected [documents], got %v", ids)
	}

	if err := reg.DropTable(ctx, table.Identifier()); err != nil {
		t.Fatalf("Failed to drop table: %v", err)
	}
	if err := reg.DropTable(ctx, table.Identifier()); !errors.Is(err, data.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}
}

func TestNamespaceTree(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	if err := reg.CreateNamespace(ctx, data.ParseNamespace("metastore.reports"), map[string]string{"owner": "ops"}); err != nil {
		t.Fatalf("Failed to create namespace: %v", err)
	}
	if err := reg.CreateNamespace(ctx, data.ParseNamespace("metastore.reports"), nil); !errors.Is(err, data.ErrNamespaceExists) {
		t.Errorf("Expected ErrNamespaceExists, got %v", err)
	}
	if err := reg.CreateNamespace(ctx, data.ParseNamespace("metastore.missing.deep"), nil); !errors.Is(err, data.ErrNamespaceNotFound) {
		t.Errorf("Expected ErrNamespaceNotFound for missing parent, got %v", err)
	}
	if err := reg.CreateNamespace(ctx, data.ParseNamespace("metastore.reports.daily"), nil); err != nil {
		t.Fatalf("Failed to create child namespace: %v", err)
	}

	children, err := reg.ListChildNamespaces(ctx, data.NewNamespace("metastore"))
	if err != nil {
		t.Fatalf("Failed to list children: %v", err)
	}
	if len(children) != 1 || children[0] != "reports" {
		t.Errorf("Expected [reports], got %v", children)
	}

	if err := reg.DropNamespace(ctx, data.ParseNamespace("metastore.reports"), false); !errors.Is(err, data.ErrNamespaceNotEmpty) {
		t.Errorf("Expected ErrNamespaceNotEmpty, got %v", err)
	}
	if err := reg.DropNamespace(ctx, data.ParseNamespace("metastore.reports"), true); err != nil {
		t.Fatalf("Failed to drop namespace: %v", err)
	}
	if _, err := reg.ListChildNamespaces(ctx, data.ParseNamespace("metastore.reports")); !errors.Is(err, data.ErrNamespaceNotFound) {
		t.Errorf("Expected ErrNamespaceNotFound after cascade drop, got %v", err)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	reg, err := NewSQLiteRegistry(dbPath)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}

	def := &data.DatasourceDefinition{
		Owner: data.NewNamespace("datasource", "rdbms"),
		Name:  "mydb",
		Kind:  "test",
	}
	if err := reg.CreateDatasource(ctx, def); err != nil {
		t.Fatalf("Failed to create datasource: %v", err)
	}
	if err := reg.Shutdown(); err != nil {
		t.Fatalf("Failed to shut down registry: %v", err)
	}

	reopened, err := NewSQLiteRegistry(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen registry: %v", err)
	}
	defer reopened.Shutdown()

	found, err := reopened.LookupDatasource(ctx, def.Owner, def.Name)
	if err != nil {
		t.Fatalf("Failed to look up datasource after reopen: %v", err)
	}
	if found.ID != def.ID {
		t.Errorf("Expected persisted datasource %s, got %s", def.ID, found.ID)
	}
}
