package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mwantia/metacat"
	"github.com/mwantia/metacat/backend/filestore"
	"github.com/mwantia/metacat/backend/nested"
	"github.com/mwantia/metacat/data"
	"github.com/mwantia/metacat/filter"
	"github.com/mwantia/metacat/log"
	registry "github.com/mwantia/metacat/registry/memory"
	memstore "github.com/mwantia/metacat/store/memory"
)

// setupDemoCatalog creates a demo catalog with an in-memory registry, a
// nested datasource and an unstructured file datasource with sample files.
func setupDemoCatalog(ctx context.Context, logger *log.Logger) (*metacat.Catalog, *filestore.FilestoreCatalog, error) {
	reg := registry.NewMemoryRegistry()

	// Sample files served by the unstructured datasource
	files := memstore.NewMemoryStore()
	files.Put("docs/readme.txt", []byte("Welcome to the catalog demo!"), time.Now())
	files.Put("docs/reports/summary.md", []byte("# Summary\nEverything is fine."), time.Now())
	files.Put("docs/reports/details.csv", []byte("id,value\n1,42\n2,7\n"), time.Now())
	files.Put("docs/archive.bin", []byte{0x00, 0x01, 0x02}, time.Now())

	catalog, err := metacat.New(reg,
		metacat.WithLogger(logger),
		metacat.WithKind(metacat.KindNested, nested.Factory),
		metacat.WithKind(metacat.KindUnstructured, func(def *data.DatasourceDefinition, r metacat.MetadataRegistry) (metacat.BackendCatalog, error) {
			return filestore.New(def, r, files, logger), nil
		}),
	)
	if err != nil {
		return nil, nil, err
	}

	// Register the two demo datasources
	defs := []*data.DatasourceDefinition{
		{
			Owner: data.NewNamespace(data.RootDatasource, "dir"),
			Name:  "warehouse",
			Kind:  metacat.KindNested,
		},
		{
			Owner: data.NewNamespace(data.RootDatasource, "files"),
			Name:  "docs",
			Kind:  metacat.KindUnstructured,
			Properties: map[string]string{
				filestore.PropertyPreviewLength: "64",
			},
		},
	}
	for _, def := range defs {
		if err := reg.CreateDatasource(ctx, def); err != nil {
			return nil, nil, fmt.Errorf("failed to create datasource %s: %w", def.FullNamespace(), err)
		}
	}

	// A metadata table over the sample file tree
	id := data.Identifier{
		Namespace: data.ParseNamespace("datasource.files.docs"),
		Name:      "documents",
	}
	err = catalog.CreateTable(ctx, id, nil, nil, map[string]string{
		filestore.PropertyMode:  "metadata",
		filestore.PropertyRoots: "docs",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create table %s: %w", id, err)
	}

	def, err := reg.LookupDatasource(ctx, data.NewNamespace(data.RootDatasource, "files"), "docs")
	if err != nil {
		return nil, nil, err
	}

	return catalog, filestore.New(def, reg, files, logger), nil
}

func main() {
	ctx := context.Background()
	logger := log.Default()

	catalog, backend, err := setupDemoCatalog(ctx, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up demo catalog: %v\n", err)
		os.Exit(1)
	}

	// Walk the namespace tree from the top
	roots, err := catalog.ListNamespaces(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list namespaces: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Top-level namespaces:")
	for _, ns := range roots {
		fmt.Printf("  %s\n", ns)
	}

	tables, err := catalog.ListTables(ctx, data.ParseNamespace("datasource.files.docs"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list tables: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Tables under datasource.files.docs:")
	for _, id := range tables {
		fmt.Printf("  %s\n", id)
	}

	// Scan the documents table, keeping only files larger than 10 bytes
	id := data.Identifier{Name: "documents"}
	columns := []string{data.ColumnPath, data.ColumnFileType, data.ColumnSizeInBytes, data.ColumnPreview}
	filters := []filter.PushedFilter{filter.GreaterThan(data.ColumnSizeInBytes, int64(10))}

	partitions, err := backend.PlanScan(ctx, id, columns, filters)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to plan scan: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Scanning %d partitions:\n", len(partitions))
	for _, partition := range partitions {
		reader := backend.OpenPartition(partition)
		if err := reader.Open(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to open partition: %v\n", err)
			os.Exit(1)
		}

		for {
			row, err := reader.Next(ctx)
			if err == io.EOF {
				break
			}
			if err != nil {
				reader.Close()
				fmt.Fprintf(os.Stderr, "failed to read partition: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("  %v\n", row)
		}

		reader.Close()
	}
}
