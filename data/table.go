package data

// Column describes one column of a table schema.
type Column struct {
	Name string
	Type string
}

// TableDefinition describes a table as stored by the metadata registry.
// Both the internal system catalog and the nested built-in backend variant
// persist their tables in this form.
type TableDefinition struct {
	// Unique identifier assigned by the registry on creation.
	ID string

	// Namespace the table lives under, relative to whatever catalog
	// owns it.
	Namespace Namespace

	// Name of the table.
	Name string

	// Schema lists the table columns in order.
	Schema []Column

	// Partitioning lists the column names the table is partitioned by.
	Partitioning []string

	// Properties holds table settings (projection mode, root paths,
	// preview length).
	Properties map[string]string
}

// Identifier returns the table's namespace-qualified identifier.
func (t *TableDefinition) Identifier() Identifier {
	return Identifier{Namespace: t.Namespace, Name: t.Name}
}

// Property retrieves a table property with a default value.
func (t *TableDefinition) Property(key, defaultValue string) string {
	if t.Properties == nil {
		return defaultValue
	}
	if value, exists := t.Properties[key]; exists {
		return value
	}
	return defaultValue
}
