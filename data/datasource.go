package data

// DatasourceDefinition describes one registered external data source.
// It is owned and mutated exclusively by the metadata registry and is
// treated as immutable once resolved within a single catalog call.
type DatasourceDefinition struct {
	// Unique identifier assigned by the registry on registration.
	ID string

	// Owner is the namespace prefix the datasource is registered under.
	Owner Namespace

	// Name of the datasource; together with Owner it forms the full
	// namespace prefix the datasource owns.
	Name string

	// Kind discriminates which backend catalog variant serves this
	// datasource. Every registered kind maps to exactly one variant.
	Kind string

	// Properties holds backend connection settings (endpoints,
	// credentials, root paths).
	Properties map[string]string
}

// FullNamespace returns the complete namespace prefix owned by the
// datasource: its owner namespace plus its own name segment.
func (d *DatasourceDefinition) FullNamespace() Namespace {
	return d.Owner.Child(d.Name)
}

// Property retrieves a connection property with a default value.
func (d *DatasourceDefinition) Property(key, defaultValue string) string {
	if d.Properties == nil {
		return defaultValue
	}
	if value, exists := d.Properties[key]; exists {
		return value
	}
	return defaultValue
}
