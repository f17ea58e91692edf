package data

import "strings"

// Identifier addresses a single table: a namespace plus a final name segment.
type Identifier struct {
	Namespace Namespace
	Name      string
}

// NewIdentifier creates an identifier from a namespace and table name.
func NewIdentifier(namespace Namespace, name string) Identifier {
	return Identifier{Namespace: namespace, Name: name}
}

// ParseIdentifier splits a dot-separated identifier string; the final
// segment becomes the table name.
func ParseIdentifier(s string) Identifier {
	segments := ParseNamespace(s)
	if len(segments) == 0 {
		return Identifier{}
	}
	return Identifier{
		Namespace: segments.Parent(),
		Name:      segments.Last(),
	}
}

// String returns the dot-separated form of the identifier.
func (id Identifier) String() string {
	if id.Namespace.IsEmpty() {
		return id.Name
	}
	return id.Namespace.String() + "." + id.Name
}

// Equal reports whether both identifiers address the same table,
// compared case-insensitively.
func (id Identifier) Equal(other Identifier) bool {
	return id.Namespace.Equal(other.Namespace) &&
		strings.EqualFold(id.Name, other.Name)
}

// WithNamespace returns the identifier re-rooted under the given namespace.
func (id Identifier) WithNamespace(namespace Namespace) Identifier {
	return Identifier{Namespace: namespace, Name: id.Name}
}
