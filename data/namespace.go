package data

import "strings"

// Reserved root segments that partition the top level of the global
// namespace. They are created implicitly and can never be removed.
const (
	RootDatasource = "datasource"
	RootMetastore  = "metastore"
)

// SystemCatalogName is the first identifier segment that routes table loads
// to the internal system catalog. The literal is an external compatibility
// surface and must not change.
const SystemCatalogName = "lightning"

// Namespace is an ordered sequence of case-insensitive segments.
// Equality and prefix checks compare segment by segment, ignoring case.
type Namespace []string

// NewNamespace creates a namespace from the given segments.
func NewNamespace(segments ...string) Namespace {
	return Namespace(segments)
}

// ParseNamespace splits a dot-separated namespace string into segments.
// An empty string yields the empty (root) namespace.
func ParseNamespace(s string) Namespace {
	if s == "" {
		return Namespace{}
	}
	return Namespace(strings.Split(s, "."))
}

// String returns the dot-separated form of the namespace.
func (n Namespace) String() string {
	return strings.Join(n, ".")
}

// IsEmpty reports whether the namespace has no segments.
func (n Namespace) IsEmpty() bool {
	return len(n) == 0
}

// Last returns the final segment, or an empty string for the root namespace.
func (n Namespace) Last() string {
	if len(n) == 0 {
		return ""
	}
	return n[len(n)-1]
}

// Parent returns the namespace with the final segment removed.
func (n Namespace) Parent() Namespace {
	if len(n) == 0 {
		return Namespace{}
	}
	return n[:len(n)-1]
}

// Child returns a new namespace with the given segment appended.
// The receiver is never modified.
func (n Namespace) Child(segment string) Namespace {
	child := make(Namespace, len(n), len(n)+1)
	copy(child, n)
	return append(child, segment)
}

// Drop returns the namespace with the first count segments removed.
// Dropping more segments than exist yields the empty namespace.
func (n Namespace) Drop(count int) Namespace {
	if count >= len(n) {
		return Namespace{}
	}
	return n[count:]
}

// Equal reports whether both namespaces contain the same segments,
// compared case-insensitively.
func (n Namespace) Equal(other Namespace) bool {
	if len(n) != len(other) {
		return false
	}
	for i, segment := range n {
		if !strings.EqualFold(segment, other[i]) {
			return false
		}
	}
	return true
}

// HasPrefix reports whether the namespace starts with the given prefix,
// compared case-insensitively.
func (n Namespace) HasPrefix(prefix Namespace) bool {
	if len(prefix) > len(n) {
		return false
	}
	return n[:len(prefix)].Equal(prefix)
}

// IsReservedRoot reports whether the segment names one of the two reserved
// root namespaces.
func IsReservedRoot(segment string) bool {
	return strings.EqualFold(segment, RootDatasource) ||
		strings.EqualFold(segment, RootMetastore)
}
