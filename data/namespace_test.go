package data

import "testing"

func TestParseNamespace(t *testing.T) {
	ns := ParseNamespace("datasource.rdbms.mydb")
	if len(ns) != 3 || ns[0] != "datasource" || ns[2] != "mydb" {
		t.Errorf("Expected 3 segments, got %v", ns)
	}

	if !ParseNamespace("").IsEmpty() {
		t.Error("Expected empty string to parse as root namespace")
	}
}

func TestNamespaceCaseInsensitivity(t *testing.T) {
	a := ParseNamespace("DataSource.RDBMS.MyDB")
	b := ParseNamespace("datasource.rdbms.mydb")

	if !a.Equal(b) {
		t.Error("Expected case-insensitive equality")
	}
	if !a.HasPrefix(NewNamespace("datasource", "rdbms")) {
		t.Error("Expected case-insensitive prefix match")
	}
	if a.HasPrefix(ParseNamespace("datasource.rdbms.mydb.deeper")) {
		t.Error("Expected longer prefix to not match")
	}
}

func TestNamespaceNavigation(t *testing.T) {
	ns := ParseNamespace("datasource.rdbms.mydb.schema1")

	if ns.Last() != "schema1" {
		t.Errorf("Expected last segment schema1, got %q", ns.Last())
	}
	if !ns.Parent().Equal(ParseNamespace("datasource.rdbms.mydb")) {
		t.Errorf("Expected parent, got %v", ns.Parent())
	}
	if !ns.Drop(3).Equal(NewNamespace("schema1")) {
		t.Errorf("Expected residual [schema1], got %v", ns.Drop(3))
	}
	if !ns.Drop(10).IsEmpty() {
		t.Error("Expected over-long drop to yield the empty namespace")
	}
}

func TestNamespaceChildDoesNotAlias(t *testing.T) {
	base := NewNamespace("datasource", "rdbms")
	first := base.Child("a")
	second := base.Child("b")

	if first.Last() != "a" || second.Last() != "b" {
		t.Errorf("Expected independent children, got %v and %v", first, second)
	}
}

func TestIsReservedRoot(t *testing.T) {
	for _, segment := range []string{"datasource", "DataSource", "metastore", "METASTORE"} {
		if !IsReservedRoot(segment) {
			t.Errorf("Expected %q to be reserved", segment)
		}
	}
	if IsReservedRoot("lightning") {
		t.Error("Expected the system catalog name to not be a reserved root")
	}
}
