package filter

import (
	"errors"
	"testing"

	"github.com/mwantia/metacat/data"
)

func record(fileType string, size int64) *data.MetaData {
	md := data.NewMetaData()
	md.FileType = fileType
	md.SizeInBytes = size
	md.Path = "docs/reports/summary.pdf"
	return md
}

func TestEvaluateConjunction(t *testing.T) {
	filters := []PushedFilter{
		Equal(data.ColumnFileType, "pdf"),
		GreaterThan(data.ColumnSizeInBytes, int64(1000)),
	}

	cases := []struct {
		name   string
		record *data.MetaData
		emit   bool
	}{
		{"BothSatisfied", record("pdf", 2000), true},
		{"SizeTooSmall", record("pdf", 500), false},
		{"WrongFileType", record("txt", 2000), false},
		{"NeitherSatisfied", record("txt", 500), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			emit, err := Evaluate(filters, tc.record)
			if err != nil {
				t.Fatalf("Failed to evaluate: %v", err)
			}
			if emit != tc.emit {
				t.Errorf("Expected emit=%v, got %v", tc.emit, emit)
			}
		})
	}
}

func TestEvaluateEmptySetEmits(t *testing.T) {
	emit, err := Evaluate(nil, record("pdf", 10))
	if err != nil {
		t.Fatalf("Failed to evaluate: %v", err)
	}
	if !emit {
		t.Error("Expected empty filter set to emit")
	}
}

func TestEvaluateOperators(t *testing.T) {
	md := record("pdf", 1500)

	cases := []struct {
		name   string
		filter PushedFilter
		emit   bool
	}{
		{"NotEqual", PushedFilter{Column: data.ColumnFileType, Op: OpNotEqual, Value: "txt"}, true},
		{"GreaterOrEqualBoundary", PushedFilter{Column: data.ColumnSizeInBytes, Op: OpGreaterOrEqual, Value: int64(1500)}, true},
		{"LessThan", LessThan(data.ColumnSizeInBytes, int64(1500)), false},
		{"LessOrEqualBoundary", PushedFilter{Column: data.ColumnSizeInBytes, Op: OpLessOrEqual, Value: int64(1500)}, true},
		{"InMatch", In(data.ColumnFileType, "txt", "pdf"), true},
		{"InMiss", In(data.ColumnFileType, "txt", "md"), false},
		{"Contains", Contains(data.ColumnPath, "reports"), true},
		{"ContainsMiss", Contains(data.ColumnPath, "images"), false},
		{"IntCoercion", GreaterThan(data.ColumnSizeInBytes, 1000), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			emit, err := Evaluate([]PushedFilter{tc.filter}, md)
			if err != nil {
				t.Fatalf("Failed to evaluate: %v", err)
			}
			if emit != tc.emit {
				t.Errorf("Expected emit=%v, got %v", tc.emit, emit)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	t.Run("UnknownColumn", func(t *testing.T) {
		_, err := Compile(Equal("no_such_column", "x"))
		if !errors.Is(err, ErrUnknownColumn) {
			t.Errorf("Expected ErrUnknownColumn, got %v", err)
		}
	})

	t.Run("UnsupportedOperator", func(t *testing.T) {
		_, err := Compile(PushedFilter{Column: data.ColumnPath, Op: "between", Value: "x"})
		if !errors.Is(err, ErrUnsupportedOperator) {
			t.Errorf("Expected ErrUnsupportedOperator, got %v", err)
		}
	})

	t.Run("ContainsNonString", func(t *testing.T) {
		_, err := Compile(PushedFilter{Column: data.ColumnPath, Op: OpContains, Value: 42})
		if !errors.Is(err, ErrIncomparableValue) {
			t.Errorf("Expected ErrIncomparableValue, got %v", err)
		}
	})
}

func TestEvaluateIncomparablePair(t *testing.T) {
	// A type mismatch between column and operand never emits
	emit, err := Evaluate([]PushedFilter{GreaterThan(data.ColumnFileType, int64(10))}, record("pdf", 10))
	if err != nil {
		t.Fatalf("Failed to evaluate: %v", err)
	}
	if emit {
		t.Error("Expected incomparable pair to suppress the row")
	}
}
