// Package filter models predicates a query planner has pushed down to the
// unstructured scan for early row elimination. Each pushed filter is
// compiled into a closure over a single metadata record; multiple filters
// combine with logical AND.
package filter

import "errors"

var (
	ErrUnknownColumn       = errors.New("metacat: pushed filter references unknown column")
	ErrUnsupportedOperator = errors.New("metacat: unsupported filter operator")
	ErrIncomparableValue   = errors.New("metacat: filter value not comparable to column")
)

// Operator identifies the predicate form of a pushed filter.
type Operator string

const (
	OpEqual          Operator = "="
	OpNotEqual       Operator = "!="
	OpGreaterThan    Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLessThan       Operator = "<"
	OpLessOrEqual    Operator = "<="

	// OpIn matches when the column value equals any element of Values.
	OpIn Operator = "in"

	// OpContains matches when the string column contains Value as a
	// substring.
	OpContains Operator = "contains"
)

// PushedFilter is one independently pushed predicate over a metadata column.
type PushedFilter struct {
	// Column names the metadata record field, using the external column
	// name constants.
	Column string

	// Op selects the predicate form.
	Op Operator

	// Value is the comparison operand for all forms except OpIn.
	Value any

	// Values holds the candidate set for OpIn.
	Values []any
}

// Equal builds an equality filter.
func Equal(column string, value any) PushedFilter {
	return PushedFilter{Column: column, Op: OpEqual, Value: value}
}

// GreaterThan builds a strict greater-than filter.
func GreaterThan(column string, value any) PushedFilter {
	return PushedFilter{Column: column, Op: OpGreaterThan, Value: value}
}

// LessThan builds a strict less-than filter.
func LessThan(column string, value any) PushedFilter {
	return PushedFilter{Column: column, Op: OpLessThan, Value: value}
}

// In builds a set containment filter.
func In(column string, values ...any) PushedFilter {
	return PushedFilter{Column: column, Op: OpIn, Values: values}
}

// Contains builds a substring containment filter.
func Contains(column string, value string) PushedFilter {
	return PushedFilter{Column: column, Op: OpContains, Value: value}
}
