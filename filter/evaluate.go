package filter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mwantia/metacat/data"
)

// Predicate is a compiled pushed filter bound against one metadata record.
type Predicate func(record *data.MetaData) bool

// Compile turns a pushed filter into a predicate closure. The column name
// must be one of the recognized metadata columns and the operator must fit
// the column's type; anything else is a planning error, reported here.
func Compile(f PushedFilter) (Predicate, error) {
	if _, known := data.NewMetaData().Field(f.Column); !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, f.Column)
	}

	switch f.Op {
	case OpEqual:
		return func(record *data.MetaData) bool {
			field, _ := record.Field(f.Column)
			return equal(field, f.Value)
		}, nil

	case OpNotEqual:
		return func(record *data.MetaData) bool {
			field, _ := record.Field(f.Column)
			return !equal(field, f.Value)
		}, nil

	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		op := f.Op
		return func(record *data.MetaData) bool {
			field, _ := record.Field(f.Column)
			cmp, ok := compare(field, f.Value)
			if !ok {
				return false
			}
			switch op {
			case OpGreaterThan:
				return cmp > 0
			case OpGreaterOrEqual:
				return cmp >= 0
			case OpLessThan:
				return cmp < 0
			default:
				return cmp <= 0
			}
		}, nil

	case OpIn:
		values := f.Values
		return func(record *data.MetaData) bool {
			field, _ := record.Field(f.Column)
			for _, candidate := range values {
				if equal(field, candidate) {
					return true
				}
			}
			return false
		}, nil

	case OpContains:
		needle, ok := f.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: contains requires a string operand", ErrIncomparableValue)
		}
		return func(record *data.MetaData) bool {
			field, _ := record.Field(f.Column)
			text, ok := field.(string)
			return ok && strings.Contains(text, needle)
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperator, f.Op)
}

// CompileAll compiles a filter set into one AND-combined predicate.
// An empty set compiles to a predicate that always emits.
func CompileAll(filters []PushedFilter) (Predicate, error) {
	if len(filters) == 0 {
		return func(*data.MetaData) bool { return true }, nil
	}

	predicates := make([]Predicate, 0, len(filters))
	for _, f := range filters {
		predicate, err := Compile(f)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, predicate)
	}

	return func(record *data.MetaData) bool {
		for _, predicate := range predicates {
			if !predicate(record) {
				return false
			}
		}
		return true
	}, nil
}

// Evaluate compiles and runs the filter set against a fully materialized
// record. A row is emitted only when every pushed filter is satisfied.
func Evaluate(filters []PushedFilter, record *data.MetaData) (bool, error) {
	predicate, err := CompileAll(filters)
	if err != nil {
		return false, err
	}
	return predicate(record), nil
}

// equal compares a record field against a filter operand, coercing numeric
// operand types.
func equal(field, value any) bool {
	switch f := field.(type) {
	case string:
		v, ok := value.(string)
		return ok && f == v
	case int64:
		v, ok := toInt64(value)
		return ok && f == v
	case []byte:
		v, ok := value.([]byte)
		return ok && bytes.Equal(f, v)
	}
	return false
}

// compare returns the ordering of a record field relative to the operand.
// The second return is false when the pair is not comparable.
func compare(field, value any) (int, bool) {
	switch f := field.(type) {
	case string:
		v, ok := value.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(f, v), true
	case int64:
		v, ok := toInt64(value)
		if !ok {
			return 0, false
		}
		switch {
		case f < v:
			return -1, true
		case f > v:
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), v == float64(int64(v))
	}
	return 0, false
}
