// Package table loads delimited tables against a declared column schema and
// writes stage outputs back out.
//
// Every pipeline stage reads its inputs through [Load]. Malformed data rows are
// never returned as errors: each data row becomes exactly one [Outcome], either
// valid with a typed [Row] or invalid with a [RowError] that names the row
// number, the failing field and the offending value. Only problems with the file
// itself (missing, unreadable, wrong header) are reported as Go errors, using
// [*FileError] and [*StructureError].
package table

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// FieldType is the declared type of a schema column.
type FieldType int

const (
	Text FieldType = iota
	Integer
	Real
)

func (t FieldType) String() string {
	switch t {
	case Text:
		return "text"
	case Integer:
		return "integer"
	case Real:
		return "real"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// Check is a domain constraint applied to a value after type coercion.
// It returns a human-readable reason when the value is rejected.
type Check func(v any) error

// Field is one column of a Schema.
type Field struct {
	Name  string
	Type  FieldType
	Check Check
}

// Schema is the ordered list of columns a table is expected to carry. Field
// order is both the source column order and the attribute name of each value.
type Schema []Field

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, f := range s {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

// AtLeast rejects real or integer values below min.
func AtLeast(min float64) Check {
	return func(v any) error {
		if n, ok := number(v); ok && n < min {
			return fmt.Errorf("must be >= %g", min)
		}
		return nil
	}
}

// Positive rejects real or integer values <= 0.
func Positive() Check {
	return func(v any) error {
		if n, ok := number(v); ok && n <= 0 {
			return errors.New("must be > 0")
		}
		return nil
	}
}

// Between rejects values outside (lo, hi].
func Between(lo, hi float64) Check {
	return func(v any) error {
		if n, ok := number(v); ok && (n <= lo || n > hi) {
			return fmt.Errorf("must be in (%g, %g]", lo, hi)
		}
		return nil
	}
}

// NotEmpty rejects blank text values.
func NotEmpty() Check {
	return func(v any) error {
		if s, ok := v.(string); ok && s == "" {
			return errors.New("must not be empty")
		}
		return nil
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
