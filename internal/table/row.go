package table

import "fmt"

// Row is one validated data row. Values are keyed by field name and already
// coerced to their declared type (string, int or float64). A Row is never
// mutated after validation; With returns an extended copy.
type Row struct {
	// Number is the 1-based data row number, counted after the header rows.
	// Blank lines are not records and are not counted; use Line to locate a
	// row in the source file.
	Number int
	// Line is the 1-based line in the source file where the row starts.
	Line   int
	values map[string]any
}

// NewRow builds a Row from already-typed values. Intended for tests and for
// stages that derive rows in memory.
func NewRow(number int, values map[string]any) Row {
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Row{Number: number, Line: number, values: cp}
}

// Value returns the raw typed value for name.
func (r Row) Value(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Text returns a text field, or "" when absent or of another type.
func (r Row) Text(name string) string {
	s, _ := r.values[name].(string)
	return s
}

// Int returns an integer field, or 0 when absent or of another type.
func (r Row) Int(name string) int {
	n, _ := r.values[name].(int)
	return n
}

// Real returns a real field. Integer fields are widened.
func (r Row) Real(name string) float64 {
	switch v := r.values[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

// With returns a copy of r with name set to v.
func (r Row) With(name string, v any) Row {
	cp := make(map[string]any, len(r.values)+1)
	for k, val := range r.values {
		cp[k] = val
	}
	cp[name] = v
	return Row{Number: r.Number, Line: r.Line, values: cp}
}

// RowError describes why a data row was rejected.
type RowError struct {
	Row    int
	Line   int
	Field  string
	Value  string
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}
