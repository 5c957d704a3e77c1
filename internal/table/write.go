package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Writer emits a header row followed by records. Values are formatted with
// FormatValue so repeated runs produce byte-identical output.
type Writer struct {
	cw *csv.Writer
}

// NewWriter writes header to w and returns a Writer for the data rows.
func NewWriter(w io.Writer, header []string) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return nil, err
	}
	return &Writer{cw: cw}, nil
}

// Write appends one record.
func (w *Writer) Write(values ...any) error {
	rec := make([]string, len(values))
	for i, v := range values {
		rec[i] = FormatValue(v)
	}
	return w.cw.Write(rec)
}

// Flush writes any buffered data and reports the first write error.
func (w *Writer) Flush() error {
	w.cw.Flush()
	return w.cw.Error()
}

// WriteFile creates path and writes header plus records to it.
func WriteFile(path string, header []string, records [][]any) error {
	f, err := os.Create(path)
	if err != nil {
		return &FileError{Path: path, Err: err}
	}
	w, err := NewWriter(f, header)
	if err != nil {
		_ = f.Close()
		return &FileError{Path: path, Err: err}
	}
	for _, rec := range records {
		if err := w.Write(rec...); err != nil {
			_ = f.Close()
			return &FileError{Path: path, Err: err}
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return &FileError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &FileError{Path: path, Err: err}
	}
	return nil
}

// FormatValue renders a cell value. Reals use the shortest representation
// that round-trips.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
