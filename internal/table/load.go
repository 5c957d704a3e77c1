package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

const utf8BOM = "\ufeff"

// Options control which rows of a source table are treated as data.
type Options struct {
	// HeaderRows is the number of rows skipped before the first data row.
	// Blank lines are skipped everywhere and never count as rows.
	HeaderRows int
	// TrailerRows drops rows from the end of the table. A negative value is an
	// end offset: -1 keeps every row through the last, -n drops n-1 rows.
	TrailerRows int
	// MaxRows caps the number of data rows read. Zero means no cap.
	MaxRows int
	// AllowExtraColumns accepts rows wider than the schema.
	AllowExtraColumns bool
	// CheckHeader compares the last header row against the schema names.
	CheckHeader bool
}

// FileError reports a source table that could not be opened or read.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("read table %s: %v", e.Path, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }

// StructureError reports a table whose layout does not match what the caller
// declared, such as a missing column or a header in the wrong order.
type StructureError struct {
	Path   string
	Reason string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("table %s: %s", e.Path, e.Reason)
}

// Load reads the table at path and validates every data row against schema.
func Load(path string, schema Schema, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()
	return Parse(f, path, schema, opts)
}

// Parse validates rows read from r. source is used in errors and on the result.
func Parse(r io.Reader, source string, schema Schema, opts Options) (*Result, error) {
	records, lines, err := readRecords(r)
	if err != nil {
		return nil, &FileError{Path: source, Err: err}
	}

	header := opts.HeaderRows
	if header < 0 {
		header = 0
	}
	if header > len(records) {
		header = len(records)
	}
	if opts.CheckHeader && header > 0 {
		if err := checkHeader(records[header-1], schema, opts.AllowExtraColumns); err != nil {
			return nil, &StructureError{Path: source, Reason: err.Error()}
		}
	}

	end := len(records)
	switch {
	case opts.TrailerRows > 0:
		end -= opts.TrailerRows
	case opts.TrailerRows < -1:
		end += opts.TrailerRows + 1
	}
	if end < header {
		end = header
	}
	data := records[header:end]
	dataLines := lines[header:end]
	if opts.MaxRows > 0 && len(data) > opts.MaxRows {
		data = data[:opts.MaxRows]
		dataLines = dataLines[:opts.MaxRows]
	}

	res := &Result{Source: source, Outcomes: make([]Outcome, 0, len(data))}
	for i, rec := range data {
		res.Outcomes = append(res.Outcomes, validate(rec, i+1, dataLines[i], schema, opts.AllowExtraColumns))
	}
	return res, nil
}

func readRecords(r io.Reader) ([][]string, []int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if len(records) == 0 && len(rec) > 0 {
			rec[0] = strings.TrimPrefix(rec[0], utf8BOM)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return records, lines, nil
}

func checkHeader(got []string, schema Schema, allowExtra bool) error {
	if len(got) < len(schema) || (!allowExtra && len(got) != len(schema)) {
		return fmt.Errorf("header has %d columns, expected %d (%s)",
			len(got), len(schema), strings.Join(schema.Names(), ","))
	}
	for i, f := range schema {
		if !strings.EqualFold(strings.TrimSpace(got[i]), f.Name) {
			return fmt.Errorf("column %d is %q, expected %q", i+1, strings.TrimSpace(got[i]), f.Name)
		}
	}
	return nil
}

func validate(rec []string, number, line int, schema Schema, allowExtra bool) Outcome {
	if len(rec) < len(schema) || (!allowExtra && len(rec) != len(schema)) {
		return Invalid(RowError{
			Row:    number,
			Line:   line,
			Reason: fmt.Sprintf("column count mismatch: expected %d, got %d", len(schema), len(rec)),
		})
	}

	values := make(map[string]any, len(schema))
	for i, f := range schema {
		raw := strings.TrimSpace(rec[i])
		v, err := coerce(raw, f.Type)
		if err == nil && f.Check != nil {
			err = f.Check(v)
		}
		if err != nil {
			return Invalid(RowError{
				Row:    number,
				Line:   line,
				Field:  f.Name,
				Value:  raw,
				Reason: fmt.Sprintf("%s: %q %s", f.Name, raw, err.Error()),
			})
		}
		values[f.Name] = v
	}
	return Valid(Row{Number: number, Line: line, values: values})
}

var (
	errEmpty     = errors.New("is empty")
	errNotInt    = errors.New("is not a valid integer")
	errNotReal   = errors.New("is not a valid real number")
	errNotFinite = errors.New("is not a finite number")
)

func coerce(raw string, t FieldType) (any, error) {
	switch t {
	case Integer:
		if raw == "" {
			return nil, errEmpty
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errNotInt
		}
		return n, nil
	case Real:
		if raw == "" {
			return nil, errEmpty
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errNotReal
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errNotFinite
		}
		return f, nil
	default:
		return raw, nil
	}
}

// ReadAll returns every record of the table at path without validation. The
// first record has any UTF-8 byte order mark removed.
func ReadAll(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()
	records, _, err := readRecords(f)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	return records, nil
}
