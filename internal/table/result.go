package table

// Outcome is the validation result for a single data row: either a valid Row
// or a RowError, never both.
type Outcome struct {
	row Row
	err *RowError
}

// Valid wraps an accepted row.
func Valid(r Row) Outcome { return Outcome{row: r} }

// Invalid wraps a rejected row.
func Invalid(e RowError) Outcome { return Outcome{err: &e} }

// IsValid reports whether the outcome carries a row.
func (o Outcome) IsValid() bool { return o.err == nil }

// Row returns the accepted row and true, or a zero Row and false.
func (o Outcome) Row() (Row, bool) {
	if o.err != nil {
		return Row{}, false
	}
	return o.row, true
}

// Err returns the rejection and true, or a zero RowError and false.
func (o Outcome) Err() (RowError, bool) {
	if o.err == nil {
		return RowError{}, false
	}
	return *o.err, true
}

// Result holds one Outcome per data row of a source table, in source order.
type Result struct {
	Source   string
	Outcomes []Outcome
}

// Len is the number of data rows seen.
func (r *Result) Len() int { return len(r.Outcomes) }

// Valid returns the accepted rows in source order.
func (r *Result) Valid() []Row {
	rows := make([]Row, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if row, ok := o.Row(); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// Invalid returns the rejections in source order.
func (r *Result) Invalid() []RowError {
	var errs []RowError
	for _, o := range r.Outcomes {
		if e, ok := o.Err(); ok {
			errs = append(errs, e)
		}
	}
	return errs
}

// AllInvalid reports whether the table had data rows and every one of them was
// rejected. An empty table is not considered all-invalid.
func (r *Result) AllInvalid() bool {
	if len(r.Outcomes) == 0 {
		return false
	}
	for _, o := range r.Outcomes {
		if o.IsValid() {
			return false
		}
	}
	return true
}
