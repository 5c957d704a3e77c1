package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/couchcryptid/culvert-eval/internal/domain"
	"github.com/couchcryptid/culvert-eval/internal/observability"
	"github.com/couchcryptid/culvert-eval/internal/table"
)

// ErrNoValidRows means a stage input had data rows but every one was rejected.
var ErrNoValidRows = errors.New("every data row is invalid")

// StageError is a structural failure that aborts a region run.
type StageError struct {
	Stage string
	File  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s (%s): %v", e.Stage, e.File, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Region names the three input tables for one region.
type Region struct {
	Tag           string
	Watershed     string
	Precipitation string
	FieldData     string
}

// RunContext carries everything a stage needs for one region run. Stages read
// their inputs and write their outputs through it and never consult any other
// state.
type RunContext struct {
	RunID     string
	Region    Region
	OutputDir string
	Current   domain.Scenario
	Future    domain.Scenario
	Grouping  domain.GroupingMode
	Logger    *slog.Logger
	Metrics   *observability.Metrics

	stages       []StageReport
	results      []domain.CrossingResult
	flagsOneRows []int
	warnings     []string
	// fieldRows[i] is the field-data row behind geometry output record i+1.
	fieldRows    []int
}

// fieldRow maps a geometry table row number back to its field-data row.
func (rc *RunContext) fieldRow(geometryRow int) int {
	if geometryRow >= 1 && geometryRow <= len(rc.fieldRows) {
		return rc.fieldRows[geometryRow-1]
	}
	return geometryRow
}

// Path returns the location of an output file in the run directory.
func (rc *RunContext) Path(name string) string {
	return filepath.Join(rc.OutputDir, name)
}

// Stages returns the reports recorded so far, in stage order.
func (rc *RunContext) Stages() []StageReport { return rc.stages }

// record stores a stage report, logs every rejected row and updates metrics.
func (rc *RunContext) record(r StageReport) {
	rc.stages = append(rc.stages, r)
	rc.Metrics.RowsRead.WithLabelValues(r.Stage).Add(float64(r.RowsIn))
	rc.Metrics.RowsInvalid.WithLabelValues(r.Stage).Add(float64(len(r.Invalid)))
	rc.Metrics.RowsWritten.WithLabelValues(r.Stage).Add(float64(r.RowsValid))
	for _, e := range r.Invalid {
		rc.Logger.Warn("row rejected",
			"stage", r.Stage,
			"file", filepath.Base(r.File),
			"row", e.Row,
			"line", e.Line,
			"field", e.Field,
			"reason", e.Reason,
		)
	}
	rc.Logger.Info("stage complete",
		"stage", r.Stage,
		"rows_in", r.RowsIn,
		"rows_valid", r.RowsValid,
		"rows_invalid", len(r.Invalid),
	)
}

// fail wraps err as a StageError for stage and file.
func fail(stage, file string, err error) error {
	return &StageError{Stage: stage, File: file, Err: err}
}

// load reads a stage input. A table whose rows are all invalid is recorded
// and then reported as a structural failure.
func (rc *RunContext) load(stage, path string, schema table.Schema, opts table.Options) (*table.Result, error) {
	res, err := table.Load(path, schema, opts)
	if err != nil {
		return nil, fail(stage, path, err)
	}
	if res.AllInvalid() {
		rc.record(reportFrom(stage, res))
		return nil, fail(stage, path, ErrNoValidRows)
	}
	return res, nil
}

// StageReport is the row accounting for one stage input table. RowsIn minus
// len(Invalid) always equals RowsValid.
type StageReport struct {
	Stage     string
	File      string
	RowsIn    int
	RowsValid int
	Invalid   []table.RowError
}

func reportFrom(stage string, res *table.Result) StageReport {
	invalid := res.Invalid()
	return StageReport{
		Stage:     stage,
		File:      res.Source,
		RowsIn:    res.Len(),
		RowsValid: res.Len() - len(invalid),
		Invalid:   invalid,
	}
}

// reject adds a row-level failure found after loading, such as a failed join.
func (r *StageReport) reject(e table.RowError) {
	r.Invalid = append(r.Invalid, e)
	r.RowsValid--
}
