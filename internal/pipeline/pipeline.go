package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/culvert-eval/internal/domain"
	"github.com/couchcryptid/culvert-eval/internal/observability"
	"github.com/couchcryptid/culvert-eval/internal/table"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Stage is one step of a region run. A returned error aborts the region.
type Stage interface {
	Name() string
	Run(ctx context.Context, rc *RunContext) error
}

// Sink receives the summary of every finished region run.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, run domain.RunSummary) error
}

// Settings are the model parameters shared by every region run.
type Settings struct {
	OutputRoot string
	Current    domain.Scenario
	Future     domain.Scenario
	Grouping   domain.GroupingMode
}

// RegionReport is the outcome of one region run. FlagsOneRows and Warnings
// refer to field-data row numbers.
type RegionReport struct {
	Summary      domain.RunSummary
	Stages       []StageReport
	FlagsOneRows []int
	Warnings     []string
}

// Pipeline runs the fixed stage sequence for one region at a time.
type Pipeline struct {
	settings Settings
	sinks    []Sink
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	newID    func() string
	last     atomic.Pointer[domain.RunSummary]
}

// New creates a Pipeline with the given settings, output sinks and observability.
func New(settings Settings, sinks []Sink, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		settings: settings,
		sinks:    sinks,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
		newID:    uuid.NewString,
	}
}

// CheckReadiness returns nil once at least one region run has finished.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.last.Load() == nil {
		return errors.New("no region run has finished yet")
	}
	return nil
}

// LastRun returns the summary of the most recently finished region run.
func (p *Pipeline) LastRun() (domain.RunSummary, bool) {
	s := p.last.Load()
	if s == nil {
		return domain.RunSummary{}, false
	}
	return *s, true
}

func (p *Pipeline) stages() []Stage {
	return []Stage{
		SortStage{},
		RunoffStage{Scenario: p.settings.Current, Output: CurrentRunoffFile},
		RunoffStage{Scenario: p.settings.Future, Output: FutureRunoffFile},
		GeometryStage{},
		CapacityStage{},
		ReturnPeriodStage{},
	}
}

// RunRegion executes every stage for region into a new timestamped output
// directory. Stage outputs are complete on disk before the next stage starts.
// The returned report is non-nil whenever the output directory was created.
func (p *Pipeline) RunRegion(ctx context.Context, region Region) (*RegionReport, error) {
	started := p.clock.Now()
	logger := p.logger.With("region", region.Tag)

	dir, err := p.makeRunDir(region.Tag)
	if err != nil {
		p.metrics.RegionRuns.WithLabelValues("failure").Inc()
		return nil, err
	}

	rc := &RunContext{
		RunID:     p.newID(),
		Region:    region,
		OutputDir: dir,
		Current:   p.settings.Current,
		Future:    p.settings.Future,
		Grouping:  p.settings.Grouping,
		Logger:    logger,
		Metrics:   p.metrics,
	}
	logger.Info("region run started", "run_id", rc.RunID, "output_dir", dir)

	runErr := p.runStages(ctx, rc)

	if err := writeValidationReport(rc.Path(ValidationFile), rc.Stages()); err != nil {
		logger.Error("write validation report failed", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	report := &RegionReport{
		Summary:      p.summarize(rc, started, runErr),
		Stages:       rc.Stages(),
		FlagsOneRows: rc.flagsOneRows,
		Warnings:     rc.warnings,
	}
	if runErr != nil {
		p.metrics.RegionRuns.WithLabelValues("failure").Inc()
		logger.Error("region run failed", "run_id", rc.RunID, "error", runErr)
	} else {
		p.metrics.RegionRuns.WithLabelValues("success").Inc()
		logger.Info("region run complete",
			"run_id", rc.RunID,
			"crossings", len(rc.results),
			"invalid_rows", report.Summary.InvalidRows,
		)
	}

	p.deliver(ctx, report.Summary, logger)
	summary := report.Summary
	p.last.Store(&summary)
	return report, runErr
}

func (p *Pipeline) runStages(ctx context.Context, rc *RunContext) error {
	for _, st := range p.stages() {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := p.clock.Now()
		err := st.Run(ctx, rc)
		p.metrics.StageDuration.WithLabelValues(st.Name()).Observe(p.clock.Since(start).Seconds())
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) summarize(rc *RunContext, started time.Time, runErr error) domain.RunSummary {
	s := domain.RunSummary{
		RunID:      rc.RunID,
		Region:     rc.Region.Tag,
		OutputDir:  rc.OutputDir,
		Status:     domain.RunSucceeded,
		StartedAt:  started,
		FinishedAt: p.clock.Now(),
		Results:    rc.results,
	}
	for _, st := range rc.Stages() {
		s.InvalidRows += len(st.Invalid)
	}
	if entries, err := os.ReadDir(rc.OutputDir); err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				s.Files = append(s.Files, e.Name())
			}
		}
	}
	if runErr != nil {
		s.Status = domain.RunFailed
		s.Error = runErr.Error()
		s.Results = nil
	}
	return s
}

// deliver hands the summary to every sink. Sink failures are logged and never
// change the run outcome.
func (p *Pipeline) deliver(ctx context.Context, run domain.RunSummary, logger *slog.Logger) {
	for _, s := range p.sinks {
		if err := s.Deliver(ctx, run); err != nil {
			p.metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
			logger.Warn("sink delivery failed", "sink", s.Name(), "run_id", run.RunID, "error", err)
		}
	}
}

// makeRunDir creates <root>/<region>/outputs/<YYYYMMDD_HHMMSS>. A run started
// in the same second as an earlier one gets a numeric suffix.
func (p *Pipeline) makeRunDir(region string) (string, error) {
	parent := filepath.Join(p.settings.OutputRoot, region, "outputs")
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	base := p.clock.Now().Format("20060102_150405")
	name := base
	for i := 1; ; i++ {
		dir := filepath.Join(parent, name)
		err := os.Mkdir(dir, 0o750)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("create output directory: %w", err)
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
}

func writeValidationReport(path string, stages []StageReport) error {
	var records [][]any
	for _, st := range stages {
		for _, e := range st.Invalid {
			records = append(records, []any{st.Stage, filepath.Base(st.File), e.Row, e.Line, e.Field, e.Value, e.Reason})
		}
	}
	return table.WriteFile(path, validationHeader, records)
}
