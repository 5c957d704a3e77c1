package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "culvert_eval"

// Metrics holds the Prometheus counters, histograms, and gauges for the evaluation pipeline.
type Metrics struct {
	RowsRead    *prometheus.CounterVec // labels: stage
	RowsInvalid *prometheus.CounterVec // labels: stage
	RowsWritten *prometheus.CounterVec // labels: stage

	StageDuration      *prometheus.HistogramVec // labels: stage
	RegionRuns         *prometheus.CounterVec   // labels: outcome={success,failure}
	CrossingsEvaluated prometheus.Counter
	FlagsOneAssumed    prometheus.Counter
	SinkErrors         *prometheus.CounterVec // labels: sink
	BatchRunning       prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsRead,
		m.RowsInvalid,
		m.RowsWritten,
		m.StageDuration,
		m.RegionRuns,
		m.CrossingsEvaluated,
		m.FlagsOneAssumed,
		m.SinkErrors,
		m.BatchRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Data rows read from stage input tables.",
		}, []string{"stage"}),
		RowsInvalid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_invalid_total",
			Help:      "Data rows rejected by validation.",
		}, []string{"stage"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written to stage output tables.",
		}, []string{"stage"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of a single pipeline stage.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"stage"}),
		RegionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_runs_total",
			Help:      "Region pipeline runs by outcome.",
		}, []string{"outcome"}),
		CrossingsEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crossings_evaluated_total",
			Help:      "Crossings with a computed return period.",
		}),
		FlagsOneAssumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flags_one_assumed_total",
			Help:      "Culvert rows with Flags=1 read as a single culvert.",
		}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failures delivering a run summary to an output sink.",
		}, []string{"sink"}),
		BatchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_running",
			Help:      "1 while a batch is in progress, 0 otherwise.",
		}),
	}
}
