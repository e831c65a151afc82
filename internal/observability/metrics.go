// Package observability provides Prometheus metrics for pipeline runs.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of one process. Metrics are
// registered on a private registry so that runs and tests do not share state.
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec

	// Normalization metrics
	EntriesProcessed    prometheus.Counter
	ParseFailures       prometheus.Counter
	UnknownPayloads     prometheus.Counter
	TradesNormalized    prometheus.Counter
	ForwardFilledValues prometheus.Counter

	// Suppression metrics
	CappedValues prometheus.Counter
	ReplacedRows prometheus.Counter

	// Metrics engine and ranking
	AccountsScored prometheus.Gauge
	DivisionGuards *prometheus.CounterVec
	FitR2          prometheus.Gauge
	FitMAE         prometheus.Gauge

	// Database metrics
	DBWriteDuration *prometheus.HistogramVec
	DBWriteErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trade_leaderboard"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Pipeline metrics
		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"status"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),

		// Normalization metrics
		EntriesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalizer",
			Name:      "entries_processed_total",
			Help:      "Total number of raw account entries processed",
		}),
		ParseFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalizer",
			Name:      "parse_failures_total",
			Help:      "Total number of trade histories that failed to decode",
		}),
		UnknownPayloads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalizer",
			Name:      "unknown_payloads_total",
			Help:      "Total number of trade histories of unknown shape",
		}),
		TradesNormalized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalizer",
			Name:      "trades_total",
			Help:      "Total number of trade records produced",
		}),
		ForwardFilledValues: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalizer",
			Name:      "forward_filled_values_total",
			Help:      "Total number of missing trade fields filled from a previous row",
		}),

		// Suppression metrics
		CappedValues: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outlier",
			Name:      "capped_values_total",
			Help:      "Total number of values moved to a percentile bound",
		}),
		ReplacedRows: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outlier",
			Name:      "replaced_rows_total",
			Help:      "Total number of rows replaced with column medians",
		}),

		// Metrics engine and ranking
		AccountsScored: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "accounts",
			Help:      "Number of accounts scored in the last run",
		}),
		DivisionGuards: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metrics",
			Name:      "division_guards_total",
			Help:      "Total number of zero-division guards hit by kind",
		}, []string{"kind"}),
		FitR2: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "fit_r2",
			Help:      "Coefficient of determination of the regression on the test split",
		}),
		FitMAE: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "fit_mae",
			Help:      "Mean absolute error of the regression on the test split",
		}),

		// Database metrics
		DBWriteDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "write_duration_seconds",
			Help:      "Database write duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "table"}),
		DBWriteErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "write_errors_total",
			Help:      "Total number of database write errors",
		}, []string{"database", "table"}),

		// Health metrics
		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Registry returns the registry all metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun records a finished pipeline run.
func (m *Metrics) RecordRun(status string, at time.Time) {
	m.PipelineRunsTotal.WithLabelValues(status).Inc()
	if status == StatusSuccess {
		m.LastSuccessfulRun.Set(float64(at.Unix()))
	}
}

// RecordDBWrite records a database write and its outcome.
func (m *Metrics) RecordDBWrite(database, table string, d time.Duration, err error) {
	m.DBWriteDuration.WithLabelValues(database, table).Observe(d.Seconds())
	if err != nil {
		m.DBWriteErrors.WithLabelValues(database, table).Inc()
	}
}

// WriteTextfile writes all metrics in the text exposition format, for
// node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)
