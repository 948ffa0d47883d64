// Package metrics exposes the ingestion and recompute counters.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"slot-history-backend/internal/history"
)

const metricPrefix = "slothist_"

// Metrics holds every collector the service reports.
type Metrics struct {
	registry *prometheus.Registry

	snapshotsRead     prometheus.Counter
	snapshotsInserted prometheus.Counter
	ingestErrors      *prometheus.CounterVec

	runs                *prometheus.CounterVec
	runDuration         prometheus.Histogram
	gridEntries         prometheus.Gauge
	finalStatuses       prometheus.Gauge
	activityEvents      *prometheus.CounterVec
	suppressedArtifacts prometheus.Counter
	keyViolations       *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		snapshotsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "snapshot_rows_read_total",
			Help: "Snapshot rows read from input files",
		}),
		snapshotsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "snapshot_rows_inserted_total",
			Help: "Snapshot rows that were new to the store",
		}),
		ingestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "ingest_errors_total",
			Help: "Input files rejected, by reason",
		}, []string{"reason"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "recompute_runs_total",
			Help: "Recompute runs by result",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "recompute_duration_seconds",
			Help:    "Duration of a full recompute",
			Buckets: prometheus.DefBuckets,
		}),
		gridEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "time_grid_entries",
			Help: "Time grid entries produced by the last run",
		}),
		finalStatuses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "final_statuses",
			Help: "Appointments with a final status in the last run",
		}),
		activityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "activity_events_total",
			Help: "Activity events kept after artifact filtering, by action",
		}, []string{"action"}),
		suppressedArtifacts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "suppressed_artifacts_total",
			Help: "Events dropped as first-posting artifacts",
		}),
		keyViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "key_violations_total",
			Help: "Rows sharing a key expected to be unique, by table",
		}, []string{"table"}),
	}
	m.registry.MustRegister(
		m.snapshotsRead,
		m.snapshotsInserted,
		m.ingestErrors,
		m.runs,
		m.runDuration,
		m.gridEntries,
		m.finalStatuses,
		m.activityEvents,
		m.suppressedArtifacts,
		m.keyViolations,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveIngest(read int, inserted int64) {
	m.snapshotsRead.Add(float64(read))
	m.snapshotsInserted.Add(float64(inserted))
}

func (m *Metrics) IngestError(reason string) {
	m.ingestErrors.WithLabelValues(reason).Inc()
}

// ObserveRun records a successful recompute.
func (m *Metrics) ObserveRun(res *history.Result, took time.Duration) {
	m.runs.WithLabelValues("success").Inc()
	m.runDuration.Observe(took.Seconds())
	m.gridEntries.Set(float64(len(res.TimeGrid)))
	m.finalStatuses.Set(float64(len(res.FinalStatuses)))
	for _, e := range res.Activity {
		m.activityEvents.WithLabelValues(string(e.Action)).Inc()
	}
	m.suppressedArtifacts.Add(float64(res.SuppressedArtifacts))
	m.ObserveViolations(res.Violations)
}

// ObserveViolations counts the surplus rows of each violation.
func (m *Metrics) ObserveViolations(vs []history.KeyUniquenessViolation) {
	for _, v := range vs {
		m.keyViolations.WithLabelValues(v.Table).Add(float64(v.Count - 1))
	}
}

func (m *Metrics) RunFailed(took time.Duration) {
	m.runs.WithLabelValues("error").Inc()
	m.runDuration.Observe(took.Seconds())
}
