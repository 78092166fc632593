package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Domain store metrics
	RaidsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dmw_raids_total",
			Help: "Total number of raids by status",
		},
		[]string{"status"},
	)

	VotesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dmw_votes_total",
			Help: "Total number of active votes across all raids",
		},
	)

	GuildsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dmw_guilds_total",
			Help: "Total number of tenants with configured settings",
		},
	)

	// Persistence (C2) metrics
	PersistenceFlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dmw_persistence_flush_duration_seconds",
			Help:    "Time taken for a persistence flush round in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PersistenceFlushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmw_persistence_flushes_total",
			Help: "Total number of persistence flushes by outcome",
		},
		[]string{"outcome"},
	)

	PersistenceFlushSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dmw_persistence_flush_skipped_total",
			Help: "Total number of flushes skipped due to unchanged fingerprint",
		},
	)

	PersistenceLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dmw_persistence_load_duration_seconds",
			Help:    "Time taken to load the full snapshot at boot in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Schema guard (C3) metrics
	SchemaAlignDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dmw_schema_align_duration_seconds",
			Help:    "Time taken for schema guard alignment at boot in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SchemaAlignChangesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dmw_schema_align_changes_total",
			Help: "Total number of DDL changes applied by the schema guard",
		},
	)

	// Debounce (C4) metrics
	DebounceMarksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dmw_debounce_marks_total",
			Help: "Total number of mark_dirty calls received",
		},
	)

	DebounceRefreshesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dmw_debounce_refreshes_total",
			Help: "Total number of collapsed update_fn invocations",
		},
	)

	// Orchestrator (C6) metrics
	OrchestratorHandlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dmw_orchestrator_handler_duration_seconds",
			Help:    "Time taken by an orchestrator write handler in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)

	OrchestratorArtefactSuppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmw_orchestrator_artefact_suppressed_total",
			Help: "Total number of artefact posts suppressed due to unchanged payload hash",
		},
		[]string{"kind"},
	)

	// Worker (C7) metrics
	WorkerCycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dmw_worker_cycle_duration_seconds",
			Help:    "Time taken for one worker cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"worker"},
	)

	WorkerCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmw_worker_cycles_total",
			Help: "Total number of worker cycles completed",
		},
		[]string{"worker"},
	)

	WorkerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmw_worker_errors_total",
			Help: "Total number of worker cycles that recovered from an error",
		},
		[]string{"worker"},
	)
)

func init() {
	prometheus.MustRegister(RaidsTotal)
	prometheus.MustRegister(VotesTotal)
	prometheus.MustRegister(GuildsTotal)

	prometheus.MustRegister(PersistenceFlushDuration)
	prometheus.MustRegister(PersistenceFlushesTotal)
	prometheus.MustRegister(PersistenceFlushSkippedTotal)
	prometheus.MustRegister(PersistenceLoadDuration)

	prometheus.MustRegister(SchemaAlignDuration)
	prometheus.MustRegister(SchemaAlignChangesTotal)

	prometheus.MustRegister(DebounceMarksTotal)
	prometheus.MustRegister(DebounceRefreshesTotal)

	prometheus.MustRegister(OrchestratorHandlerDuration)
	prometheus.MustRegister(OrchestratorArtefactSuppressedTotal)

	prometheus.MustRegister(WorkerCycleDuration)
	prometheus.MustRegister(WorkerCyclesTotal)
	prometheus.MustRegister(WorkerErrorsTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
