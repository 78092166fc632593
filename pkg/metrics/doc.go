/*
Package metrics provides Prometheus metrics collection and exposition for the
coordination engine.

The metrics package defines and registers every coordinator metric using the
Prometheus client library, giving observability into domain-store size,
persistence round trips, schema alignment, debounce behaviour, orchestrator
handler latency, and worker cycle health. Metrics are exposed via an HTTP
endpoint for scraping by Prometheus servers.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Store (C1): raids/votes/guilds gauges      │          │
	│  │  Persistence (C2): flush duration, outcome  │          │
	│  │  Schema (C3): align duration, changes       │          │
	│  │  Debounce (C4): marks, collapsed refreshes  │          │
	│  │  Orchestrator (C6): handler latency, cache  │          │
	│  │  Workers (C7): cycle duration, errors       │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  │  - Handler: Handler() (promhttp.Handler)    │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Metric Registry:
  - Global Prometheus DefaultRegistry
  - All metrics registered once in package init()

Gauge Metrics:
  - Instant values: dmw_raids_total{status}, dmw_votes_total, dmw_guilds_total
  - Set by metrics.Collector sampling a domain-store snapshot on a ticker

Counter Metrics:
  - Monotonic totals: flushes, marks, refreshes, worker cycles/errors
  - Never decrease; rate() in PromQL gives throughput

Histogram Metrics:
  - Durations: persistence flush/load, schema align, handler, worker cycle
  - Use Timer to record elapsed time without hand-written time.Since math

Collector:
  - Periodically samples a Snapshot (raid counts by status, open votes,
    configured guilds) into the store gauges above. The snapshot function
    is supplied by the orchestrator, which alone may read the domain store
    safely; the metrics package has no dependency on pkg/store.

# Usage

	import "github.com/cuemby/dmwcoord/pkg/metrics"

	timer := metrics.NewTimer()
	err := engine.Flush(ctx, store)
	timer.ObserveDuration(metrics.PersistenceFlushDuration)

	http.Handle("/metrics", metrics.Handler())

# Metrics Catalog

Store Metrics:

dmw_raids_total{status}:
  - Type: Gauge
  - Labels: status (open, finalized, canceled)
  - Example: dmw_raids_total{status="open"} 7

dmw_votes_total:
  - Type: Gauge
  - Example: dmw_votes_total 142

dmw_guilds_total:
  - Type: Gauge
  - Example: dmw_guilds_total 12

Persistence Metrics:

dmw_persistence_flush_duration_seconds:
  - Type: Histogram

dmw_persistence_flushes_total{outcome}:
  - Type: Counter
  - Labels: outcome (success, error)

dmw_persistence_flush_skipped_total:
  - Type: Counter
  - Incremented when the fingerprint check short-circuits a no-op flush

dmw_persistence_load_duration_seconds:
  - Type: Histogram

Schema Guard Metrics:

dmw_schema_align_duration_seconds:
  - Type: Histogram

dmw_schema_align_changes_total:
  - Type: Counter

Debounce Metrics:

dmw_debounce_marks_total:
  - Type: Counter

dmw_debounce_refreshes_total:
  - Type: Counter
  - Should trend well below marks_total: that gap is the debounce's value

Orchestrator Metrics:

dmw_orchestrator_handler_duration_seconds{handler}:
  - Type: Histogram

dmw_orchestrator_artefact_suppressed_total{kind}:
  - Type: Counter
  - Incremented whenever a payload-hash match suppresses a repost

Worker Metrics:

dmw_worker_cycle_duration_seconds{worker}:
  - Type: Histogram

dmw_worker_cycles_total{worker}:
  - Type: Counter

dmw_worker_errors_total{worker}:
  - Type: Counter
  - Incremented when a cycle returns an error or panics; a sustained
    non-zero rate means a worker keeps failing and needs investigating

# Useful Queries

	Debounce effectiveness: rate(dmw_debounce_refreshes_total[5m]) / rate(dmw_debounce_marks_total[5m])
	Flush skip rate:        rate(dmw_persistence_flush_skipped_total[5m])
	p95 handler latency:    histogram_quantile(0.95, dmw_orchestrator_handler_duration_seconds_bucket)
	Worker error rate:      rate(dmw_worker_errors_total[5m])
*/
package metrics
