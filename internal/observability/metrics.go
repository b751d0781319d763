package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	EventsAppendedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knocklog_events_appended_total",
		Help: "Total number of events appended to the log, by category.",
	}, []string{"category"})

	ResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knocklog_resets_total",
		Help: "Total number of reset-today operations.",
	})

	EventsPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knocklog_events_purged_total",
		Help: "Total number of events removed by reset-today.",
	})

	EventLogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "knocklog_event_log_size",
		Help: "Current number of events held in the in-memory log.",
	})

	StorageLoadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knocklog_storage_load_failures_total",
		Help: "Total number of loads that fell back to an empty log.",
	})

	StorageWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knocklog_storage_write_failures_total",
		Help: "Total number of persists that failed after all retries.",
	})

	StorageWriteRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knocklog_storage_write_retries_total",
		Help: "Total number of persist attempts retried after an error.",
	})

	StorageWriteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "knocklog_storage_write_seconds",
		Help:    "Time spent persisting the full event log, retries included.",
		Buckets: prometheus.DefBuckets,
	})

	SubscriberDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knocklog_subscriber_drops_total",
		Help: "Total number of change notifications dropped for slow subscribers.",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knocklog_http_requests_total",
		Help: "Total number of HTTP requests, by route and status code.",
	}, []string{"route", "status"})
)
