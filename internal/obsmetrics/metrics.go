// Package obsmetrics exposes the Download Controller's Prometheus metrics,
// package-level promauto registrations the same way the query-module's
// download service instruments its proxy-download path.
package obsmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AccessAttemptsTotal counts access_drs_object calls by outcome:
	// "staged", "retry_later", "not_found", "error".
	AccessAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dcs_access_attempts_total",
		Help: "Total access_drs_object calls, labeled by outcome.",
	}, []string{"outcome"})

	// EnvelopeRequestsTotal counts serve_envelope calls by outcome.
	EnvelopeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dcs_envelope_requests_total",
		Help: "Total serve_envelope calls, labeled by outcome.",
	}, []string{"outcome"})

	// UnstagedDownloadsTotal counts unstaged_download_requested events published.
	UnstagedDownloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dcs_unstaged_downloads_total",
		Help: "Total unstaged_download_requested events published.",
	})

	// EKSSCallDuration observes EKSS HTTP call latency in seconds.
	EKSSCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dcs_ekss_call_duration_seconds",
		Help:    "Latency of calls to the Encryption Key Store Service.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation", "outcome"})

	// CleanupSweepsTotal counts outbox cleanup sweep runs by outcome.
	CleanupSweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dcs_cleanup_sweeps_total",
		Help: "Total outbox cleanup sweeps run, labeled by alias and outcome.",
	}, []string{"alias", "outcome"})

	// CleanupEvictionsTotal counts individual objects evicted by cleanup sweeps.
	CleanupEvictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dcs_cleanup_evictions_total",
		Help: "Total outbox objects evicted by the cleanup sweep.",
	}, []string{"alias"})

	// EventsPublishedTotal counts outbound events by type.
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dcs_events_published_total",
		Help: "Total events published to Kafka, labeled by event type.",
	}, []string{"event_type"})

	// EventsConsumedTotal counts inbound events by type and outcome.
	EventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dcs_events_consumed_total",
		Help: "Total events consumed from Kafka, labeled by event type and outcome.",
	}, []string{"event_type", "outcome"})
)

// ObserveEKSSCall records the latency of one EKSS call.
func ObserveEKSSCall(operation, outcome string, d time.Duration) {
	EKSSCallDuration.WithLabelValues(operation, outcome).Observe(d.Seconds())
}
