package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// SubmissionsTotal counts completed submissions by outcome kind
	// ("ok" or the failing error kind).
	SubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flora",
		Subsystem: "analyzer",
		Name:      "submissions_total",
		Help:      "Total number of analysis submissions processed, labeled by outcome.",
	}, []string{"outcome"})

	// SubmissionDurationSeconds is end-to-end time per submission.
	SubmissionDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "flora",
		Subsystem: "analyzer",
		Name:      "submission_duration_seconds",
		Help:      "End-to-end time to process an analysis submission.",
		// Inference dominates; buckets reach into tens of seconds.
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"outcome"})

	// ParseFallbackTotal counts replies that could not be parsed and were
	// absorbed into the fallback result.
	ParseFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "flora",
		Subsystem: "analyzer",
		Name:      "parse_fallback_total",
		Help:      "Total number of inference replies absorbed into the fallback analysis result.",
	})

	// HistoryEventsTotal counts history change events by origin ("local" or "remote").
	HistoryEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flora",
		Subsystem: "history",
		Name:      "events_total",
		Help:      "Total number of history change events published, labeled by origin.",
	}, []string{"origin"})

	// ConnectedClients is the current number of websocket clients.
	ConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "flora",
		Subsystem: "history",
		Name:      "connected_clients",
		Help:      "Current number of connected websocket history listeners.",
	})

	// RabbitMQConnected is 1 when the subscriber considers itself connected.
	RabbitMQConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "flora",
		Subsystem: "history",
		Name:      "rabbitmq_connected",
		Help:      "Whether the history RabbitMQ subscriber is currently connected (best-effort).",
	})

	// CacheHitsTotal counts history list cache lookups by result.
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flora",
		Subsystem: "history",
		Name:      "cache_lookups_total",
		Help:      "Total number of history list cache lookups, labeled by result.",
	}, []string{"result"})
)

// Register registers all collectors with the default registry. Safe to call
// more than once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			SubmissionsTotal,
			SubmissionDurationSeconds,
			ParseFallbackTotal,
			HistoryEventsTotal,
			ConnectedClients,
			RabbitMQConnected,
			CacheHitsTotal,
		)
	})
}
