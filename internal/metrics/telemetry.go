package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingest and AI Prometheus metrics.
var (
	EventsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitepulse",
			Name:      "events_ingested_total",
			Help:      "Total number of telemetry events ingested",
		},
		[]string{"domain", "status"}, // domain: devices/users, status: ok/invalid/error
	)

	MembersEvictedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitepulse",
			Name:      "members_evicted_total",
			Help:      "Total number of members trimmed from presence windows",
		},
		[]string{"domain"},
	)

	EvictionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitepulse",
			Name:      "eviction_failures_total",
			Help:      "Total number of best-effort evictions that failed",
		},
		[]string{"domain"},
	)

	PresenceQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sitepulse",
			Name:      "presence_query_duration_seconds",
			Help:      "Presence query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"domain", "scope"}, // scope: site/all
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitepulse",
			Name:      "ai_requests_total",
			Help:      "Total number of AI provider requests",
		},
		[]string{"kind", "model", "status"}, // kind: embed/chat
	)

	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sitepulse",
			Name:      "ai_request_duration_seconds",
			Help:      "AI provider request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind", "model"},
	)
)

var telemetryRegistered bool

// RegisterTelemetryMetrics registers ingest and AI metrics. Must be called once from main.
func RegisterTelemetryMetrics() {
	if telemetryRegistered {
		return
	}
	prometheus.MustRegister(EventsIngestedTotal)
	prometheus.MustRegister(MembersEvictedTotal)
	prometheus.MustRegister(EvictionFailuresTotal)
	prometheus.MustRegister(PresenceQueryDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	telemetryRegistered = true
}
