package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datahaven_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// PermissionChecks counts permission gate evaluations by outcome (allow|deny|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datahaven_permission_checks_total",
			Help: "Total number of permission gate checks",
		},
		[]string{"level", "result"},
	)

	// UpstreamRequests counts external API calls flushed per accounting scope.
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datahaven_upstream_requests_total",
			Help: "Total number of requests issued to upstream data sources",
		},
		[]string{"plugin"},
	)

	// AuthNegotiations counts upstream auth-scheme negotiations by outcome.
	AuthNegotiations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datahaven_auth_negotiations_total",
			Help: "Total number of upstream authentication scheme negotiations",
		},
		[]string{"method"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datahaven_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
