package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicketOperations counts ticket lifecycle operations by outcome.
	TicketOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinic_queue",
			Name:      "ticket_operations_total",
			Help:      "The total number of ticket operations",
		},
		[]string{"operation", "outcome"},
	)

	IssueRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinic_queue",
			Name:      "issue_retries_total",
			Help:      "The total number of ticket issues retried after a duplicate number",
		},
	)

	NotifyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinic_queue",
			Name:      "notify_failures_total",
			Help:      "The total number of events that could not be published",
		},
		[]string{"type"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinic_queue",
			Name:      "http_requests_total",
			Help:      "The total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clinic_queue",
			Name:      "http_request_duration_seconds",
			Help:      "The time spent serving HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinic_queue",
			Name:      "rate_limited_total",
			Help:      "The total number of requests rejected by the rate limiter",
		},
	)
)

const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// ObserveOperation records one ticket operation.
func ObserveOperation(operation, outcome string) {
	TicketOperations.WithLabelValues(operation, outcome).Inc()
}
