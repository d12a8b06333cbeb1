// Package metrics declares the Prometheus collectors of the job board.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobboard_http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		},
		[]string{"method", "route", "code"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobboard_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ServiceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobboard_service_errors_total",
			Help: "Errors returned to clients by error code",
		},
		[]string{"code"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobboard_events_published_total",
			Help: "Domain events written to Kafka",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobboard_events_dropped_total",
			Help: "Domain events dropped because the producer queue was full",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobboard_cache_lookups_total",
			Help: "Read-through cache lookups by result",
		},
		[]string{"result"},
	)

	ApplicationStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobboard_application_status_changes_total",
			Help: "Application status changes by target status",
		},
		[]string{"status"},
	)
)
