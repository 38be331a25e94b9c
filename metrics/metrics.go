// Package metrics holds the Prometheus collectors. They register with the
// default registry once, at package init.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ScreenLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "screen_load_duration_seconds",
			Help:    "Time to fetch and enrich a screen",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"screen", "outcome"},
	)
	ScreenMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screen_mutations_total",
			Help: "Screen mutations by outcome",
		},
		[]string{"screen", "outcome"},
	)
	BulkRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screen_bulk_rows_total",
			Help: "Rows written by bulk operations, by outcome",
		},
		[]string{"screen", "outcome"},
	)
	EnrichmentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screen_enrichment_failures_total",
			Help: "Auxiliary and stats fetches that fell back to empty values",
		},
		[]string{"screen"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Email and SMS dispatches by template and status",
		},
		[]string{"template", "status"},
	)
)

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordHTTP records one finished request. path is the route pattern.
func RecordHTTP(method, path string, status int, d time.Duration) {
	s := strconv.Itoa(status)
	HTTPRequestsTotal.WithLabelValues(method, path, s).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, s).Observe(d.Seconds())
}

func RecordScreenLoad(screen string, ok bool, d time.Duration) {
	ScreenLoadDuration.WithLabelValues(screen, outcome(ok)).Observe(d.Seconds())
}

func RecordMutation(screen string, ok bool) {
	ScreenMutations.WithLabelValues(screen, outcome(ok)).Inc()
}

func RecordBulkRow(screen string, ok bool) {
	BulkRows.WithLabelValues(screen, outcome(ok)).Inc()
}

func RecordEnrichmentFailure(screen string) {
	EnrichmentFailures.WithLabelValues(screen).Inc()
}

func RecordNotification(template, status string) {
	NotificationsSent.WithLabelValues(template, status).Inc()
}
