// Package metrics exposes Prometheus collectors for fetches and usage.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "copilot_usage"

// Fetch and usage metrics.
var (
	FetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Total number of usage fetches by result",
		},
		[]string{"result"}, // "ok" or an error kind
	)

	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Usage fetch duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	RefreshesRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_rejected_total",
			Help:      "Refresh requests dropped because a fetch was already in flight",
		},
	)

	CacheWriteErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_write_errors_total",
			Help:      "Failed cache writes",
		},
	)

	PremiumRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "premium_requests",
			Help:      "Premium requests for the current billing month",
		},
		[]string{"kind"}, // "used" / "limit" / "remaining"
	)

	SnapshotTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_timestamp_seconds",
			Help:      "Unix time of the snapshot currently shown",
		},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

var registerOnce sync.Once

// Register registers the collectors with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			FetchesTotal,
			FetchDuration,
			RefreshesRejectedTotal,
			CacheWriteErrorsTotal,
			PremiumRequests,
			SnapshotTimestamp,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}

// ObserveFetch records one completed fetch.
func ObserveFetch(result string, d time.Duration) {
	FetchesTotal.WithLabelValues(result).Inc()
	FetchDuration.Observe(d.Seconds())
}

// SetUsage publishes the figures of the snapshot being shown.
func SetUsage(used, limit, remaining float64, at time.Time) {
	PremiumRequests.WithLabelValues("used").Set(used)
	PremiumRequests.WithLabelValues("limit").Set(limit)
	PremiumRequests.WithLabelValues("remaining").Set(remaining)
	SnapshotTimestamp.Set(float64(at.Unix()))
}
