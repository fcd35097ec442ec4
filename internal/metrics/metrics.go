package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the portal backend.
type Metrics struct {
	// Feed refresh metrics
	FeedRefreshes      *prometheus.CounterVec
	FeedRefreshLatency prometheus.Histogram
	FeedEvents         prometheus.Gauge
	FeedRowsSkipped    prometheus.Gauge
	ServingStale       prometheus.Gauge

	// Query metrics
	Lookups     *prometheus.CounterVec
	HTTPLatency *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		FeedRefreshes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feed_refreshes_total",
				Help:      "Feed refresh attempts by outcome",
			},
			[]string{"outcome"},
		),
		FeedRefreshLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "feed_refresh_latency_seconds",
				Help:      "Feed fetch and parse latency",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
		),
		FeedEvents: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "feed_events",
				Help:      "Valid events in the current snapshot",
			},
		),
		FeedRowsSkipped: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "feed_rows_skipped",
				Help:      "Malformed or excluded rows in the current snapshot",
			},
		),
		ServingStale: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "serving_stale",
				Help:      "1 while the served snapshot predates a failed refresh",
			},
		),
		Lookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookups_total",
				Help:      "Referral code lookups by outcome",
			},
			[]string{"outcome"},
		),
		HTTPLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_latency_seconds",
				Help:      "HTTP request latency by path and status",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
			},
			[]string{"path", "status"},
		),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRefresh records one refresh attempt and the resulting snapshot
// shape on success.
func (m *Metrics) RecordRefresh(outcome string, latency time.Duration, events, skipped int) {
	m.FeedRefreshes.WithLabelValues(outcome).Inc()
	m.FeedRefreshLatency.Observe(latency.Seconds())
	if outcome == "success" {
		m.FeedEvents.Set(float64(events))
		m.FeedRowsSkipped.Set(float64(skipped))
	}
}

// RecordLookup records a referral code lookup.
func (m *Metrics) RecordLookup(outcome string) {
	m.Lookups.WithLabelValues(outcome).Inc()
}

// SetServingStale flips the staleness gauge.
func (m *Metrics) SetServingStale(stale bool) {
	if stale {
		m.ServingStale.Set(1)
	} else {
		m.ServingStale.Set(0)
	}
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(path string, status int, latency time.Duration) {
	m.HTTPLatency.WithLabelValues(path, strconv.Itoa(status)).Observe(latency.Seconds())
}
