// Package metrics exposes Prometheus collectors for the redirect and tracking pipeline.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeFound     = "found"
	OutcomeNotFound  = "not_found"
	OutcomeError     = "error"
	OutcomePersisted = "persisted"
	OutcomeDropped   = "dropped"
	OutcomeFailed    = "failed"
	OutcomeSuccess   = "success"
	OutcomeSkipped   = "skipped"
	OutcomeCached    = "cached"
	OutcomeTimeout   = "timeout"
)

type Metrics struct {
	redirects    *prometheus.CounterVec
	tracking     *prometheus.CounterVec
	geoLookups   *prometheus.CounterVec
	geoLatency   prometheus.Histogram
	httpDuration *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		redirects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "utm",
			Name:      "redirects_total",
			Help:      "Redirect requests by outcome.",
		}, []string{"outcome"}),
		tracking: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "utm",
			Name:      "tracking_events_total",
			Help:      "Tracking events by outcome.",
		}, []string{"outcome"}),
		geoLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "utm",
			Name:      "geolocation_lookups_total",
			Help:      "Geolocation lookups by outcome.",
		}, []string{"outcome"}),
		geoLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "utm",
			Name:      "geolocation_duration_seconds",
			Help:      "Latency of geolocation provider calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 1.5, 2, 3},
		}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "utm",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request durations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) Redirect(outcome string) {
	if m == nil {
		return
	}
	m.redirects.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Tracking(outcome string) {
	if m == nil {
		return
	}
	m.tracking.WithLabelValues(outcome).Inc()
}

func (m *Metrics) GeoLookup(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.geoLookups.WithLabelValues(outcome).Inc()
	if took > 0 {
		m.geoLatency.Observe(took.Seconds())
	}
}

func (m *Metrics) HTTPRequest(method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(took.Seconds())
}
