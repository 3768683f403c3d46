// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rpggio/kinboard/internal/whatsapp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	RequestCount     *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	UploadsSaved     *prometheus.CounterVec
	UploadsSkipped   *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
	WhatsAppMessages *prometheus.CounterVec
	RateLimited      prometheus.Counter
}

// New registers every collector on a fresh registry, plus the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kinboard_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kinboard_http_request_duration_seconds",
				Help:    "Histogram of response durations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		UploadsSaved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kinboard_uploads_saved_total",
				Help: "Photos written to disk",
			},
			[]string{"kind"},
		),
		UploadsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kinboard_uploads_skipped_total",
				Help: "Uploaded files skipped for a missing name or rejected extension",
			},
			[]string{"kind"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kinboard_notifications_appended_total",
				Help: "Entries appended to the notification log",
			},
			[]string{"kind"},
		),
		WhatsAppMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kinboard_whatsapp_messages_total",
				Help: "WhatsApp acknowledgements by outcome",
			},
			[]string{"outcome"},
		),
		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kinboard_rate_limited_total",
				Help: "Submissions rejected by the per-client rate limiter",
			},
		),
	}
	m.registry.MustRegister(
		m.RequestCount,
		m.RequestDuration,
		m.UploadsSaved,
		m.UploadsSkipped,
		m.Notifications,
		m.WhatsAppMessages,
		m.RateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveUploads counts saved and skipped files for one submission.
func (m *Metrics) ObserveUploads(kind string, submitted, saved int) {
	if m == nil {
		return
	}
	m.UploadsSaved.WithLabelValues(kind).Add(float64(saved))
	if skipped := submitted - saved; skipped > 0 {
		m.UploadsSkipped.WithLabelValues(kind).Add(float64(skipped))
	}
}

// ObserveNotification counts one appended log entry.
func (m *Metrics) ObserveNotification(kind string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(kind).Inc()
}

// ObserveWhatsApp counts one send outcome.
func (m *Metrics) ObserveWhatsApp(delivered bool, detail string) {
	if m == nil {
		return
	}
	outcome := "failed"
	switch {
	case delivered:
		outcome = "delivered"
	case detail == whatsapp.DetailNotConfigured:
		outcome = "disabled"
	}
	m.WhatsAppMessages.WithLabelValues(outcome).Inc()
}
