package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	UsersRegisteredTotal  prometheus.Counter
	SubmissionsTotal      *prometheus.CounterVec
	PrescriptionsUploaded prometheus.Counter
	PrescriptionsDeleted  prometheus.Counter

	OutboxPublishedTotal prometheus.Counter
	OutboxPendingGauge   prometheus.Gauge
}

func NewCollector(serviceName string) *Collector {
	return &Collector{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		UsersRegisteredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "consultation",
			Name:      "users_registered_total",
			Help:      "Total user registrations.",
		}),

		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "consultation",
			Name:      "submissions_total",
			Help:      "Submission lifecycle events by kind (created, completed).",
		}, []string{"kind"}),

		PrescriptionsUploaded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "consultation",
			Name:      "prescriptions_uploaded_total",
			Help:      "Total prescription files uploaded.",
		}),

		PrescriptionsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "consultation",
			Name:      "prescriptions_deleted_total",
			Help:      "Total prescription files deleted.",
		}),

		OutboxPublishedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Total outbox events published to the broker.",
		}),

		OutboxPendingGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "outbox",
			Name:      "pending_events",
			Help:      "Outbox events waiting to be published. Alert if growing.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
