package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess     = "success"
	OutcomeDecodeError = "decode_error"
	OutcomeError       = "detection_error"
	OutcomeStale       = "stale"
	OutcomeRejected    = "rejected"
)

type IMetrics interface {
	ObserveUpload(outcome string)
	ObserveDetection(d time.Duration, objects int)
	SetActiveSessions(n int)
	Handler() http.Handler
}

type metrics struct {
	registry       *prometheus.Registry
	uploads        *prometheus.CounterVec
	latency        prometheus.Histogram
	objects        prometheus.Counter
	activeSessions prometheus.Gauge
}

func New() IMetrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hawkvision_uploads_total",
			Help: "Dropped images by final outcome",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hawkvision_detection_duration_seconds",
			Help:    "Round trip time of calls to the detection service",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		objects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hawkvision_detected_objects_total",
			Help: "Objects returned by the detection service",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hawkvision_active_sessions",
			Help: "Viewer sessions currently held in memory",
		}),
	}

	m.registry.MustRegister(m.uploads, m.latency, m.objects, m.activeSessions)

	return m
}

func (m *metrics) ObserveUpload(outcome string) {
	m.uploads.WithLabelValues(outcome).Inc()
}

func (m *metrics) ObserveDetection(d time.Duration, objects int) {
	m.latency.Observe(d.Seconds())
	m.objects.Add(float64(objects))
}

func (m *metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Handler returns the Prometheus HTTP handler
func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
