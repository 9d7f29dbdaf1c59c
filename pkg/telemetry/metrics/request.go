package metrics

import (
	"strconv"
	"time"

	"mercator-hq/loupe/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks relayed requests.
//
// Metrics:
//   - loupe_proxy_requests_total: relays by mode and status class
//   - loupe_proxy_upstream_duration_seconds: relay duration histogram
//   - loupe_proxy_streamed_bytes_total: bytes forwarded in stream mode
//   - loupe_proxy_upstream_errors_total: failed upstream exchanges by kind
//   - loupe_proxy_inflight_requests: relays currently in progress
type RequestMetrics struct {
	requestsTotal  *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	streamedBytes  prometheus.Counter
	upstreamErrors *prometheus.CounterVec
	inflight       prometheus.Gauge
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of relayed requests",
			},
			[]string{"mode", "status_class"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_duration_seconds",
				Help:      "Duration of relayed requests in seconds, including delivery",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"mode"},
		),

		streamedBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "streamed_bytes_total",
				Help:      "Total bytes forwarded to clients in stream mode",
			},
		),

		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_errors_total",
				Help:      "Total number of failed upstream exchanges",
			},
			[]string{"kind"},
		),

		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "inflight_requests",
				Help:      "Number of relays currently in progress",
			},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.duration,
		rm.streamedBytes,
		rm.upstreamErrors,
		rm.inflight,
	)

	return rm
}

// RecordRequest records a single relay.
func (rm *RequestMetrics) RecordRequest(mode string, status int, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(mode, StatusClass(status)).Inc()
	rm.duration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordStreamedBytes adds to the streamed byte counter.
func (rm *RequestMetrics) RecordStreamedBytes(n int) {
	rm.streamedBytes.Add(float64(n))
}

// RecordUpstreamError increments the upstream error counter for kind.
func (rm *RequestMetrics) RecordUpstreamError(kind string) {
	rm.upstreamErrors.WithLabelValues(kind).Inc()
}

// StatusClass buckets an HTTP status into "1xx" through "5xx". Statuses
// outside that range, including 0 for "no response", map to "none".
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "none"
	}
	return strconv.Itoa(status/100) + "xx"
}
