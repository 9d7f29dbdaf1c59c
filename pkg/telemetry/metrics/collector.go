package metrics

import (
	"time"

	"mercator-hq/loupe/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every Prometheus metric the proxy exports. A nil *Collector
// is valid and records nothing, so components can take one unconditionally.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics *RequestMetrics
	storeMetrics   *StoreMetrics
}

// NewCollector creates a collector with the specified configuration and
// Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "loupe",
//		Subsystem: "proxy",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = append([]float64(nil), config.DefaultRequestDurationBuckets...)
	}

	return &Collector{
		config:         cfg,
		registry:       registry,
		requestMetrics: NewRequestMetrics(cfg, registry),
		storeMetrics:   NewStoreMetrics(cfg, registry),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordRequest records a completed relay.
//
// Parameters:
//   - mode: delivery mode ("stream" or "buffered")
//   - status: upstream HTTP status, or 0 when none was received
//   - duration: time from forwarding to the end of delivery
func (c *Collector) RecordRequest(mode string, status int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.RecordRequest(mode, status, duration)
}

// RecordStreamedBytes adds n to the count of bytes relayed in stream mode.
func (c *Collector) RecordStreamedBytes(n int) {
	if !c.enabled() || n <= 0 {
		return
	}
	c.requestMetrics.RecordStreamedBytes(n)
}

// RecordUpstreamError records a failed exchange with the upstream.
// kind is one of "unreachable" or "protocol".
func (c *Collector) RecordUpstreamError(kind string) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.RecordUpstreamError(kind)
}

// RecordLogWriteFailure records a record that could not be appended to the
// request log. kind is the record kind ("request" or "response").
func (c *Collector) RecordLogWriteFailure(kind string) {
	if !c.enabled() {
		return
	}
	c.storeMetrics.RecordWriteFailure(kind)
}

// RecordLogClear records a clear of the request log. trigger is "api",
// "schedule", or "cli".
func (c *Collector) RecordLogClear(trigger string) {
	if !c.enabled() {
		return
	}
	c.storeMetrics.RecordClear(trigger)
}

// TrackInflight increments the in-flight gauge and returns the function
// that decrements it.
//
// Example:
//
//	done := collector.TrackInflight()
//	defer done()
func (c *Collector) TrackInflight() func() {
	if !c.enabled() {
		return func() {}
	}
	c.requestMetrics.inflight.Inc()
	return c.requestMetrics.inflight.Dec
}

// Registry returns the Prometheus registry the collector registered with.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool {
	return c.enabled()
}

// Path returns the configured scrape path.
func (c *Collector) Path() string {
	if c == nil || c.config.Path == "" {
		return config.DefaultPrometheusPath
	}
	return c.config.Path
}
