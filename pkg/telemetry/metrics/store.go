package metrics

import (
	"mercator-hq/loupe/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics tracks the request log.
//
// Metrics:
//   - loupe_proxy_log_write_failures_total: records that failed to append
//   - loupe_proxy_log_clears_total: log clears by trigger
type StoreMetrics struct {
	writeFailures *prometheus.CounterVec
	clears        *prometheus.CounterVec
}

// NewStoreMetrics creates and registers request log metrics.
func NewStoreMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *StoreMetrics {
	sm := &StoreMetrics{
		writeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "log_write_failures_total",
				Help:      "Total number of records that could not be appended to the request log",
			},
			[]string{"kind"},
		),
		clears: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "log_clears_total",
				Help:      "Total number of request log clears",
			},
			[]string{"trigger"},
		),
	}

	registry.MustRegister(sm.writeFailures, sm.clears)

	return sm
}

// RecordWriteFailure increments the write failure counter for kind.
func (sm *StoreMetrics) RecordWriteFailure(kind string) {
	sm.writeFailures.WithLabelValues(kind).Inc()
}

// RecordClear increments the clear counter for trigger.
func (sm *StoreMetrics) RecordClear(trigger string) {
	sm.clears.WithLabelValues(trigger).Inc()
}
