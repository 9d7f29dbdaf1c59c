// Package metrics provides Prometheus metrics collection for Loupe.
//
// # Overview
//
// A Collector registers the proxy's metrics against a Prometheus registry
// and exposes small recording methods the relay, streamer, and request log
// call as they work. Every method is safe on a nil *Collector and on a
// collector whose configuration has metrics disabled.
//
// # Metrics
//
//   - requests_total{mode,status_class}
//   - upstream_duration_seconds{mode}
//   - streamed_bytes_total
//   - upstream_errors_total{kind}
//   - inflight_requests
//   - log_write_failures_total{kind}
//   - log_clears_total{trigger}
//
// All names carry the configured namespace and subsystem, "loupe_proxy_" by
// default.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	done := collector.TrackInflight()
//	defer done()
//	collector.RecordRequest("stream", 200, time.Since(start))
//
//	mux.Handle(collector.Path(), collector.Handler())
package metrics
