package config

import "time"

// Config is the root configuration structure for Loupe.
// It contains all configuration sections for the listener, the upstream
// target, the request log store, telemetry, and the dashboard.
type Config struct {
	// Proxy contains HTTP listener configuration including listen address,
	// route prefix, timeouts, and CORS.
	Proxy ProxyConfig `yaml:"proxy"`

	// Upstream describes the generative-AI API that requests are relayed to.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Store contains configuration for the NDJSON request log.
	Store StoreConfig `yaml:"store"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Dashboard controls the embedded log viewer page.
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// ProxyConfig contains configuration for the HTTP listener.
type ProxyConfig struct {
	// ListenAddress is the address and port for the proxy to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8787", "0.0.0.0:8787").
	// Default: "127.0.0.1:8787"
	ListenAddress string `yaml:"listen_address"`

	// PortRetries is how many successive ports are tried when the
	// configured port is already in use. Zero disables retrying.
	// Default: 10
	PortRetries int `yaml:"port_retries"`

	// RoutePrefix is the path prefix the proxy is mounted under. The prefix
	// is stripped before the request is forwarded upstream. An empty prefix
	// mounts the proxy at the root.
	// Example: "/gemini"
	// Default: ""
	RoutePrefix string `yaml:"route_prefix"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. A zero or negative value means no timeout.
	// Default: 60s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Streamed completions can run for minutes, so it is off
	// unless set.
	// Default: 0 (disabled)
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled. If IdleTimeout is zero, ReadTimeout is used.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values, including the
	// request line. It does not limit the size of the request body.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS is enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins for CORS requests.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods for CORS requests.
	// Default: ["GET", "POST", "DELETE", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers for CORS requests.
	// Default: ["Authorization", "Content-Type", "X-Goog-Api-Key"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers that are exposed to the client.
	// Default: ["X-Correlation-ID"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the maximum age (in seconds) for preflight request cache.
	// Default: 3600 (1 hour)
	MaxAge int `yaml:"max_age"`

	// AllowCredentials controls whether credentials are allowed in CORS requests.
	// Default: false
	AllowCredentials bool `yaml:"allow_credentials"`
}

// UpstreamConfig describes the API requests are forwarded to.
type UpstreamConfig struct {
	// BaseURL is the absolute http(s) URL every forwarded path is appended
	// to. Trailing slashes are ignored.
	// Default: "https://generativelanguage.googleapis.com"
	BaseURL string `yaml:"base_url"`

	// StreamMarker is a route fragment that, matched case-insensitively,
	// marks a request as streaming even when the upstream content type
	// does not say so.
	// Default: ":streamGenerateContent"
	StreamMarker string `yaml:"stream_marker"`
}

// StoreConfig contains configuration for the append-only request log.
type StoreConfig struct {
	// Path is the NDJSON file records are appended to. Parent directories
	// are created on open.
	// Default: "logs/requests.ndjson"
	Path string `yaml:"path"`

	// RawBody controls whether response records carry the full upstream
	// body. When false only the extracted content and tool calls are kept.
	// Default: true
	RawBody bool `yaml:"raw_body"`

	// Fsync forces an fsync after every appended record.
	// Default: false
	Fsync bool `yaml:"fsync"`

	// DefaultLimit is the number of records returned by a read when the
	// caller does not ask for a positive limit.
	// Default: 200
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit caps the number of records a single read returns.
	// Default: 1000
	MaxLimit int `yaml:"max_limit"`

	// ClearSchedule is an optional cron expression (standard five-field
	// syntax) on which the log is cleared automatically.
	// Example: "0 4 * * *"
	// Default: "" (disabled)
	ClearSchedule string `yaml:"clear_schedule"`

	// ArchiveOnClear compresses the current log into ArchiveDir before
	// every clear.
	// Default: false
	ArchiveOnClear bool `yaml:"archive_on_clear"`

	// ArchiveDir is the directory zstd archives are written to.
	// Default: "logs/archive"
	ArchiveDir string `yaml:"archive_dir"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "loupe"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "proxy"
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets for upstream duration (seconds).
	// Default: [0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 120.0]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is the service name in traces.
	// Default: "loupe"
	ServiceName string `yaml:"service_name"`
}

// DashboardConfig controls the embedded log viewer.
type DashboardConfig struct {
	// Enabled serves the dashboard page at "/".
	// Default: true
	Enabled bool `yaml:"enabled"`
}
