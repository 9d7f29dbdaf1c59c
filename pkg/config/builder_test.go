package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder with defaults pointing at a
// local upstream. The resulting configuration is valid.
func NewTestConfig() *ConfigBuilder {
	cfg := NewDefaultConfig()
	cfg.Upstream.BaseURL = "http://127.0.0.1:9999"
	return &ConfigBuilder{cfg: *cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return &b.cfg
}

// WithListenAddress sets the proxy listen address.
func (b *ConfigBuilder) WithListenAddress(addr string) *ConfigBuilder {
	b.cfg.Proxy.ListenAddress = addr
	return b
}

// WithReadTimeout sets the proxy read timeout.
func (b *ConfigBuilder) WithReadTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.Proxy.ReadTimeout = d
	return b
}

// WithRoutePrefix sets the proxy route prefix.
func (b *ConfigBuilder) WithRoutePrefix(prefix string) *ConfigBuilder {
	b.cfg.Proxy.RoutePrefix = prefix
	return b
}

// WithUpstream sets the upstream base URL.
func (b *ConfigBuilder) WithUpstream(baseURL string) *ConfigBuilder {
	b.cfg.Upstream.BaseURL = baseURL
	return b
}

// WithStoreLimits sets the default and max read limits.
func (b *ConfigBuilder) WithStoreLimits(def, max int) *ConfigBuilder {
	b.cfg.Store.DefaultLimit = def
	b.cfg.Store.MaxLimit = max
	return b
}

// WithClearSchedule sets the store clear schedule.
func (b *ConfigBuilder) WithClearSchedule(expr string) *ConfigBuilder {
	b.cfg.Store.ClearSchedule = expr
	return b
}

// WithLoggingLevel sets the logging level.
func (b *ConfigBuilder) WithLoggingLevel(level string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	return b
}

// WithTracingEnabled enables tracing with the given endpoint.
func (b *ConfigBuilder) WithTracingEnabled(enabled bool, endpoint string) *ConfigBuilder {
	b.cfg.Telemetry.Tracing.Enabled = enabled
	b.cfg.Telemetry.Tracing.Endpoint = endpoint
	return b
}
