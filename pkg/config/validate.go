package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "proxy.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateUpstream(&cfg.Upstream)...)
	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateProxy validates listener configuration.
func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "proxy.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "proxy.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.ListenAddress, err),
		})
	}

	if cfg.PortRetries < 0 || cfg.PortRetries > 100 {
		errs = append(errs, FieldError{
			Field:   "proxy.port_retries",
			Message: "port retries must be between 0 and 100",
		})
	}

	if cfg.RoutePrefix != "" {
		if !strings.HasPrefix(cfg.RoutePrefix, "/") {
			errs = append(errs, FieldError{
				Field:   "proxy.route_prefix",
				Message: "route prefix must start with '/'",
			})
		}
		if strings.HasSuffix(cfg.RoutePrefix, "/") {
			errs = append(errs, FieldError{
				Field:   "proxy.route_prefix",
				Message: "route prefix must not end with '/'",
			})
		}
		if cfg.RoutePrefix == "/api" || strings.HasPrefix(cfg.RoutePrefix, "/api/") {
			errs = append(errs, FieldError{
				Field:   "proxy.route_prefix",
				Message: "route prefix must not shadow the /api endpoints",
			})
		}
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "proxy.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	if cfg.CORS.MaxAge < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.cors.max_age",
			Message: "max age must be non-negative",
		})
	}

	return errs
}

// validateUpstream validates the upstream target.
func validateUpstream(cfg *UpstreamConfig) []FieldError {
	var errs []FieldError

	if cfg.BaseURL == "" {
		return append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: "base URL is required",
		})
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: fmt.Sprintf("invalid base URL: %v", err),
		})
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: fmt.Sprintf("base URL scheme must be http or https, got %q", u.Scheme),
		})
	}
	if u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: "base URL must include a host",
		})
	}
	if u.RawQuery != "" || u.Fragment != "" {
		errs = append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: "base URL must not carry a query or fragment",
		})
	}

	return errs
}

// validateStore validates the request log configuration.
func validateStore(cfg *StoreConfig) []FieldError {
	var errs []FieldError

	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "store.path",
			Message: "store path is required",
		})
	}

	if cfg.DefaultLimit <= 0 {
		errs = append(errs, FieldError{
			Field:   "store.default_limit",
			Message: "default limit must be positive",
		})
	}
	if cfg.MaxLimit <= 0 {
		errs = append(errs, FieldError{
			Field:   "store.max_limit",
			Message: "max limit must be positive",
		})
	}
	if cfg.DefaultLimit > 0 && cfg.MaxLimit > 0 && cfg.DefaultLimit > cfg.MaxLimit {
		errs = append(errs, FieldError{
			Field:   "store.default_limit",
			Message: fmt.Sprintf("default limit (%d) cannot exceed max limit (%d)", cfg.DefaultLimit, cfg.MaxLimit),
		})
	}

	if cfg.ClearSchedule != "" {
		if _, err := cron.ParseStandard(cfg.ClearSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "store.clear_schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.ClearSchedule, err),
			})
		}
	}

	if cfg.ArchiveOnClear && cfg.ArchiveDir == "" {
		errs = append(errs, FieldError{
			Field:   "store.archive_dir",
			Message: "archive directory is required when archive_on_clear is enabled",
		})
	}

	return errs
}

// validateTelemetry validates logging, metrics, and tracing configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Path == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path is required when metrics are enabled",
			})
		} else if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with '/'",
			})
		}
	}
	for i, b := range cfg.Metrics.RequestDurationBuckets {
		if b <= 0 || (i > 0 && b <= cfg.Metrics.RequestDurationBuckets[i-1]) {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.request_duration_buckets",
				Message: "buckets must be positive and strictly increasing",
			})
			break
		}
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}
