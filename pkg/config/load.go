package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of NewDefaultConfig, so absent keys keep their
// defaults. The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention LOUPE_SECTION_FIELD (e.g., LOUPE_UPSTREAM_BASE_URL).
// Environment variables always take precedence over file-based configuration.
//
// When allowMissing is true and the file does not exist, the defaults are
// used as the file contents.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string, allowMissing bool) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		if !allowMissing || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = NewDefaultConfig()
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format LOUPE_SECTION_FIELD. Values that fail
// to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Proxy overrides
	envString("LOUPE_PROXY_LISTEN_ADDRESS", &cfg.Proxy.ListenAddress)
	envInt("LOUPE_PROXY_PORT_RETRIES", &cfg.Proxy.PortRetries)
	if val, ok := os.LookupEnv("LOUPE_PROXY_ROUTE_PREFIX"); ok {
		cfg.Proxy.RoutePrefix = val
	}
	envDuration("LOUPE_PROXY_READ_TIMEOUT", &cfg.Proxy.ReadTimeout)
	envDuration("LOUPE_PROXY_WRITE_TIMEOUT", &cfg.Proxy.WriteTimeout)
	envDuration("LOUPE_PROXY_IDLE_TIMEOUT", &cfg.Proxy.IdleTimeout)
	envDuration("LOUPE_PROXY_SHUTDOWN_TIMEOUT", &cfg.Proxy.ShutdownTimeout)
	envInt("LOUPE_PROXY_MAX_HEADER_BYTES", &cfg.Proxy.MaxHeaderBytes)
	envBool("LOUPE_PROXY_CORS_ENABLED", &cfg.Proxy.CORS.Enabled)
	if val := os.Getenv("LOUPE_PROXY_CORS_ALLOWED_ORIGINS"); val != "" {
		cfg.Proxy.CORS.AllowedOrigins = splitList(val)
	}

	// Upstream overrides
	envString("LOUPE_UPSTREAM_BASE_URL", &cfg.Upstream.BaseURL)
	envString("LOUPE_UPSTREAM_STREAM_MARKER", &cfg.Upstream.StreamMarker)

	// Store overrides
	envString("LOUPE_STORE_PATH", &cfg.Store.Path)
	envBool("LOUPE_STORE_RAW_BODY", &cfg.Store.RawBody)
	envBool("LOUPE_STORE_FSYNC", &cfg.Store.Fsync)
	envInt("LOUPE_STORE_DEFAULT_LIMIT", &cfg.Store.DefaultLimit)
	envInt("LOUPE_STORE_MAX_LIMIT", &cfg.Store.MaxLimit)
	envString("LOUPE_STORE_CLEAR_SCHEDULE", &cfg.Store.ClearSchedule)
	envBool("LOUPE_STORE_ARCHIVE_ON_CLEAR", &cfg.Store.ArchiveOnClear)
	envString("LOUPE_STORE_ARCHIVE_DIR", &cfg.Store.ArchiveDir)

	// Telemetry overrides
	envString("LOUPE_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("LOUPE_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("LOUPE_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("LOUPE_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("LOUPE_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("LOUPE_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv("LOUPE_TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}

	// Dashboard overrides
	envBool("LOUPE_DASHBOARD_ENABLED", &cfg.Dashboard.Enabled)
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
