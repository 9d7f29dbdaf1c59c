// Package config provides configuration management for Loupe.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("loupe.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("loupe.yaml", false)
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention LOUPE_SECTION_FIELD.
// For example:
//
//   - LOUPE_UPSTREAM_BASE_URL overrides upstream.base_url
//   - LOUPE_PROXY_ROUTE_PREFIX overrides proxy.route_prefix
//   - LOUPE_STORE_RAW_BODY overrides store.raw_body
//
// # Configuration Precedence
//
//  1. Default values (NewDefaultConfig)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// The CLI initializes a process-wide instance once at startup:
//
//	if err := config.Initialize("loupe.yaml", true); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// Library code takes an explicit *Config or the section it needs instead.
package config
