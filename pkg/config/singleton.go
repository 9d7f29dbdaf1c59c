package config

import "sync"

var (
	current   *Config
	currentMu sync.RWMutex

	initOnce sync.Once
	initErr  error
)

// Initialize loads the file at path with LOUPE_* overrides and installs the
// result as the process-wide configuration. Only the first call loads; later
// calls return the first call's error. allowMissing tolerates an absent file,
// as the CLI does for its default path.
func Initialize(path string, allowMissing bool) error {
	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path, allowMissing)
		if err != nil {
			initErr = err
			return
		}
		SetConfig(cfg)
	})
	return initErr
}

// GetConfig returns the process-wide configuration, or nil before a
// successful Initialize or SetConfig.
func GetConfig() *Config {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

// SetConfig replaces the process-wide configuration. `loupe run` uses it to
// publish the configuration after flag overrides.
func SetConfig(cfg *Config) {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = cfg
}

// MustGetConfig is GetConfig for callers that run after Initialize.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("config: MustGetConfig called before Initialize")
	}
	return cfg
}
