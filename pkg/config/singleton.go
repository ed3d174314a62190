package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	current atomic.Pointer[Config]

	initOnce sync.Once
	initPath string
	initErr  error
)

// Initialize loads the configuration at path with environment overrides and
// stores it as the process-wide configuration. Only the first call loads;
// later calls return the first call's error.
func Initialize(path string) error {
	initOnce.Do(func() {
		initPath = path
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		current.Store(cfg)
	})
	return initErr
}

// GetConfig returns the process-wide configuration, or nil before a
// successful Initialize. Callers must treat the result as read-only; Reload
// swaps in a new value instead of mutating it.
func GetConfig() *Config {
	return current.Load()
}

// SetConfig replaces the process-wide configuration.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// Reload loads the file given to Initialize again and swaps it in. On error
// the current configuration stays in place. It returns the previous and the
// new configuration so callers can act on what changed.
func Reload() (prev, next *Config, err error) {
	return ReloadConfig(initPath)
}

// ReloadConfig is Reload for an explicit path.
func ReloadConfig(path string) (prev, next *Config, err error) {
	next, err = LoadConfigWithEnvOverrides(path)
	if err != nil {
		return current.Load(), nil, fmt.Errorf("failed to reload configuration: %w", err)
	}
	return current.Swap(next), next, nil
}

// MustGetConfig is GetConfig that panics when nothing was initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
