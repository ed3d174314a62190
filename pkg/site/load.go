package site

import (
	"fmt"
	"os"
)

// Load reads, parses and validates the site file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open site file %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse site file %q: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid site file %q: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// LoadOrDefault is Load with the built-in fallback. The returned Config is
// never nil; err is non-nil when the fallback was used.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return Default(), err
	}
	return cfg, nil
}
