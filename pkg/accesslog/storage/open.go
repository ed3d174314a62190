package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mercator-hq/webserv/pkg/accesslog"
	"mercator-hq/webserv/pkg/config"
)

var errClosed = errors.New("storage closed")

// Open creates the backend named by cfg.Backend.
func Open(cfg config.AccessLogConfig) (accesslog.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStorage(), nil
	case "sqlite", "sqlite-pure":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create access log directory %q: %w", dir, err)
			}
		}
		driver := DriverCGO
		if cfg.Backend == "sqlite-pure" {
			driver = DriverPure
		}
		return NewSQLiteStorage(SQLiteConfig{Path: cfg.Path, Driver: driver})
	default:
		return nil, fmt.Errorf("unknown access log backend %q", cfg.Backend)
	}
}
