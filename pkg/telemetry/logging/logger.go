package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"mercator-hq/webserv/pkg/config"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config contains configuration for New.
type Config struct {
	// Level is the minimum level ("debug", "info", "warn", "error").
	Level string

	// Format is "json" or "text".
	Format string

	AddSource bool

	// Writer defaults to os.Stderr.
	Writer io.Writer

	// LevelVar, when set, receives Level and makes the logger's threshold
	// adjustable after construction.
	LevelVar *slog.LevelVar
}

// defaultLevel backs the logger installed by Setup.
var defaultLevel slog.LevelVar

// FromConfig maps the YAML logging section.
func FromConfig(c config.LoggingConfig) Config {
	return Config{Level: c.Level, Format: c.Format, AddSource: c.AddSource}
}

// New creates a logger for cfg.
func New(cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	if cfg.LevelVar != nil {
		cfg.LevelVar.Set(level)
		opts.Level = cfg.LevelVar
	}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	case FormatText, "":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	return slog.New(&contextHandler{Handler: h}), nil
}

// Setup is New followed by slog.SetDefault. The installed logger's level
// can later be changed with SetLevel.
func Setup(cfg Config) (*slog.Logger, error) {
	if cfg.LevelVar == nil {
		cfg.LevelVar = &defaultLevel
	}
	logger, err := New(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// SetLevel changes the threshold of the logger installed by Setup.
func SetLevel(s string) error {
	level, err := ParseLevel(s)
	if err != nil {
		return err
	}
	defaultLevel.Set(level)
	return nil
}

// ParseLevel parses a level name. The empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}
