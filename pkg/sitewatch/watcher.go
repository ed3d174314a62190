// Package sitewatch reloads the site file when it changes on disk and hands
// the new snapshot to the running server.
//
// The parent directory is watched rather than the file itself, so editors
// that save by writing a temporary file and renaming it are picked up.
// A file that fails to parse or validate is logged and ignored; the server
// keeps serving the previous snapshot.
package sitewatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mercator-hq/webserv/pkg/site"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 100 * time.Millisecond

// ErrAlreadyRunning is returned by Run on a watcher that is already running.
var ErrAlreadyRunning = errors.New("site watcher already running")

// Target receives reloaded snapshots. *server.Server implements it.
type Target interface {
	SetSite(cfg *site.Config)
}

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger

	// OnReload, when set, is called after every reload attempt with its
	// outcome.
	OnReload func(err error)
}

// Watcher watches one site file.
type Watcher struct {
	path   string
	target Target
	opts   Options
	logger *slog.Logger

	watcher  *fsnotify.Watcher
	debounce *Debouncer

	mu      sync.Mutex
	running bool
}

// New creates a watcher for the site file at path. The file's directory must
// exist.
func New(path string, target Target, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve site file %q: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		target:   target,
		opts:     opts,
		logger:   logger.With("component", "sitewatch"),
		watcher:  fsw,
		debounce: NewDebouncer(opts.Debounce),
	}, nil
}

// Run processes file events until ctx is cancelled. It closes the
// underlying fsnotify watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.debounce.Stop()
		w.watcher.Close()
	}()

	w.logger.Info("watching site file",
		"path", w.path,
		"debounce_ms", w.opts.Debounce.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("site watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("site file event", "op", event.Op.String())
			w.debounce.Trigger(w.Reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("site watcher error", "error", err)
		}
	}
}

// Reload loads the site file and swaps it into the target. It is what a
// debounced file event runs; callers may also invoke it directly.
func (w *Watcher) Reload() {
	cfg, err := site.Load(w.path)
	if err != nil {
		w.logger.Warn("site reload rejected, keeping current configuration", "error", err)
	} else {
		w.target.SetSite(cfg)
		w.logger.Info("site reloaded", "servers", len(cfg.Servers))
	}
	if w.opts.OnReload != nil {
		w.opts.OnReload(err)
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
