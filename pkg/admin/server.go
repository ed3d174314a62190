package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"mercator-hq/webserv/pkg/accesslog"
	"mercator-hq/webserv/pkg/config"
	"mercator-hq/webserv/pkg/telemetry/health"
)

// Options carries the components the admin routes expose. Nil fields
// leave their routes unregistered, except Health which is always served.
type Options struct {
	Metrics     http.Handler
	MetricsPath string
	Health      *health.Checker
	AccessLog   accesslog.Storage
	Version     health.VersionInfo
	Logger      *slog.Logger
}

// Server is the admin HTTP listener.
type Server struct {
	cfg        config.AdminConfig
	opts       Options
	logger     *slog.Logger
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// New builds the admin server; it does not listen until Start.
func New(cfg config.AdminConfig, opts Options) *Server {
	if opts.Health == nil {
		opts.Health = health.New(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "admin")
	}
	s := &Server{cfg: cfg, opts: opts, logger: opts.Logger}
	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if s.opts.Metrics != nil {
		path := s.opts.MetricsPath
		if path == "" {
			path = config.DefaultMetricsPath
		}
		mux.Handle("GET "+path, s.opts.Metrics)
	}
	s.opts.Health.Register(mux, s.cfg.LivenessPath, s.cfg.ReadinessPath)
	mux.Handle("/version", health.VersionHandler(s.opts.Version.Version, s.opts.Version.Commit, s.opts.Version.BuildTime))
	if s.opts.AccessLog != nil {
		auth := authMiddleware(newTokenValidator(s.cfg.AuthTokens), s.logger)
		mux.Handle("GET /accesslog", auth(accessLogHandler(s.opts.AccessLog)))
	}

	var h http.Handler = mux
	h = loggingMiddleware(s.logger)(h)
	h = recoveryMiddleware(s.logger)(h)
	return h
}

// Start binds the listen address and serves until ctx is done or Shutdown
// is called. It returns nil after a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	})
	defer stop()

	s.logger.Info("admin listener started", "address", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin server error: %w", err)
	}
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops the listener and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("admin shutdown error: %w", err)
	}
	return nil
}
