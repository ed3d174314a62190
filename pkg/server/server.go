package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sys/unix"

	"mercator-hq/webserv/pkg/handler"
	"mercator-hq/webserv/pkg/site"
)

const (
	// DefaultReadChunkSize is the most read from a socket per readiness event.
	DefaultReadChunkSize = 8192

	// DefaultMaxHeaderBytes bounds the header section of a request.
	DefaultMaxHeaderBytes = 64 << 10

	// DefaultWriteTimeout bounds the blocking response write.
	DefaultWriteTimeout = 30 * time.Second
)

// RequestEvent describes one answered request.
type RequestEvent struct {
	ID       string
	Time     time.Time
	Duration time.Duration

	Remote string
	Listen string
	Method string
	URI    string
	Host   string

	Status   int
	BytesIn  int
	BytesOut int

	ServerName string
	Location   string
	CGI        bool
}

// RequestObserver is notified after every response is written.
type RequestObserver interface {
	ObserveRequest(ev *RequestEvent)
}

// ConnectionObserver is notified of connection lifecycle changes.
type ConnectionObserver interface {
	ConnectionOpened()
	ConnectionClosed()
	AcceptFailed()
}

// Options configures a Server. Zero fields take defaults.
type Options struct {
	ReadChunkSize  int
	ListenBacklog  int
	MaxHeaderBytes int
	WriteTimeout   time.Duration

	RequestObservers   []RequestObserver
	ConnectionObserver ConnectionObserver
	Logger             *slog.Logger
}

// Server is the event-loop HTTP server.
type Server struct {
	opts    Options
	handler *handler.Handler
	logger  *slog.Logger
	tracer  trace.Tracer

	site atomic.Pointer[site.Config]

	// Loop-owned state.
	poller    poller
	listeners map[int]*listener
	conns     map[int]*ConnectionState
	chunk     []byte
	wakeR     int
	wakeW     int

	mu           sync.RWMutex
	isRunning    bool
	stopping     atomic.Bool
	active       atomic.Int64
	addrs        []site.ListenAddr
	ready        chan struct{}
	done         chan struct{}
	shutdownOnce sync.Once
}

// NewServer returns a server for cfg that answers requests with h.
func NewServer(cfg *site.Config, h *handler.Handler, opts Options) *Server {
	if opts.ReadChunkSize <= 0 {
		opts.ReadChunkSize = DefaultReadChunkSize
	}
	if opts.ListenBacklog <= 0 {
		opts.ListenBacklog = DefaultBacklog
	}
	if opts.MaxHeaderBytes <= 0 {
		opts.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "server")
	}

	s := &Server{
		opts:    opts,
		handler: h,
		logger:  logger,
		tracer:  otel.Tracer("mercator-hq/webserv/server"),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		wakeR:   -1,
		wakeW:   -1,
	}
	s.site.Store(cfg)
	return s
}

// Site returns the configuration snapshot in use.
func (s *Server) Site() *site.Config {
	return s.site.Load()
}

// SetSite replaces the configuration used for subsequent requests. Listen
// addresses that are not already bound are ignored with a warning.
func (s *Server) SetSite(cfg *site.Config) {
	if cfg == nil {
		return
	}
	s.site.Store(cfg)

	s.mu.RLock()
	bound := make(map[site.ListenAddr]bool, len(s.addrs))
	for _, a := range s.addrs {
		bound[a] = true
	}
	running := s.isRunning
	s.mu.RUnlock()

	if !running {
		return
	}
	for _, addr := range cfg.Listeners() {
		if !bound[addr] {
			s.logger.Warn("new listen address needs a restart", "address", addr.String())
		}
	}
}

// Ready is closed once every listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addrs returns the configured listen addresses after Ready.
func (s *Server) Addrs() []site.ListenAddr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]site.ListenAddr(nil), s.addrs...)
}

// BoundAddrs returns the addresses the kernel actually bound, which differ
// from Addrs for port 0.
func (s *Server) BoundAddrs() []site.ListenAddr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]site.ListenAddr, 0, len(s.listeners))
	for _, a := range s.addrs {
		for _, l := range s.listeners {
			if l.addr == a {
				out = append(out, l.bound)
				break
			}
		}
	}
	return out
}

// IsRunning reports whether the event loop is active.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// ActiveConnections returns the number of open client connections.
func (s *Server) ActiveConnections() int64 {
	return s.active.Load()
}

// Start binds every listen address of the current site and runs the event
// loop until ctx is cancelled or Shutdown is called. All descriptors are
// closed before it returns. A Server runs once; later calls return
// ErrServerClosed.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	select {
	case <-s.done:
		s.mu.Unlock()
		return ErrServerClosed
	default:
	}
	s.isRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		close(s.done)
	}()

	if err := s.setup(); err != nil {
		s.teardown()
		return err
	}

	stop := context.AfterFunc(ctx, s.wake)
	defer stop()

	close(s.ready)
	s.logger.Info("server started", "listeners", len(s.listeners))

	err := s.loop(ctx)
	s.teardown()
	s.logger.Info("server stopped")
	return err
}

// Shutdown stops the event loop and waits for Start to return or ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.logger.Info("initiating shutdown")
		s.wake()
	})
	if !s.IsRunning() {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("server shutdown: %w", ctx.Err())
	}
}

// wake interrupts the readiness wait.
func (s *Server) wake() {
	s.stopping.Store(true)
	s.mu.RLock()
	w := s.wakeW
	s.mu.RUnlock()
	if w >= 0 {
		unix.Write(w, []byte{0})
	}
}

func (s *Server) setup() error {
	cfg := s.site.Load()
	if cfg == nil || len(cfg.Servers) == 0 {
		return ErrNoListeners
	}

	p, err := newPoller()
	if err != nil {
		return fmt.Errorf("failed to create poller: %w", err)
	}
	s.poller = p
	s.listeners = make(map[int]*listener)
	s.conns = make(map[int]*ConnectionState)
	s.chunk = make([]byte, s.opts.ReadChunkSize)

	var pipe [2]int
	syscall.ForkLock.RLock()
	err = unix.Pipe(pipe[:])
	if err == nil {
		unix.CloseOnExec(pipe[0])
		unix.CloseOnExec(pipe[1])
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to create wake pipe: %w", err)
	}
	unix.SetNonblock(pipe[0], true)
	unix.SetNonblock(pipe[1], true)
	if err := s.poller.add(pipe[0]); err != nil {
		unix.Close(pipe[0])
		unix.Close(pipe[1])
		return fmt.Errorf("failed to watch wake pipe: %w", err)
	}

	s.mu.Lock()
	s.wakeR, s.wakeW = pipe[0], pipe[1]
	s.mu.Unlock()

	addrs := cfg.Listeners()
	for _, addr := range addrs {
		fd, err := RegisterListener(addr.Host, addr.Port, s.opts.ListenBacklog)
		if err != nil {
			return err
		}
		bound, err := boundAddr(fd)
		if err != nil {
			unix.Close(fd)
			return &ListenError{Addr: addr.String(), Op: "getsockname", Err: err}
		}
		if err := s.poller.add(fd); err != nil {
			unix.Close(fd)
			return &ListenError{Addr: addr.String(), Op: "register", Err: err}
		}
		s.mu.Lock()
		s.listeners[fd] = &listener{fd: fd, addr: addr, bound: bound}
		s.mu.Unlock()
		s.logger.Info("listening", "address", addr.String(), "bound", bound.String())
	}

	s.mu.Lock()
	s.addrs = addrs
	s.mu.Unlock()
	return nil
}

// teardown closes every descriptor the loop owns.
func (s *Server) teardown() {
	for fd, c := range s.conns {
		s.closeConnection(c)
		delete(s.conns, fd)
	}

	s.mu.Lock()
	for fd := range s.listeners {
		unix.Close(fd)
	}
	if s.wakeR >= 0 {
		unix.Close(s.wakeR)
		unix.Close(s.wakeW)
		s.wakeR, s.wakeW = -1, -1
	}
	s.mu.Unlock()

	if s.poller != nil {
		if err := s.poller.close(); err != nil {
			s.logger.Warn("failed to close poller", "error", err)
		}
	}
}

func (s *Server) loop(ctx context.Context) error {
	ready := make([]int, 0, maxReady)
	for {
		if s.stopping.Load() {
			return nil
		}
		var err error
		ready, err = s.poller.wait(ready[:0])
		if err != nil {
			return fmt.Errorf("readiness wait failed: %w", err)
		}

		for _, fd := range ready {
			switch {
			case fd == s.wakeR:
				drain(fd, s.chunk)
			case s.listeners[fd] != nil:
				s.acceptConnection(s.listeners[fd])
			default:
				if c, ok := s.conns[fd]; ok {
					s.onReadable(ctx, c)
				}
			}
		}
	}
}

const maxReady = 128

// drain empties a non-blocking descriptor.
func drain(fd int, buf []byte) {
	for {
		n, err := unix.Read(fd, buf)
		if n <= 0 || err != nil {
			return
		}
	}
}

var errWriteTimeout = errors.New("server: write timed out")
