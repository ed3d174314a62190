package accesslog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/webserv/pkg/server"
)

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	// BufferSize is the capacity of the write queue.
	// Default: 1024
	BufferSize int

	// WriteTimeout bounds one Store call.
	// Default: 5s
	WriteTimeout time.Duration
}

// Recorder queues records and writes them from a single background
// goroutine. It implements server.RequestObserver.
type Recorder struct {
	storage Storage
	config  RecorderConfig
	logger  *slog.Logger

	queue chan *Record
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

var _ server.RequestObserver = (*Recorder)(nil)

// NewRecorder starts a recorder writing to storage.
func NewRecorder(storage Storage, config RecorderConfig) *Recorder {
	if config.BufferSize <= 0 {
		config.BufferSize = 1024
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "accesslog.recorder"),
		queue:   make(chan *Record, config.BufferSize),
		done:    make(chan struct{}),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Debug("access log recorder started",
		"buffer_size", config.BufferSize,
		"write_timeout", config.WriteTimeout,
	)
	return r
}

// ObserveRequest records ev. It never blocks the caller.
func (r *Recorder) ObserveRequest(ev *server.RequestEvent) {
	if err := r.Record(NewRecord(ev)); err == ErrQueueFull {
		r.logger.Warn("access log queue full, dropping record", "request_id", ev.ID)
	}
}

// Record enqueues rec.
func (r *Recorder) Record(rec *Record) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrRecorderClosed
	}
	select {
	case r.queue <- rec:
		return nil
	default:
		r.dropped.Add(1)
		return ErrQueueFull
	}
}

// Close stops accepting records, writes what is queued and returns.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Debug("access log recorder stopped",
		"written", r.written.Load(),
		"dropped", r.dropped.Load(),
		"failed", r.failed.Load(),
	)
	return nil
}

// Written returns the number of records stored.
func (r *Recorder) Written() int64 { return r.written.Load() }

// Dropped returns the number of records lost to a full queue.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

// Failed returns the number of records the backend rejected.
func (r *Recorder) Failed() int64 { return r.failed.Load() }

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case rec := <-r.queue:
			r.write(rec)

		case <-r.done:
			for {
				select {
				case rec := <-r.queue:
					r.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(rec *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, rec); err != nil {
		r.failed.Add(1)
		r.logger.Error("failed to store access record",
			"record_id", rec.ID,
			"request_id", rec.RequestID,
			"error", err,
		)
		return
	}
	r.written.Add(1)

	if d := time.Since(start); d > r.config.WriteTimeout/2 {
		r.logger.Warn("slow access log write",
			"record_id", rec.ID,
			"duration_ms", d.Milliseconds(),
		)
	}
}
