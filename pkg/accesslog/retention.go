package accesslog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes records older than a retention window.
type Pruner struct {
	storage Storage
	days    int
	now     func() time.Time
	logger  *slog.Logger
}

// NewPruner returns a pruner keeping days of records. Zero days keeps
// everything.
func NewPruner(storage Storage, days int) *Pruner {
	return &Pruner{
		storage: storage,
		days:    days,
		now:     time.Now,
		logger:  slog.Default().With("component", "accesslog.retention"),
	}
}

// Cutoff returns the instant before which records are pruned.
func (p *Pruner) Cutoff() time.Time {
	return p.now().UTC().AddDate(0, 0, -p.days)
}

// Prune deletes expired records and returns how many were removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.days <= 0 {
		return 0, nil
	}
	cutoff := p.Cutoff()
	deleted, err := p.storage.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune access records before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	p.logger.Info("access log pruned", "deleted", deleted, "cutoff", cutoff)
	return deleted, nil
}

// Scheduler runs a Pruner on a cron schedule.
type Scheduler struct {
	pruner   *Pruner
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler returns a scheduler for pruner. schedule is a standard
// five-field cron expression or a descriptor such as "@daily".
func NewScheduler(pruner *Pruner, schedule string) *Scheduler {
	return &Scheduler{
		pruner:   pruner,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "accesslog.scheduler"),
	}
}

// Start registers the job and starts the cron runner. It stops when ctx is
// cancelled or Stop is called. An empty schedule does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" || s.pruner.days <= 0 {
		s.logger.Info("access log retention disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("access log retention scheduled", "schedule", s.schedule, "days", s.pruner.days)

	context.AfterFunc(ctx, s.Stop)
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	if _, err := s.pruner.Prune(ctx); err != nil {
		s.logger.Error("scheduled prune failed", "error", err)
	}
}

// Stop stops the cron runner and waits for a running prune.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled prune, or the zero time.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
