package sitewatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/webserv/pkg/site"
)

type recordingTarget struct {
	mu      sync.Mutex
	configs []*site.Config
	got     chan *site.Config
}

func newRecordingTarget() *recordingTarget {
	return &recordingTarget{got: make(chan *site.Config, 8)}
}

func (r *recordingTarget) SetSite(cfg *site.Config) {
	r.mu.Lock()
	r.configs = append(r.configs, cfg)
	r.mu.Unlock()
	r.got <- cfg
}

func (r *recordingTarget) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.configs)
}

const siteV1 = "server {\n listen 127.0.0.1:8080;\n root /srv/a;\n}\n"
const siteV2 = "server {\n listen 127.0.0.1:8080;\n root /srv/b;\n}\n"

func writeSite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write site file: %v", err)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.conf")
	writeSite(t, path, siteV1)

	target := newRecordingTarget()
	w, err := New(path, target, Options{Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// give Run a moment to enter its loop
	time.Sleep(50 * time.Millisecond)
	writeSite(t, path, siteV2)

	select {
	case cfg := <-target.got:
		if cfg.Servers[0].Root != "/srv/b" {
			t.Errorf("expected reloaded root /srv/b, got %q", cfg.Servers[0].Root)
		}
		if cfg.Source != w.path {
			t.Errorf("expected source %q, got %q", w.path, cfg.Source)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("site file change was not picked up")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.conf")
	writeSite(t, path, siteV1)

	target := newRecordingTarget()
	w, err := New(path, target, Options{Debounce: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	writeSite(t, filepath.Join(dir, "other.conf"), siteV2)
	time.Sleep(200 * time.Millisecond)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if n := target.count(); n != 0 {
		t.Errorf("expected no reloads for unrelated files, got %d", n)
	}
}

func TestWatcher_RejectsInvalidSite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.conf")
	writeSite(t, path, siteV1)

	target := newRecordingTarget()
	var outcome error
	w, err := New(path, target, Options{OnReload: func(err error) { outcome = err }})
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.watcher.Close()

	writeSite(t, path, "server {\n listen 80;\n")
	w.Reload()

	if outcome == nil {
		t.Fatal("expected reload error for unclosed block")
	}
	if n := target.count(); n != 0 {
		t.Errorf("invalid site must not reach the target, got %d swaps", n)
	}

	writeSite(t, path, siteV2)
	w.Reload()
	if outcome != nil {
		t.Errorf("unexpected reload error: %v", outcome)
	}
	if n := target.count(); n != 1 {
		t.Errorf("expected one swap, got %d", n)
	}
}

func TestWatcher_RunTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.conf")
	writeSite(t, path, siteV1)

	w, err := New(path, newRecordingTarget(), Options{})
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)

	if err := w.Run(ctx); err != ErrAlreadyRunning {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
	cancel()
	<-done
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "site.conf"), newRecordingTarget(), Options{})
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestDebouncer_CoalescesBursts(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 call after a burst, got %d", n)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })
	time.Sleep(100 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Errorf("expected no calls after Stop, got %d", n)
	}
}
