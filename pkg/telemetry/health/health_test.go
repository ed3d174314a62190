package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/webserv/pkg/accesslog"
	"mercator-hq/webserv/pkg/accesslog/storage"
)

type fakeRunner struct{ running atomic.Bool }

func (f *fakeRunner) IsRunning() bool { return f.running.Load() }

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"default timeout", 0, DefaultCheckTimeout},
		{"negative timeout", -time.Second, DefaultCheckTimeout},
		{"custom timeout", 10 * time.Second, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.timeout).checkTimeout; got != tt.want {
				t.Errorf("checkTimeout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChecker_RegisterUnregister(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("b", func(context.Context) error { return nil })
	c.RegisterCheck("a", func(context.Context) error { return nil })
	c.RegisterCheck("a", func(context.Context) error { return nil })

	if got := c.Checks(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Checks() = %v", got)
	}
	c.UnregisterCheck("a")
	if got := c.Checks(); !slices.Equal(got, []string{"b"}) {
		t.Errorf("Checks() after unregister = %v", got)
	}
}

func TestChecker_CheckReadiness(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   string
	}{
		{
			name:   "no checks",
			checks: nil,
			want:   StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"a": func(context.Context) error { return nil },
				"b": func(context.Context) error { return nil },
			},
			want: StatusReady,
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"a": func(context.Context) error { return nil },
				"b": func(context.Context) error { return errors.New("down") },
			},
			want: StatusNotReady,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for name, fn := range tt.checks {
				c.RegisterCheck(name, fn)
			}
			report := c.CheckReadiness(context.Background())
			if report.Status != tt.want {
				t.Errorf("Status = %q, want %q", report.Status, tt.want)
			}
			if len(report.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(report.Checks), len(tt.checks))
			}
		})
	}
}

func TestChecker_CheckTimeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	block := make(chan struct{})
	defer close(block)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-block
		return nil
	})

	report := c.CheckReadiness(context.Background())
	res := report.Checks["slow"]
	if res.Status != StatusUnhealthy || res.Message != ErrCheckTimeout.Error() {
		t.Errorf("slow check = %+v", res)
	}
}

func TestServerRunning(t *testing.T) {
	r := &fakeRunner{}
	check := ServerRunning(r)

	if err := check(context.Background()); !errors.Is(err, ErrNotRunning) {
		t.Errorf("stopped server: err = %v", err)
	}
	r.running.Store(true)
	if err := check(context.Background()); err != nil {
		t.Errorf("running server: err = %v", err)
	}
}

func TestStorageReachable(t *testing.T) {
	store := storage.NewMemoryStorage()
	check := StorageReachable(store)

	if err := check(context.Background()); err != nil {
		t.Fatalf("open storage: %v", err)
	}
	_ = store.Close()
	if err := check(context.Background()); err == nil {
		t.Error("closed storage should fail the check")
	}
	var _ accesslog.Storage = store
}

func TestReadinessHandler(t *testing.T) {
	r := &fakeRunner{}
	c := New(time.Second)
	c.RegisterCheck("server", ServerRunning(r))

	serve := func(method string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(method, "/ready", nil))
		return rec
	}

	if rec := serve(http.MethodGet); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("not running: status = %d, want 503", rec.Code)
	}

	r.running.Store(true)
	rec := serve(http.MethodGet)
	if rec.Code != http.StatusOK {
		t.Fatalf("running: status = %d, want 200", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Checks["server"].Status != StatusOK {
		t.Errorf("server check = %+v", report.Checks["server"])
	}

	if rec := serve(http.MethodHead); rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("HEAD: status = %d, body = %d bytes", rec.Code, rec.Body.Len())
	}
	if rec := serve(http.MethodPost); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST: status = %d, want 405", rec.Code)
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	New(time.Second).Register(mux, "/live", "/ready")

	for _, p := range []string{"/live", "/ready"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", p, rec.Code)
		}
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("1.2.3", "abc", "now").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Version != "1.2.3" || info.GoVersion == "" {
		t.Errorf("info = %+v", info)
	}
}
