package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/webserv/pkg/accesslog"
	"mercator-hq/webserv/pkg/accesslog/storage"
	"mercator-hq/webserv/pkg/cli"
)

const testSite = `
server {
    listen 127.0.0.1:0;
    server_name test.local;
    root ./www;

    location / {
        allow_methods GET HEAD;
    }

    location /cgi-bin {
        cgi_extension .sh;
    }
}
`

// setup writes a webserv.yaml and site file into a temp dir and points the
// global --config flag at it.
func setup(t *testing.T, site string) (dir string) {
	t.Helper()
	dir = t.TempDir()

	sitePath := filepath.Join(dir, "webserv.conf")
	if err := os.WriteFile(sitePath, []byte(site), 0o644); err != nil {
		t.Fatal(err)
	}
	yaml := fmt.Sprintf(`server:
  site_file: %s
access_log:
  enabled: true
  backend: sqlite-pure
  path: %s
  retention:
    days: 7
`, sitePath, filepath.Join(dir, "access.db"))
	cfgPath := filepath.Join(dir, "webserv.yaml")
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	prevCfg, prevVerbose := cfgFile, verbose
	cfgFile, verbose = cfgPath, false
	t.Cleanup(func() { cfgFile, verbose = prevCfg, prevVerbose })
	return dir
}

func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	return cmd, &out
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"run": false, "validate": false, "version": false, "accesslog": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if queryCmd.Parent() != accesslogCmd || pruneCmd.Parent() != accesslogCmd {
		t.Error("query and prune must live under accesslog")
	}
}

func TestVersionCommand(t *testing.T) {
	cmd, out := newTestCommand()
	versionFlags.output = "json"
	t.Cleanup(func() { versionFlags.output = "text" })

	if err := versionCmd.RunE(cmd, nil); err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if got["version"] != Version || got["platform"] == "" || got["go_version"] == "" {
		t.Errorf("version output = %v", got)
	}

	out.Reset()
	versionFlags.output = "text"
	if err := versionCmd.RunE(cmd, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "Webserv "+Version) {
		t.Errorf("text output = %q", out.String())
	}
}

func TestValidateCommand(t *testing.T) {
	setup(t, testSite)
	cmd, out := newTestCommand()

	validateFlags.output = "json"
	t.Cleanup(func() { validateFlags.output = "text" })

	if err := validateConfig(cmd, nil); err != nil {
		t.Fatalf("validateConfig() = %v", err)
	}
	var report validateReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(report.Servers) != 1 || report.Servers[0].ServerName != "test.local" {
		t.Fatalf("report = %+v", report)
	}
	if got := strings.Join(report.Servers[0].Locations, ","); got != "/,/cgi-bin" {
		t.Errorf("locations = %s", got)
	}
}

func TestValidateCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		site     string
		args     []string
		wantCode int
	}{
		{"unclosed block", "server {\n listen 80;\n", nil, cli.ExitConfig},
		{"missing explicit file", testSite, []string{"/nonexistent/site.conf"}, cli.ExitConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t, tt.site)
			cmd, _ := newTestCommand()
			err := validateConfig(cmd, tt.args)
			if err == nil {
				t.Fatal("expected an error")
			}
			if code := cli.ExitCode(err); code != tt.wantCode {
				t.Errorf("ExitCode = %d, want %d (%v)", code, tt.wantCode, err)
			}
		})
	}
}

func TestValidateCommand_BadYAML(t *testing.T) {
	dir := setup(t, testSite)
	if err := os.WriteFile(filepath.Join(dir, "webserv.yaml"), []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd, _ := newTestCommand()
	if err := validateConfig(cmd, nil); cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("err = %v, want config error", err)
	}
}

func TestRunDryRun(t *testing.T) {
	setup(t, testSite)
	cmd, out := newTestCommand()

	runFlags.dryRun = true
	t.Cleanup(func() { runFlags.dryRun = false })

	if err := runServer(cmd, nil); err != nil {
		t.Fatalf("runServer() = %v", err)
	}
	if !strings.Contains(out.String(), "Configuration valid (1 servers, 1 listeners)") {
		t.Errorf("output = %q", out.String())
	}
}

func seedAccessLog(t *testing.T, dir string) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(storage.SQLiteConfig{
		Path:   filepath.Join(dir, "access.db"),
		Driver: storage.DriverPure,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	now := time.Now().UTC()
	for i, r := range []struct {
		age    time.Duration
		method string
		status int
	}{
		{time.Minute, "GET", 200},
		{2 * time.Minute, "GET", 404},
		{3 * time.Minute, "POST", 500},
		{30 * 24 * time.Hour, "GET", 200},
	} {
		err := store.Store(context.Background(), &accesslog.Record{
			ID:     fmt.Sprintf("rec-%d", i),
			Time:   now.Add(-r.age),
			Method: r.method,
			URI:    "/",
			Status: r.status,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func resetQueryFlags() {
	queryFlags = struct {
		backend    string
		since      string
		until      string
		method     string
		status     int
		minStatus  int
		pathPrefix string
		serverName string
		limit      int
		offset     int
		format     string
		count      bool
	}{limit: accesslog.DefaultQueryLimit, format: accesslog.FormatText}
}

func TestAccessLogQuery(t *testing.T) {
	dir := setup(t, testSite)
	seedAccessLog(t, dir)
	t.Cleanup(resetQueryFlags)

	tests := []struct {
		name  string
		set   func()
		check func(t *testing.T, out string)
	}{
		{
			name: "count all",
			set:  func() { queryFlags.count = true },
			check: func(t *testing.T, out string) {
				if strings.TrimSpace(out) != "4" {
					t.Errorf("count = %q, want 4", out)
				}
			},
		},
		{
			name: "recent errors as json",
			set: func() {
				queryFlags.since = "1h"
				queryFlags.minStatus = 400
				queryFlags.format = accesslog.FormatJSON
			},
			check: func(t *testing.T, out string) {
				var recs []map[string]any
				if err := json.Unmarshal([]byte(out), &recs); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if len(recs) != 2 || recs[0]["id"] != "rec-1" || recs[1]["id"] != "rec-2" {
					t.Errorf("records = %v", recs)
				}
			},
		},
		{
			name: "method filter as csv",
			set: func() {
				queryFlags.method = "POST"
				queryFlags.format = accesslog.FormatCSV
			},
			check: func(t *testing.T, out string) {
				lines := strings.Split(strings.TrimSpace(out), "\n")
				if len(lines) != 2 || !strings.HasPrefix(lines[1], "rec-2,") {
					t.Errorf("csv = %q", out)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetQueryFlags()
			tt.set()
			cmd, out := newTestCommand()
			if err := queryAccessLog(cmd, nil); err != nil {
				t.Fatalf("queryAccessLog() = %v", err)
			}
			tt.check(t, out.String())
		})
	}
}

func TestAccessLogQuery_BadTime(t *testing.T) {
	setup(t, testSite)
	t.Cleanup(resetQueryFlags)
	resetQueryFlags()
	queryFlags.since = "last tuesday"

	cmd, _ := newTestCommand()
	if err := queryAccessLog(cmd, nil); err == nil {
		t.Error("expected error for unparsable --since")
	}
}

func TestAccessLogPrune(t *testing.T) {
	dir := setup(t, testSite)
	seedAccessLog(t, dir)
	t.Cleanup(func() { pruneFlags.dryRun, pruneFlags.days = false, 0 })

	cmd, out := newTestCommand()
	pruneFlags.dryRun = true
	if err := pruneAccessLog(cmd, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "1 records older than") {
		t.Errorf("dry run output = %q", out.String())
	}

	out.Reset()
	pruneFlags.dryRun = false
	if err := pruneAccessLog(cmd, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Deleted 1 records older than 7 days") {
		t.Errorf("prune output = %q", out.String())
	}

	store, err := storage.NewSQLiteStorage(storage.SQLiteConfig{Path: filepath.Join(dir, "access.db"), Driver: storage.DriverPure})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if n, _ := store.Count(context.Background(), &accesslog.Query{}); n != 3 {
		t.Errorf("remaining = %d, want 3", n)
	}
}

func TestParseTimeFlag(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"", time.Time{}, false},
		{"2h", now.Add(-2 * time.Hour), false},
		{"2026-02-01T00:00:00Z", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), false},
		{"yesterday", time.Time{}, true},
	}
	for _, tt := range tests {
		got, err := parseTimeFlag("since", tt.in, now)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseTimeFlag(%q) error = %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseTimeFlag(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
