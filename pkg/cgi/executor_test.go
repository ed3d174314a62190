package cgi

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/webserv/pkg/httpwire"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

func writeScript(t *testing.T, name, body string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), mode); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func postRequest(body string) *Request {
	return &Request{
		Method:     "POST",
		URI:        "/cgi-bin/script?x=1",
		Query:      "x=1",
		ScriptName: "/cgi-bin/script",
		ServerName: "localhost",
		ServerPort: 8080,
		Body:       []byte(body),
	}
}

func TestExecute_EchoRoundTrip(t *testing.T) {
	requireShell(t)
	script := writeScript(t, "echo.cgi", "#!/bin/sh\nhead -c \"$CONTENT_LENGTH\"\n", 0755)

	e := NewExecutor(Options{})
	resp := e.Run(context.Background(), script, postRequest("name=gopher&lang=go"), InterpreterTable{})

	if resp.Status != httpwire.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Status, resp.Body)
	}
	if string(resp.Body) != "name=gopher&lang=go" {
		t.Errorf("expected echoed body, got %q", resp.Body)
	}

	raw := string(e.Execute(context.Background(), script, postRequest("abc"), InterpreterTable{}))
	if !strings.Contains(raw, "Content-Type: text/html\r\n") {
		t.Errorf("expected default content type in %q", raw)
	}
	if !strings.Contains(raw, "Content-Length: 3\r\n") || !strings.HasSuffix(raw, "\r\n\r\nabc") {
		t.Errorf("unexpected raw response %q", raw)
	}
}

func TestExecute_LargeBodyDoesNotDeadlock(t *testing.T) {
	requireShell(t)
	script := writeScript(t, "cat.cgi", "#!/bin/sh\nprintf 'Content-Type: application/octet-stream\\r\\n\\r\\n'\ncat\n", 0755)

	body := bytes.Repeat([]byte("0123456789abcdef"), 1<<16)
	req := postRequest("")
	req.Body = body

	resp := NewExecutor(Options{Timeout: 10 * time.Second}).Run(context.Background(), script, req, InterpreterTable{})
	if resp.Status != httpwire.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Status)
	}
	if !bytes.Equal(resp.Body, body) {
		t.Errorf("expected %d echoed bytes, got %d", len(body), len(resp.Body))
	}
}

func TestExecute_Failures(t *testing.T) {
	requireShell(t)

	tests := []struct {
		name   string
		script func(t *testing.T) string
		want   int
	}{
		{
			name:   "missing script",
			script: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.cgi") },
			want:   httpwire.StatusNotFound,
		},
		{
			name: "not executable",
			script: func(t *testing.T) string {
				return writeScript(t, "plain.txt", "#!/bin/sh\necho hi\n", 0644)
			},
			want: httpwire.StatusForbidden,
		},
		{
			name: "not executable with interpreter",
			script: func(t *testing.T) string {
				return writeScript(t, "plain.sh", "echo hi\n", 0644)
			},
			want: httpwire.StatusForbidden,
		},
		{
			name:   "directory",
			script: func(t *testing.T) string { return t.TempDir() },
			want:   httpwire.StatusForbidden,
		},
		{
			name: "nonzero exit with output",
			script: func(t *testing.T) string {
				return writeScript(t, "fail.cgi", "#!/bin/sh\necho 'Content-Type: text/plain'\necho\necho partial\nexit 3\n", 0755)
			},
			want: httpwire.StatusInternalServerError,
		},
		{
			name: "missing interpreter",
			script: func(t *testing.T) string {
				return writeScript(t, "run.zz", "print('hi')\n", 0755)
			},
			want: httpwire.StatusInternalServerError,
		},
		{
			name: "bad status header",
			script: func(t *testing.T) string {
				return writeScript(t, "status.cgi", "#!/bin/sh\nprintf 'Status: teapot\\n\\nbody'\n", 0755)
			},
			want: httpwire.StatusInternalServerError,
		},
	}

	table := NewInterpreterTable(map[string]string{".zz": "/nonexistent/interpreter", ".sh": "/bin/sh"})
	e := NewExecutor(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := e.Run(context.Background(), tt.script(t), postRequest(""), table)
			if resp.Status != tt.want {
				t.Errorf("expected %d, got %d (%s)", tt.want, resp.Status, resp.Body)
			}
			if !strings.Contains(string(resp.Body), httpwire.StatusText(tt.want)) {
				t.Errorf("expected error page naming %q, got %q", httpwire.StatusText(tt.want), resp.Body)
			}
		})
	}
}

func TestExecute_StatusAndLocationHeaders(t *testing.T) {
	requireShell(t)
	e := NewExecutor(Options{})

	status := writeScript(t, "status.cgi", "#!/bin/sh\nprintf 'Status: 404 Not Found\\r\\nContent-Type: text/plain\\r\\nX-Script: yes\\r\\n\\r\\nnope'\n", 0755)
	resp := e.Run(context.Background(), status, postRequest(""), InterpreterTable{})
	if resp.Status != 404 || resp.Reason != "Not Found" {
		t.Errorf("expected 404 Not Found, got %d %q", resp.Status, resp.Reason)
	}
	if resp.Get("Content-Type") != "text/plain" || resp.Get("X-Script") != "yes" {
		t.Errorf("CGI headers not passed through: %v", resp.Headers)
	}
	if resp.Get("Status") != "" {
		t.Error("Status must not be forwarded as a header")
	}

	redirect := writeScript(t, "redirect.cgi", "#!/bin/sh\nprintf 'Location: /elsewhere\\n\\n'\n", 0755)
	resp = e.Run(context.Background(), redirect, postRequest(""), InterpreterTable{})
	if resp.Status != httpwire.StatusFound || resp.Get("Location") != "/elsewhere" {
		t.Errorf("expected 302 to /elsewhere, got %d %v", resp.Status, resp.Headers)
	}
}

func TestExecute_Environment(t *testing.T) {
	requireShell(t)
	script := writeScript(t, "env.cgi", `#!/bin/sh
printf 'Content-Type: text/plain\n\n'
printf '%s|%s|%s|%s|%s|%s|%s' "$REQUEST_METHOD" "$QUERY_STRING" "$GATEWAY_INTERFACE" "$SERVER_SOFTWARE" "$CONTENT_TYPE" "$HTTP_X_CUSTOM" "$REDIRECT_STATUS"
`, 0755)

	req := postRequest("a=b")
	req.Headers = map[string]string{"X-Custom": "42"}

	resp := NewExecutor(Options{}).Run(context.Background(), script, req, InterpreterTable{})
	want := "POST|x=1|CGI/1.1|Webserv/1.0|application/x-www-form-urlencoded|42|200"
	if string(resp.Body) != want {
		t.Errorf("expected %q, got %q", want, resp.Body)
	}
}

func TestExecute_InterpreterFromTable(t *testing.T) {
	requireShell(t)
	script := writeScript(t, "hello.sh", "printf 'Content-Type: text/plain\\n\\nhello from sh'\n", 0755)

	table := NewInterpreterTable(map[string]string{"sh": "/bin/sh"})
	resp := NewExecutor(Options{}).Run(context.Background(), script, postRequest(""), table)
	if resp.Status != httpwire.StatusOK || string(resp.Body) != "hello from sh" {
		t.Errorf("expected interpreter run, got %d %q", resp.Status, resp.Body)
	}
}

func TestExecute_Timeout(t *testing.T) {
	requireShell(t)
	script := writeScript(t, "slow.cgi", "#!/bin/sh\nexec sleep 10\n", 0755)

	start := time.Now()
	resp := NewExecutor(Options{Timeout: 200 * time.Millisecond}).Run(context.Background(), script, postRequest(""), InterpreterTable{})
	if resp.Status != httpwire.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", resp.Status)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []int
}

func (r *recordingObserver) ObserveCGI(ext string, status int, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, status)
}

func TestExecute_Observer(t *testing.T) {
	requireShell(t)
	obs := &recordingObserver{}
	e := NewExecutor(Options{Observer: obs})

	e.Run(context.Background(), filepath.Join(t.TempDir(), "missing.cgi"), postRequest(""), InterpreterTable{})
	if len(obs.calls) != 1 || obs.calls[0] != httpwire.StatusNotFound {
		t.Errorf("expected one 404 observation, got %v", obs.calls)
	}
}

func TestInterpreterTable(t *testing.T) {
	table := NewInterpreterTable(DefaultInterpreters())
	if interp, ok := table.ForScript("/srv/cgi-bin/app.PY"); !ok || interp != "/usr/bin/python3" {
		t.Errorf("expected python3 for .PY, got %q %v", interp, ok)
	}
	if interp, ok := table.Lookup("cgi"); !ok || interp != "" {
		t.Errorf("expected direct execution for .cgi, got %q %v", interp, ok)
	}
	if _, ok := table.Lookup(".exe"); ok {
		t.Error("unexpected interpreter for .exe")
	}
	if table.Len() != 6 || table.Extensions()[0] != ".cgi" {
		t.Errorf("unexpected extensions %v", table.Extensions())
	}
}
