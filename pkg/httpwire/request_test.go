package httpwire

import (
	"errors"
	"testing"
)

func TestParseRequest(t *testing.T) {
	raw := "GET /index.html?q=1 HTTP/1.1\r\n" +
		"Host: example.local:8080\r\n" +
		"X-Dup: first\r\n" +
		"not a header line\r\n" +
		"X-Dup: second\r\n" +
		"X-Spaced:    value\r\n" +
		"\r\n"

	req, err := ParseRequest([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Method != MethodGET || req.RawMethod != "GET" {
		t.Errorf("expected GET, got %v (%q)", req.Method, req.RawMethod)
	}
	if req.URI != "/index.html?q=1" || req.Path() != "/index.html" || req.Query() != "q=1" {
		t.Errorf("unexpected target %q path=%q query=%q", req.URI, req.Path(), req.Query())
	}
	if req.Version != "HTTP/1.1" {
		t.Errorf("unexpected version %q", req.Version)
	}
	if req.Headers["X-Dup"] != "second" {
		t.Errorf("expected last duplicate to win, got %q", req.Headers["X-Dup"])
	}
	if req.Headers["X-Spaced"] != "value" {
		t.Errorf("expected leading spaces trimmed, got %q", req.Headers["X-Spaced"])
	}
	if len(req.Headers) != 3 {
		t.Errorf("expected colonless line ignored, got %v", req.Headers)
	}
	if req.Host() != "example.local:8080" {
		t.Errorf("unexpected host %q", req.Host())
	}
	if req.Body != nil {
		t.Errorf("expected no body, got %q", req.Body)
	}
}

func TestParseRequest_UnknownMethodKept(t *testing.T) {
	req, err := ParseRequest([]byte("BREW /pot HTTP/1.1\r\n\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Method != MethodUnknown || req.RawMethod != "BREW" {
		t.Errorf("expected UNKNOWN with raw BREW, got %v %q", req.Method, req.RawMethod)
	}
}

func TestParseRequest_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"two tokens", "GET /\r\n\r\n", ErrMalformedRequestLine},
		{"one token", "GET\r\n\r\n", ErrMalformedRequestLine},
		{"empty", "\r\n\r\n", ErrEmptyRequest},
		{"bad length", "POST / HTTP/1.1\r\nContent-Length: x\r\n\r\n", ErrInvalidContentLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest([]byte(tt.input))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParseRequest_BodyDoesNotAliasInput(t *testing.T) {
	raw := []byte("POST / HTTP/1.1\r\nContent-Length: 3\r\n\r\nabc")
	req, err := ParseRequest(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw[len(raw)-1] = 'z'
	if string(req.Body) != "abc" {
		t.Errorf("body changed with input buffer: %q", req.Body)
	}
}

func TestParseRequest_ShortBody(t *testing.T) {
	req, err := ParseRequest([]byte("POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Complete {
		t.Error("expected incomplete request")
	}
	if string(req.Body) != "abc" {
		t.Errorf("unexpected body %q", req.Body)
	}
}

func TestParseMethod(t *testing.T) {
	for _, m := range KnownMethods {
		if got := ParseMethod(m.String()); got != m {
			t.Errorf("ParseMethod(%q) = %v", m.String(), got)
		}
	}
	if ParseMethod("get") != MethodUnknown {
		t.Error("method tokens are case sensitive")
	}
}
