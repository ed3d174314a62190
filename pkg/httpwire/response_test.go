package httpwire

import (
	"strings"
	"testing"
)

func TestResponse_Bytes(t *testing.T) {
	r := NewResponse(StatusOK, "text/plain", []byte("hello"))
	r.Set("X-Test", "1")
	r.Set("Content-Length", "999")

	got := string(r.Bytes())
	want := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/plain\r\n" +
		"X-Test: 1\r\n" +
		"Content-Length: 5\r\n" +
		"Connection: close\r\n" +
		"Server: Webserv/1.0\r\n" +
		"\r\n" +
		"hello"
	if got != want {
		t.Errorf("unexpected response:\n%q\nwant:\n%q", got, want)
	}
}

func TestResponse_DefaultsAndHead(t *testing.T) {
	r := &Response{Status: StatusCreated, Body: []byte("abc"), OmitBody: true}
	got := string(r.Bytes())

	if !strings.HasPrefix(got, "HTTP/1.1 201 Created\r\n") {
		t.Errorf("unexpected status line in %q", got)
	}
	if !strings.Contains(got, "Content-Type: text/html\r\n") {
		t.Error("expected default content type")
	}
	if !strings.Contains(got, "Content-Length: 3\r\n") {
		t.Error("HEAD keeps the body length")
	}
	if !strings.HasSuffix(got, "\r\n\r\n") {
		t.Error("HEAD must not write the body")
	}
}

func TestErrorResponse(t *testing.T) {
	for _, code := range []int{400, 403, 404, 405, 413, 431, 500, 504} {
		r := ErrorResponse(code)
		raw := string(r.Bytes())
		text := StatusText(code)
		if !strings.Contains(raw, text) {
			t.Errorf("%d: body does not name reason %q", code, text)
		}
		if r.Get("Content-Type") != "text/html" {
			t.Errorf("%d: expected text/html, got %q", code, r.Get("Content-Type"))
		}
	}
}

func TestResponse_SetAndDel(t *testing.T) {
	r := &Response{Status: StatusOK}
	r.Add("Set-Cookie", "a=1")
	r.Add("Set-Cookie", "b=2")
	r.Set("content-type", "text/plain")
	r.Set("Content-Type", "application/json")

	if len(r.Headers) != 3 {
		t.Fatalf("expected 3 headers, got %v", r.Headers)
	}
	if r.Get("CONTENT-TYPE") != "application/json" {
		t.Errorf("unexpected content type %q", r.Get("Content-Type"))
	}
	r.Del("set-cookie")
	if len(r.Headers) != 1 {
		t.Errorf("expected cookies removed, got %v", r.Headers)
	}
}

func TestStatusText(t *testing.T) {
	if StatusText(404) != "Not Found" {
		t.Errorf("unexpected text %q", StatusText(404))
	}
	if StatusText(599) != "Server Error" {
		t.Errorf("unexpected fallback %q", StatusText(599))
	}
}
