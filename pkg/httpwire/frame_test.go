package httpwire

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestFrame(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		complete bool
		size     int
	}{
		{"no terminator", "GET / HTTP/1.1\r\nHost: a\r\n", false, 0},
		{"no body", "GET / HTTP/1.1\r\nHost: a\r\n\r\n", true, 27},
		{"lf only", "GET / HTTP/1.1\nHost: a\n\n", true, 24},
		{"partial body", "POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nab", false, 43},
		{"full body", "POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nabcde", true, 43},
		{"lower case header", "POST / HTTP/1.1\r\ncontent-length: 2\r\n\r\nok", true, 40},
		{"zero length", "POST / HTTP/1.1\r\nContent-Length: 0\r\n\r\n", true, 38},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Frame([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b.Complete != tt.complete {
				t.Fatalf("expected complete=%v, got %v", tt.complete, b.Complete)
			}
			if b.HeadersComplete && b.Size() != tt.size {
				t.Errorf("expected size %d, got %d", tt.size, b.Size())
			}
		})
	}
}

func TestFrame_InvalidContentLength(t *testing.T) {
	for _, v := range []string{"abc", "-1", "", "1e3", "99999999999999999999999"} {
		_, err := Frame([]byte("POST / HTTP/1.1\r\nContent-Length: " + v + "\r\n\r\n"))
		if !errors.Is(err, ErrInvalidContentLength) {
			t.Errorf("Content-Length %q: expected ErrInvalidContentLength, got %v", v, err)
		}
	}
}

func TestFrame_ExcessBytesIgnored(t *testing.T) {
	head := "POST /x HTTP/1.1\r\nContent-Length: 4\r\n\r\n"
	buf := []byte(head + "bodyGARBAGE-FROM-ANOTHER-REQUEST")

	b, err := Frame(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.Complete {
		t.Fatal("expected complete frame")
	}
	if b.Size() != len(head)+4 {
		t.Fatalf("expected frame of %d bytes, got %d", len(head)+4, b.Size())
	}

	req, err := ParseRequest(buf[:b.Size()])
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if string(req.Body) != "body" {
		t.Errorf("expected body %q, got %q", "body", req.Body)
	}
}

func TestFrame_DuplicateContentLengthAgreesWithParser(t *testing.T) {
	tests := []struct {
		name     string
		headers  string
		wantLen  int64
		wantBody string
	}{
		{"exact case first", "Content-Length: 3\r\ncontent-length: 6\r\n", 6, "abcdef"},
		{"lower case first", "content-length: 6\r\nContent-Length: 3\r\n", 3, "abc"},
		{"same spelling", "Content-Length: 6\r\nContent-Length: 3\r\n", 3, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []byte("POST /upload HTTP/1.1\r\nHost: a\r\n" + tt.headers + "\r\nabcdefEXTRA")

			b, err := Frame(raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b.ContentLength != tt.wantLen {
				t.Fatalf("framer chose %d, want %d", b.ContentLength, tt.wantLen)
			}

			req, err := ParseRequest(raw[:b.Size()])
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if string(req.Body) != tt.wantBody || !req.Complete {
				t.Errorf("parser body = %q (complete=%v), want %q", req.Body, req.Complete, tt.wantBody)
			}
			if v, _ := req.Header("Content-Length"); v != fmt.Sprint(tt.wantLen) {
				t.Errorf("Header(Content-Length) = %q, want %d", v, tt.wantLen)
			}
		})
	}
}

// Feeding a request one chunk at a time must produce the same parse result
// as delivering it whole, whatever the chunk size.
func TestFrame_IncrementalMatchesWhole(t *testing.T) {
	raw := []byte("POST /cgi-bin/echo.py?a=1 HTTP/1.1\r\nHost: localhost\r\nContent-Type: text/plain\r\nContent-Length: 11\r\n\r\nhello world")

	whole, err := ParseRequest(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	for chunk := 1; chunk <= len(raw); chunk++ {
		var buf []byte
		var got *Request
		for off := 0; off < len(raw); off += chunk {
			end := off + chunk
			if end > len(raw) {
				end = len(raw)
			}
			buf = append(buf, raw[off:end]...)

			b, err := Frame(buf)
			if err != nil {
				t.Fatalf("chunk %d: frame error: %v", chunk, err)
			}
			if b.Complete {
				got, err = ParseRequest(buf[:b.Size()])
				if err != nil {
					t.Fatalf("chunk %d: parse error: %v", chunk, err)
				}
				if end != len(raw) {
					t.Fatalf("chunk %d: frame completed early at %d", chunk, end)
				}
				break
			}
		}
		if got == nil {
			t.Fatalf("chunk %d: frame never completed", chunk)
		}
		if !reflect.DeepEqual(got, whole) {
			t.Fatalf("chunk %d: request differs\n got: %+v\nwant: %+v", chunk, got, whole)
		}
	}
}

func TestFrame_BinaryBody(t *testing.T) {
	body := []byte{0, '\r', '\n', '\r', '\n', 0xff, 0}
	raw := append([]byte("POST / HTTP/1.1\r\nContent-Length: 7\r\n\r\n"), body...)

	b, err := Frame(raw)
	if err != nil || !b.Complete {
		t.Fatalf("expected complete frame, got %+v, %v", b, err)
	}
	req, err := ParseRequest(raw[:b.Size()])
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !bytes.Equal(req.Body, body) {
		t.Errorf("binary body mangled: %v", req.Body)
	}
}
