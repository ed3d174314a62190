package httpwire

import (
	"bytes"
	"strings"
)

// Request is one parsed request. It does not alias the buffer it was parsed
// from and is not modified after ParseRequest returns.
type Request struct {
	Method Method

	// RawMethod is the method token exactly as received.
	RawMethod string

	// URI is the request target including any query string.
	URI     string
	Version string

	// Headers maps the received header name to its value. Names keep the
	// case of their last occurrence; duplicates, compared case-insensitively,
	// collapse to the last value.
	Headers map[string]string

	Body []byte

	// Complete is false when the buffer held fewer body bytes than
	// Content-Length declared.
	Complete bool
}

// ParseRequest parses a framed request. raw may carry trailing bytes beyond
// the request; they are ignored once Content-Length bytes of body are taken.
func ParseRequest(raw []byte) (*Request, error) {
	end, termLen := findTerminator(raw)
	head := raw
	var rest []byte
	if end >= 0 {
		head = raw[:end]
		rest = raw[end+termLen:]
	}
	if len(bytes.TrimSpace(head)) == 0 {
		return nil, ErrEmptyRequest
	}

	headers := head
	line, head := nextLine(head)
	fields := strings.Fields(string(line))
	if len(fields) < 3 {
		return nil, ErrMalformedRequestLine
	}

	req := &Request{
		Method:    ParseMethod(fields[0]),
		RawMethod: fields[0],
		URI:       fields[1],
		Version:   fields[2],
		Headers:   make(map[string]string),
		Complete:  true,
	}

	for len(head) > 0 {
		line, head = nextLine(head)
		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		name := string(bytes.TrimSpace(line[:colon]))
		if name == "" {
			continue
		}
		req.setHeader(name, string(bytes.TrimLeft(line[colon+1:], " \t")))
	}

	// Same rule as Frame, so both agree on where the body ends.
	n, ok, err := scanContentLength(headers)
	if err != nil {
		return nil, err
	}
	if ok {
		if int64(len(rest)) < n {
			req.Complete = false
			n = int64(len(rest))
		}
		rest = rest[:n]
	} else {
		rest = nil
	}
	if len(rest) > 0 {
		req.Body = append([]byte(nil), rest...)
	}
	return req, nil
}

func (r *Request) setHeader(name, value string) {
	for k := range r.Headers {
		if k != name && strings.EqualFold(k, name) {
			delete(r.Headers, k)
		}
	}
	r.Headers[name] = value
}

// nextLine splits off the first line of b, without its line ending.
func nextLine(b []byte) (line, rest []byte) {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		line, rest = b[:i], b[i+1:]
	} else {
		line = b
	}
	return bytes.TrimSuffix(line, []byte{'\r'}), rest
}

// Header returns the value of name. An exact-case match is preferred; other
// spellings are found case-insensitively.
func (r *Request) Header(name string) (string, bool) {
	if v, ok := r.Headers[name]; ok {
		return v, true
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Host returns the Host header, or "".
func (r *Request) Host() string {
	v, _ := r.Header("Host")
	return strings.TrimSpace(v)
}

// ContentType returns the Content-Type header, or "".
func (r *Request) ContentType() string {
	v, _ := r.Header("Content-Type")
	return strings.TrimSpace(v)
}

// Path returns the URI without its query string.
func (r *Request) Path() string {
	if i := strings.IndexByte(r.URI, '?'); i >= 0 {
		return r.URI[:i]
	}
	return r.URI
}

// Query returns the raw query string, without the '?'.
func (r *Request) Query() string {
	if i := strings.IndexByte(r.URI, '?'); i >= 0 {
		return r.URI[i+1:]
	}
	return ""
}
