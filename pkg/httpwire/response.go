package httpwire

import (
	"strconv"
	"strings"

	"github.com/valyala/bytebufferpool"
)

// ServerSoftware is sent as the Server header and to CGI children.
const ServerSoftware = "Webserv/1.0"

// DefaultContentType is used when a response sets no Content-Type.
const DefaultContentType = "text/html"

// HeaderField is one response header line.
type HeaderField struct {
	Name  string
	Value string
}

// Response is an HTTP response under construction. Headers keep insertion
// order. Content-Length, Connection and Server are always written by Bytes
// and any values set for them are replaced.
type Response struct {
	Status  int
	Reason  string
	Headers []HeaderField
	Body    []byte

	// OmitBody drops the body from the wire while keeping its
	// Content-Length, for HEAD.
	OmitBody bool
}

// NewResponse returns a response with the given status, content type and body.
func NewResponse(status int, contentType string, body []byte) *Response {
	r := &Response{Status: status, Body: body}
	if contentType != "" {
		r.Set("Content-Type", contentType)
	}
	return r
}

// Set replaces the first header named name (case-insensitive) or appends it.
func (r *Response) Set(name, value string) {
	for i := range r.Headers {
		if strings.EqualFold(r.Headers[i].Name, name) {
			r.Headers[i].Value = value
			return
		}
	}
	r.Headers = append(r.Headers, HeaderField{Name: name, Value: value})
}

// Add appends a header without replacing existing ones.
func (r *Response) Add(name, value string) {
	r.Headers = append(r.Headers, HeaderField{Name: name, Value: value})
}

// Get returns the first value of name, or "".
func (r *Response) Get(name string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Del removes every header named name.
func (r *Response) Del(name string) {
	kept := r.Headers[:0]
	for _, h := range r.Headers {
		if !strings.EqualFold(h.Name, name) {
			kept = append(kept, h)
		}
	}
	r.Headers = kept
}

func managedHeader(name string) bool {
	return strings.EqualFold(name, "Content-Length") ||
		strings.EqualFold(name, "Connection") ||
		strings.EqualFold(name, "Server")
}

// Bytes serializes the response.
func (r *Response) Bytes() []byte {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	reason := r.Reason
	if reason == "" {
		reason = StatusText(r.Status)
	}
	buf.WriteString("HTTP/1.1 ")
	buf.B = strconv.AppendInt(buf.B, int64(r.Status), 10)
	buf.WriteString(" ")
	buf.WriteString(reason)
	buf.WriteString("\r\n")

	hasType := false
	for _, h := range r.Headers {
		if managedHeader(h.Name) {
			continue
		}
		if strings.EqualFold(h.Name, "Content-Type") {
			hasType = true
		}
		writeHeader(buf, h.Name, h.Value)
	}
	if !hasType {
		writeHeader(buf, "Content-Type", DefaultContentType)
	}
	writeHeader(buf, "Content-Length", strconv.Itoa(len(r.Body)))
	writeHeader(buf, "Connection", "close")
	writeHeader(buf, "Server", ServerSoftware)
	buf.WriteString("\r\n")
	if !r.OmitBody {
		buf.Write(r.Body)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.B)
	return out
}

func writeHeader(buf *bytebufferpool.ByteBuffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

// ErrorBody is the built-in HTML page for status.
func ErrorBody(status int) []byte {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	code := strconv.Itoa(status)
	text := StatusText(status)
	buf.WriteString("<html><head><title>")
	buf.WriteString(code)
	buf.WriteString(" ")
	buf.WriteString(text)
	buf.WriteString("</title></head><body><h1>")
	buf.WriteString(code)
	buf.WriteString(" ")
	buf.WriteString(text)
	buf.WriteString("</h1><hr><p>")
	buf.WriteString(ServerSoftware)
	buf.WriteString("</p></body></html>\n")

	return append([]byte(nil), buf.B...)
}

// ErrorResponse returns a text/html response with the built-in page for
// status.
func ErrorResponse(status int) *Response {
	return NewResponse(status, DefaultContentType, ErrorBody(status))
}
