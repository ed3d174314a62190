package httpwire

import (
	"bytes"
	"strconv"
)

var (
	crlfTerminator = []byte("\r\n\r\n")
	lfTerminator   = []byte("\n\n")
	contentLength  = []byte("content-length")
)

// Boundary describes how much of a buffer belongs to the first request in it.
type Boundary struct {
	// HeadersComplete is set once the header terminator has been seen.
	HeadersComplete bool

	// HeaderLen is the length of the header section including its
	// terminator. Zero until HeadersComplete.
	HeaderLen int

	// ContentLength is the declared body length, zero when absent.
	ContentLength    int64
	HasContentLength bool

	// Complete is set when HeaderLen+ContentLength bytes are buffered.
	Complete bool
}

// Size is the number of bytes making up the request. Bytes beyond Size are
// not part of it and are discarded by the caller.
func (b Boundary) Size() int {
	return b.HeaderLen + int(b.ContentLength)
}

// Frame scans buf for a complete request. It is linear in len(buf) and may be
// re-run on the same, grown buffer after every read. An unparsable
// Content-Length yields ErrInvalidContentLength once the headers are in.
func Frame(buf []byte) (Boundary, error) {
	var b Boundary

	end, termLen := findTerminator(buf)
	if end < 0 {
		return b, nil
	}
	b.HeadersComplete = true
	b.HeaderLen = end + termLen

	cl, ok, err := scanContentLength(buf[:end])
	if err != nil {
		return b, err
	}
	b.ContentLength = cl
	b.HasContentLength = ok

	b.Complete = int64(len(buf)-b.HeaderLen) >= cl
	return b, nil
}

// findTerminator returns the offset of the earliest blank-line terminator
// and its length, or -1.
func findTerminator(buf []byte) (int, int) {
	crlf := bytes.Index(buf, crlfTerminator)
	lf := bytes.Index(buf, lfTerminator)
	switch {
	case crlf < 0 && lf < 0:
		return -1, 0
	case lf < 0 || (crlf >= 0 && crlf < lf):
		return crlf, len(crlfTerminator)
	default:
		return lf, len(lfTerminator)
	}
}

// scanContentLength walks the header lines of head looking for
// Content-Length. The last occurrence wins, matching the parser.
func scanContentLength(head []byte) (int64, bool, error) {
	var (
		value []byte
		found bool
	)
	for len(head) > 0 {
		line := head
		if i := bytes.IndexByte(head, '\n'); i >= 0 {
			line, head = head[:i], head[i+1:]
		} else {
			head = nil
		}
		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		name := bytes.TrimSpace(line[:colon])
		if len(name) != len(contentLength) || !bytes.EqualFold(name, contentLength) {
			continue
		}
		value = bytes.TrimSpace(line[colon+1:])
		found = true
	}
	if !found {
		return 0, false, nil
	}
	n, err := parseContentLength(string(value))
	if err != nil {
		return 0, true, err
	}
	return n, true, nil
}

func parseContentLength(s string) (int64, error) {
	if s == "" {
		return 0, ErrInvalidContentLength
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrInvalidContentLength
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidContentLength
	}
	return n, nil
}

// SplitHead splits b at the first blank-line terminator. ok is false when b
// has none, in which case body is all of b.
func SplitHead(b []byte) (head, body []byte, ok bool) {
	end, termLen := findTerminator(b)
	if end < 0 {
		return nil, b, false
	}
	return b[:end], b[end+termLen:], true
}
