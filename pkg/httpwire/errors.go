package httpwire

import "errors"

var (
	// ErrMalformedRequestLine indicates fewer than three tokens on the
	// request line.
	ErrMalformedRequestLine = errors.New("httpwire: malformed request line")

	// ErrInvalidContentLength indicates a Content-Length that is not a
	// non-negative decimal integer.
	ErrInvalidContentLength = errors.New("httpwire: invalid Content-Length")

	// ErrEmptyRequest indicates ParseRequest was handed no header section.
	ErrEmptyRequest = errors.New("httpwire: empty request")
)
