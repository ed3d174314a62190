package server

import (
	"time"

	"github.com/valyala/bytebufferpool"
)

// ConnectionState is the multiplexer's record of one open client socket.
// Only the loop goroutine touches it.
type ConnectionState struct {
	fd       int
	listener *listener
	peer     string
	accepted time.Time

	// buf accumulates bytes until a request is framed. It only grows.
	buf *bytebufferpool.ByteBuffer

	// sizeChecked is set once the declared body length has been compared
	// against the server block limit.
	sizeChecked bool

	// complete is set once a full request was framed and dispatched.
	complete bool
}

func newConnectionState(fd int, l *listener, peer string) *ConnectionState {
	return &ConnectionState{
		fd:       fd,
		listener: l,
		peer:     peer,
		accepted: time.Now(),
		buf:      bytebufferpool.Get(),
	}
}

// buffered is the number of bytes received so far.
func (c *ConnectionState) buffered() int {
	if c.buf == nil {
		return 0
	}
	return c.buf.Len()
}

func (c *ConnectionState) release() {
	if c.buf != nil {
		bytebufferpool.Put(c.buf)
		c.buf = nil
	}
}
