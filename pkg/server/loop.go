package server

import (
	"context"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sys/unix"

	"mercator-hq/webserv/pkg/handler"
	"mercator-hq/webserv/pkg/httpwire"
	"mercator-hq/webserv/pkg/routing"
	"mercator-hq/webserv/pkg/telemetry/logging"
	"mercator-hq/webserv/pkg/telemetry/tracing"
)

// acceptConnection accepts one pending connection on l.
func (s *Server) acceptConnection(l *listener) {
	syscall.ForkLock.RLock()
	fd, sa, err := unix.Accept(l.fd)
	if err == nil {
		unix.CloseOnExec(fd)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR || err == unix.ECONNABORTED {
			return
		}
		s.logger.Error("accept failed", "listener", l.addr.String(), "error", err)
		if s.opts.ConnectionObserver != nil {
			s.opts.ConnectionObserver.AcceptFailed()
		}
		return
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		s.logger.Error("failed to set client socket non-blocking", "error", err)
		unix.Close(fd)
		return
	}
	if err := s.poller.add(fd); err != nil {
		s.logger.Error("failed to register client socket", "error", err)
		unix.Close(fd)
		return
	}

	host, port := sockaddrHostPort(sa)
	c := newConnectionState(fd, l, host)
	s.conns[fd] = c
	s.active.Add(1)
	if s.opts.ConnectionObserver != nil {
		s.opts.ConnectionObserver.ConnectionOpened()
	}
	s.logger.Debug("connection accepted", "fd", fd, "peer", host, "peer_port", port, "listener", l.addr.String())
}

// onReadable reads what is available and dispatches once a request is framed.
func (s *Server) onReadable(ctx context.Context, c *ConnectionState) {
	n, err := readOnce(c.fd, s.chunk)
	switch {
	case err == unix.EAGAIN:
		return
	case err != nil:
		s.logger.Debug("read failed, dropping connection", "fd", c.fd, "error", err)
		s.dropConnection(c)
		return
	case n == 0:
		s.logger.Debug("peer closed connection", "fd", c.fd)
		s.dropConnection(c)
		return
	}
	c.buf.Write(s.chunk[:n])

	b, err := httpwire.Frame(c.buf.B)
	if err != nil {
		s.respondEarly(c, httpwire.StatusBadRequest, err)
		return
	}
	if !b.HeadersComplete {
		if c.buf.Len() > s.opts.MaxHeaderBytes {
			s.respondEarly(c, httpwire.StatusHeaderFieldsTooLarge, nil)
		}
		return
	}
	if b.HeaderLen > s.opts.MaxHeaderBytes {
		s.respondEarly(c, httpwire.StatusHeaderFieldsTooLarge, nil)
		return
	}

	if !c.sizeChecked {
		c.sizeChecked = true
		if status := s.checkHead(c, b); status != 0 {
			s.respondEarly(c, status, nil)
			return
		}
	}
	if !b.Complete {
		return
	}

	c.complete = true
	s.dispatch(ctx, c, c.buf.B[:b.Size()])
}

// readOnce reads one chunk, retrying interrupted reads.
func readOnce(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		if err == unix.EINTR {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}

// checkHead validates the header section before the body arrives: the
// request line must parse and the declared body must fit the server block.
func (s *Server) checkHead(c *ConnectionState, b httpwire.Boundary) int {
	head, err := httpwire.ParseRequest(c.buf.B[:b.HeaderLen])
	if err != nil {
		return httpwire.StatusBadRequest
	}
	if !b.HasContentLength {
		return 0
	}
	srv := routing.ResolveServer(s.site.Load(), c.listener.addr.Host, c.listener.addr.Port, routing.HostName(head.Host()))
	if b.ContentLength > srv.MaxBodySize {
		s.logger.Info("request body exceeds limit",
			"fd", c.fd,
			"content_length", b.ContentLength,
			"limit", srv.MaxBodySize,
			"server_name", srv.ServerName,
		)
		return httpwire.StatusPayloadTooLarge
	}
	return 0
}

// respondEarly answers with a built-in error page before a full request was
// read, then closes the connection.
func (s *Server) respondEarly(c *ConnectionState, status int, cause error) {
	if cause != nil {
		s.logger.Debug("rejecting request", "fd", c.fd, "status", status, "error", cause)
	}
	start := time.Now()
	out := httpwire.ErrorResponse(status).Bytes()
	if err := writeAll(c.fd, out, s.opts.WriteTimeout); err != nil {
		s.logger.Debug("failed to write response", "fd", c.fd, "error", err)
	}
	s.notify(&RequestEvent{
		ID:       uuid.NewString(),
		Time:     start,
		Duration: time.Since(start),
		Remote:   c.peer,
		Listen:   c.listener.addr.String(),
		Status:   status,
		BytesIn:  c.buf.Len(),
		BytesOut: len(out),
	})
	s.dropConnection(c)
}

// dispatch parses, routes and answers one framed request, then closes the
// connection.
func (s *Server) dispatch(ctx context.Context, c *ConnectionState, frame []byte) {
	start := time.Now()
	ev := &RequestEvent{
		ID:      uuid.NewString(),
		Time:    start,
		Remote:  c.peer,
		Listen:  c.listener.addr.String(),
		BytesIn: len(frame),
	}

	ctx = logging.WithRequestID(ctx, ev.ID)
	req, err := httpwire.ParseRequest(frame)
	if err == nil {
		ctx = tracing.Extract(ctx, req.Headers)
	}
	ctx, span := s.tracer.Start(ctx, "webserv.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(tracing.ConnectionAttributes(ev.ID, c.peer, ev.Listen)...))

	var resp *httpwire.Response
	if err != nil {
		s.logger.DebugContext(ctx, "malformed request", "fd", c.fd, "error", err)
		resp = httpwire.ErrorResponse(httpwire.StatusBadRequest)
	} else {
		ev.Method, ev.URI, ev.Host = req.RawMethod, req.URI, req.Host()
		d := routing.Resolve(s.site.Load(), routing.Request{
			Method: req.RawMethod,
			URI:    req.URI,
			Host:   req.Host(),
		}, c.listener.addr.Host, c.listener.addr.Port)
		ev.ServerName, ev.CGI = d.Server.ServerName, d.CGI
		if d.HasLocation {
			ev.Location = d.Location.Path
		}
		tracing.SetRouteAttributes(span, req.RawMethod, req.URI, ev.ServerName, ev.Location, d.CGI)

		resp = s.handler.Serve(ctx, &handler.Exchange{
			Request:    req,
			Decision:   d,
			RemoteAddr: c.peer,
			LocalPort:  c.listener.bound.Port,
		})
	}
	resp.Set("X-Request-Id", ev.ID)

	out := resp.Bytes()
	if err := writeAll(c.fd, out, s.opts.WriteTimeout); err != nil {
		s.logger.WarnContext(ctx, "failed to write response", "fd", c.fd, "peer", c.peer, "error", err)
		span.RecordError(err)
	}

	ev.Status = resp.Status
	ev.BytesOut = len(out)
	ev.Duration = time.Since(start)

	tracing.SetHTTPStatus(span, resp.Status)
	span.End()

	s.logger.DebugContext(ctx, "request served",
		"request_id", ev.ID,
		"method", ev.Method,
		"uri", ev.URI,
		"status", ev.Status,
		"duration", ev.Duration,
	)
	s.notify(ev)
	s.dropConnection(c)
}

func (s *Server) notify(ev *RequestEvent) {
	for _, o := range s.opts.RequestObservers {
		o.ObserveRequest(ev)
	}
}

// dropConnection unregisters, closes and forgets c.
func (s *Server) dropConnection(c *ConnectionState) {
	delete(s.conns, c.fd)
	s.closeConnection(c)
}

// lingerReads bounds how much unread input is discarded on close.
const lingerReads = 16

func (s *Server) closeConnection(c *ConnectionState) {
	if err := s.poller.remove(c.fd); err != nil {
		s.logger.Debug("failed to unregister connection", "fd", c.fd, "error", err)
	}
	// Half-close and discard unread input so close does not reset the
	// connection before the peer has read the response.
	unix.Shutdown(c.fd, unix.SHUT_WR)
	for i := 0; i < lingerReads; i++ {
		if n, err := unix.Read(c.fd, s.chunk); n <= 0 || err != nil {
			break
		}
	}
	unix.Close(c.fd)
	s.logger.Debug("connection closed",
		"fd", c.fd,
		"peer", c.peer,
		"served", c.complete,
		"buffered_bytes", c.buffered(),
		"lifetime", time.Since(c.accepted),
	)
	c.release()

	s.active.Add(-1)
	if s.opts.ConnectionObserver != nil {
		s.opts.ConnectionObserver.ConnectionClosed()
	}
}

// writeAll writes b to the non-blocking fd, waiting for writability when
// the socket buffer is full.
func writeAll(fd int, b []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for len(b) > 0 {
		n, err := unix.Write(fd, b)
		if n > 0 {
			b = b[n:]
		}
		switch {
		case err == nil, err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return errWriteTimeout
			}
			pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
			if _, err := unix.Poll(pfd, int(remaining/time.Millisecond)+1); err != nil && err != unix.EINTR {
				return err
			}
		default:
			return err
		}
	}
	return nil
}
