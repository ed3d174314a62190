package cgi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"mercator-hq/webserv/pkg/httpwire"
	"mercator-hq/webserv/pkg/telemetry/tracing"
)

const (
	// DefaultTimeout bounds one script run.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxOutput caps the bytes read from a script's stdout.
	DefaultMaxOutput = 16 << 20

	defaultMaxStderr = 4096
)

// Observer receives one call per finished script run.
type Observer interface {
	ObserveCGI(ext string, status int, duration time.Duration)
}

// Options configures an Executor. Zero fields take defaults.
type Options struct {
	Timeout        time.Duration
	MaxOutputBytes int64
	MaxStderrBytes int
	Observer       Observer
	Logger         *slog.Logger
}

// Executor runs CGI scripts. It holds no per-request state and may be shared.
type Executor struct {
	timeout   time.Duration
	maxOutput int64
	maxStderr int
	observer  Observer
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewExecutor returns an Executor with opts applied over the defaults.
func NewExecutor(opts Options) *Executor {
	e := &Executor{
		timeout:   opts.Timeout,
		maxOutput: opts.MaxOutputBytes,
		maxStderr: opts.MaxStderrBytes,
		observer:  opts.Observer,
		logger:    opts.Logger,
		tracer:    otel.Tracer("mercator-hq/webserv/cgi"),
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.maxOutput <= 0 {
		e.maxOutput = DefaultMaxOutput
	}
	if e.maxStderr <= 0 {
		e.maxStderr = defaultMaxStderr
	}
	if e.logger == nil {
		e.logger = slog.Default().With("component", "cgi")
	}
	return e
}

// Execute runs scriptPath for req and returns the raw HTTP response.
func (e *Executor) Execute(ctx context.Context, scriptPath string, req *Request, interpreters InterpreterTable) []byte {
	return e.Run(ctx, scriptPath, req, interpreters).Bytes()
}

// Run is Execute returning the response before serialization. The result is
// always a complete response; failures become 403, 404, 500 or 504.
func (e *Executor) Run(ctx context.Context, scriptPath string, req *Request, interpreters InterpreterTable) *httpwire.Response {
	start := time.Now()
	ext := filepath.Ext(scriptPath)

	ctx, span := e.tracer.Start(ctx, "cgi.execute", trace.WithAttributes(
		tracing.AttrCGIScript.String(scriptPath),
		tracing.AttrHTTPMethod.String(req.Method),
	))
	defer span.End()

	resp := e.run(ctx, scriptPath, req, interpreters)

	tracing.SetHTTPStatus(span, resp.Status)
	if e.observer != nil {
		e.observer.ObserveCGI(ext, resp.Status, time.Since(start))
	}
	return resp
}

func (e *Executor) run(ctx context.Context, scriptPath string, req *Request, interpreters InterpreterTable) *httpwire.Response {
	logger := e.logger.With("script", scriptPath)

	info, err := os.Stat(scriptPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return httpwire.ErrorResponse(httpwire.StatusNotFound)
		}
		if errors.Is(err, fs.ErrPermission) {
			return httpwire.ErrorResponse(httpwire.StatusForbidden)
		}
		logger.ErrorContext(ctx, "failed to stat CGI script", "error", err)
		return httpwire.ErrorResponse(httpwire.StatusInternalServerError)
	}
	if !info.Mode().IsRegular() {
		return httpwire.ErrorResponse(httpwire.StatusForbidden)
	}

	if info.Mode().Perm()&0111 == 0 {
		logger.WarnContext(ctx, "CGI script is not executable")
		return httpwire.ErrorResponse(httpwire.StatusForbidden)
	}

	interp := req.Interpreter
	if interp == "" {
		interp, _ = interpreters.ForScript(scriptPath)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var cmd *exec.Cmd
	if interp != "" {
		cmd = exec.CommandContext(ctx, interp, scriptPath)
	} else {
		cmd = exec.CommandContext(ctx, scriptPath)
	}
	cmd.Env = append(Environ(req, scriptPath), tracing.Environ(ctx)...)
	trace.SpanFromContext(ctx).SetAttributes(tracing.AttrInterpreter.String(interp))
	cmd.Dir = filepath.Dir(scriptPath)
	stderr := &cappedBuffer{max: e.maxStderr}
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second

	stdin, err := cmd.StdinPipe()
	if err != nil {
		logger.ErrorContext(ctx, "failed to create stdin pipe", "error", err)
		return httpwire.ErrorResponse(httpwire.StatusInternalServerError)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		logger.ErrorContext(ctx, "failed to create stdout pipe", "error", err)
		return httpwire.ErrorResponse(httpwire.StatusInternalServerError)
	}

	if err := cmd.Start(); err != nil {
		logger.ErrorContext(ctx, "failed to start CGI script", "interpreter", interp, "error", err)
		return httpwire.ErrorResponse(httpwire.StatusInternalServerError)
	}

	// A killed child can leave grandchildren holding stdout open; closing our
	// end unblocks the reader.
	stopClose := context.AfterFunc(ctx, func() { stdout.Close() })

	var (
		output   []byte
		tooLarge bool
		g        errgroup.Group
	)
	g.Go(func() error {
		defer stdin.Close()
		if len(req.Body) == 0 {
			return nil
		}
		if _, err := stdin.Write(req.Body); err != nil && !childClosedStdin(err) {
			return fmt.Errorf("failed to write request body: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		out, err := io.ReadAll(io.LimitReader(stdout, e.maxOutput+1))
		if int64(len(out)) > e.maxOutput {
			tooLarge = true
			cancel()
			return nil
		}
		output = out
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("failed to read script output: %w", err)
		}
		return nil
	})
	ioErr := g.Wait()
	stopClose()
	waitErr := cmd.Wait()

	if stderr.Len() > 0 {
		logger.WarnContext(ctx, "CGI script wrote to stderr", "stderr", stderr.String(), "truncated", stderr.truncated)
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded) && !tooLarge:
		logger.WarnContext(ctx, "CGI script timed out", "timeout", e.timeout)
		return httpwire.ErrorResponse(httpwire.StatusGatewayTimeout)
	case tooLarge:
		logger.ErrorContext(ctx, "CGI output exceeds limit", "limit", e.maxOutput)
		return httpwire.ErrorResponse(httpwire.StatusInternalServerError)
	case waitErr != nil:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			logger.WarnContext(ctx, "CGI script exited with error", "exit_code", exitErr.ExitCode())
		} else {
			logger.ErrorContext(ctx, "failed to wait for CGI script", "error", waitErr)
		}
		return httpwire.ErrorResponse(httpwire.StatusInternalServerError)
	case ioErr != nil:
		logger.ErrorContext(ctx, "CGI pipe failure", "error", ioErr)
		return httpwire.ErrorResponse(httpwire.StatusInternalServerError)
	}

	resp, err := ParseOutput(output)
	if err != nil {
		logger.WarnContext(ctx, "unparsable CGI output", "error", err)
		return httpwire.ErrorResponse(httpwire.StatusInternalServerError)
	}
	return resp
}

// childClosedStdin reports write errors caused by a child that exited or
// closed stdin without reading the whole body.
func childClosedStdin(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed)
}

// cappedBuffer keeps the first max bytes written to it and drops the rest.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if room := c.max - c.buf.Len(); room > 0 {
		if len(p) > room {
			c.buf.Write(p[:room])
			c.truncated = true
		} else {
			c.buf.Write(p)
		}
	} else if len(p) > 0 {
		c.truncated = true
	}
	return len(p), nil
}

func (c *cappedBuffer) Len() int       { return c.buf.Len() }
func (c *cappedBuffer) String() string { return c.buf.String() }
