package handler

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"mercator-hq/webserv/pkg/cgi"
	"mercator-hq/webserv/pkg/httpwire"
	"mercator-hq/webserv/pkg/routing"
	"mercator-hq/webserv/pkg/static"
)

// Exchange is one request being served. It lives for a single dispatch call.
type Exchange struct {
	Request  *httpwire.Request
	Decision routing.Decision

	RemoteAddr string
	LocalPort  int
}

type methodHandler func(h *Handler, ctx context.Context, ex *Exchange) *httpwire.Response

var methodTable = map[httpwire.Method]methodHandler{
	httpwire.MethodGET:    (*Handler).serveGet,
	httpwire.MethodHEAD:   (*Handler).serveGet,
	httpwire.MethodPOST:   (*Handler).servePost,
	httpwire.MethodDELETE: (*Handler).serveDelete,
}

// Handler serves routed requests. It is stateless apart from its
// collaborators and safe to share.
type Handler struct {
	executor     *cgi.Executor
	interpreters cgi.InterpreterTable
	logger       *slog.Logger
}

// New returns a Handler that runs CGI through executor.
func New(executor *cgi.Executor, interpreters cgi.InterpreterTable) *Handler {
	return &Handler{
		executor:     executor,
		interpreters: interpreters,
		logger:       slog.Default().With("component", "handler"),
	}
}

// Serve produces the response for ex. It never returns nil.
func (h *Handler) Serve(ctx context.Context, ex *Exchange) *httpwire.Response {
	resp := h.dispatch(ctx, ex)
	if resp.Status >= 400 {
		resp = h.withErrorPage(ex, resp)
	}
	if ex.Request.Method == httpwire.MethodHEAD {
		resp.OmitBody = true
	}
	return resp
}

func (h *Handler) dispatch(ctx context.Context, ex *Exchange) *httpwire.Response {
	d := &ex.Decision

	serve, ok := methodTable[ex.Request.Method]
	if !ok || !d.MethodAllowed {
		resp := httpwire.ErrorResponse(httpwire.StatusMethodNotAllowed)
		resp.Set("Allow", allowHeader(d))
		return resp
	}
	if d.Redirect != "" {
		resp := httpwire.NewResponse(httpwire.StatusMovedPermanently, httpwire.DefaultContentType,
			httpwire.ErrorBody(httpwire.StatusMovedPermanently))
		resp.Set("Location", d.Redirect)
		return resp
	}
	return serve(h, ctx, ex)
}

// allowHeader lists the methods the location accepts, minus skip.
func allowHeader(d *routing.Decision, skip ...httpwire.Method) string {
	var methods []string
	for _, m := range httpwire.KnownMethods {
		if slices.Contains(skip, m) {
			continue
		}
		if !d.HasLocation || routing.IsMethodAllowed(m.String(), &d.Location) {
			methods = append(methods, m.String())
		}
	}
	return strings.Join(methods, ", ")
}

// withErrorPage swaps the body of an error response for the configured page
// when one exists and is readable. Location pages are resolved against the
// location root, server pages against the server root.
func (h *Handler) withErrorPage(ex *Exchange, resp *httpwire.Response) *httpwire.Response {
	d := &ex.Decision

	var page, root string
	if p, ok := d.Location.ErrorPages[resp.Status]; ok && d.HasLocation {
		page, root = p, d.Root
	} else if p, ok := d.Server.ErrorPages[resp.Status]; ok {
		page, root = p, d.Server.Root
	} else {
		return resp
	}

	body, err := static.ReadFileBytes(filepath.Join(root, filepath.FromSlash(routing.CleanPath(page))))
	if err != nil {
		h.logger.Debug("error page unavailable", "status", resp.Status, "page", page, "error", err)
		return resp
	}
	resp.Body = body
	resp.Set("Content-Type", httpwire.DefaultContentType)
	return resp
}

// errorFor maps a static package error to a status.
func errorFor(err error) int {
	switch {
	case err == nil:
		return httpwire.StatusOK
	case isNotFound(err):
		return httpwire.StatusNotFound
	case isForbidden(err):
		return httpwire.StatusForbidden
	default:
		return httpwire.StatusInternalServerError
	}
}
