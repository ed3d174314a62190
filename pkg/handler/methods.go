package handler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"mercator-hq/webserv/pkg/cgi"
	"mercator-hq/webserv/pkg/httpwire"
	"mercator-hq/webserv/pkg/static"
)

func isNotFound(err error) bool {
	return errors.Is(err, static.ErrNotFound)
}

func isForbidden(err error) bool {
	return errors.Is(err, static.ErrPermission) || errors.Is(err, static.ErrIsDirectory)
}

func (h *Handler) serveGet(ctx context.Context, ex *Exchange) *httpwire.Response {
	d := &ex.Decision
	if d.CGI {
		return h.runCGI(ctx, ex)
	}

	info, err := os.Stat(d.FilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return httpwire.ErrorResponse(httpwire.StatusNotFound)
		}
		return httpwire.ErrorResponse(httpwire.StatusForbidden)
	}
	if info.IsDir() {
		return h.serveDirectory(ex)
	}
	return serveFile(d.FilePath)
}

func serveFile(path string) *httpwire.Response {
	data, err := static.ReadFileBytes(path)
	if err != nil {
		return httpwire.ErrorResponse(errorFor(err))
	}
	return httpwire.NewResponse(httpwire.StatusOK, static.ContentType(path, data), data)
}

func (h *Handler) serveDirectory(ex *Exchange) *httpwire.Response {
	d := &ex.Decision
	if !strings.HasSuffix(d.Path, "/") {
		resp := httpwire.ErrorResponse(httpwire.StatusMovedPermanently)
		target := d.Path + "/"
		if d.Query != "" {
			target += "?" + d.Query
		}
		resp.Set("Location", target)
		return resp
	}

	if d.Index != "" {
		index := filepath.Join(d.FilePath, d.Index)
		if info, err := os.Stat(index); err == nil && info.Mode().IsRegular() {
			return serveFile(index)
		}
	}
	if !d.Location.Autoindex {
		return httpwire.ErrorResponse(httpwire.StatusForbidden)
	}

	entries, err := static.ListDirectory(d.FilePath)
	if err != nil {
		return httpwire.ErrorResponse(errorFor(err))
	}
	body, err := static.RenderListing(d.Path, entries)
	if err != nil {
		h.logger.Error("failed to render directory listing", "path", d.Path, "error", err)
		return httpwire.ErrorResponse(httpwire.StatusInternalServerError)
	}
	return httpwire.NewResponse(httpwire.StatusOK, httpwire.DefaultContentType, body)
}

func (h *Handler) servePost(ctx context.Context, ex *Exchange) *httpwire.Response {
	d := &ex.Decision
	if int64(len(ex.Request.Body)) > d.Server.MaxBodySize {
		return httpwire.ErrorResponse(httpwire.StatusPayloadTooLarge)
	}
	if d.CGI {
		return h.runCGI(ctx, ex)
	}
	if d.UploadDir == "" {
		resp := httpwire.ErrorResponse(httpwire.StatusMethodNotAllowed)
		resp.Set("Allow", allowHeader(d, httpwire.MethodPOST))
		return resp
	}

	name, err := static.SaveUploadedBytes(d.UploadDir, ex.Request.Body)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to save upload", "dir", d.UploadDir, "error", err)
		return httpwire.ErrorResponse(errorFor(err))
	}
	h.logger.InfoContext(ctx, "upload stored", "dir", d.UploadDir, "name", name, "bytes", len(ex.Request.Body))

	location := strings.TrimSuffix(d.Path, "/") + "/" + name
	body := fmt.Sprintf("<html><body><h1>201 Created</h1><p>%s</p></body></html>\n", html.EscapeString(location))
	resp := httpwire.NewResponse(httpwire.StatusCreated, httpwire.DefaultContentType, []byte(body))
	resp.Set("Location", location)
	return resp
}

func (h *Handler) serveDelete(ctx context.Context, ex *Exchange) *httpwire.Response {
	d := &ex.Decision
	if err := static.DeleteFile(d.FilePath); err != nil {
		status := errorFor(err)
		if status == httpwire.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "failed to delete file", "path", d.FilePath, "error", err)
		}
		return httpwire.ErrorResponse(status)
	}
	h.logger.InfoContext(ctx, "file deleted", "path", d.FilePath)
	return &httpwire.Response{Status: httpwire.StatusNoContent}
}

func (h *Handler) runCGI(ctx context.Context, ex *Exchange) *httpwire.Response {
	d := &ex.Decision
	req := cgi.FromHTTP(ex.Request, d.ScriptName, d.Server.ServerName, ex.LocalPort, ex.RemoteAddr)
	req.PathInfo = d.PathInfo
	req.Interpreter = d.Interpreter
	return h.executor.Run(ctx, d.FilePath, req, h.interpreters)
}
