package health

import (
	"context"
	"errors"

	"mercator-hq/webserv/pkg/accesslog"
)

// Runner is satisfied by *server.Server.
type Runner interface {
	IsRunning() bool
}

// ErrNotRunning is reported while the event loop is not serving.
var ErrNotRunning = errors.New("server is not running")

// ServerRunning fails until the server has bound its listeners and again
// once shutdown begins.
func ServerRunning(r Runner) CheckFunc {
	return func(context.Context) error {
		if !r.IsRunning() {
			return ErrNotRunning
		}
		return nil
	}
}

// StorageReachable issues a cheap count against the access log storage.
func StorageReachable(s accesslog.Storage) CheckFunc {
	return func(ctx context.Context) error {
		_, err := s.Count(ctx, &accesslog.Query{Limit: 1})
		return err
	}
}
