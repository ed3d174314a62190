package server

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned by Start on a running server.
	ErrAlreadyRunning = errors.New("server: already running")

	// ErrServerClosed is returned by Start on a server that already ran.
	ErrServerClosed = errors.New("server: closed")

	// ErrNoListeners is returned by Start when the site has no server blocks.
	ErrNoListeners = errors.New("server: no listen addresses configured")
)

// BindError reports a failure to bind a listening socket.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("server: bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// ListenError reports a failure to create or listen on a socket.
type ListenError struct {
	Addr string
	Op   string
	Err  error
}

func (e *ListenError) Error() string {
	return fmt.Sprintf("server: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ListenError) Unwrap() error {
	return e.Err
}
