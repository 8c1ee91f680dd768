// Package transport abstracts the persistent, message-oriented, full-duplex
// connections peers talk over. Implementations preserve message boundaries and
// per-direction order.
package transport

import (
	"context"
	"errors"
)

var (
	ErrClosed         = errors.New("transport: connection closed")
	ErrListenerClosed = errors.New("transport: listener closed")
)

// Conn carries whole messages in both directions.
// ReadMessage must only be called from one goroutine at a time;
// WriteMessage is safe for concurrent use.
type Conn interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, msg []byte) error
	Close() error
	RemoteAddr() string
}

type Listener interface {
	Accept(ctx context.Context) (Conn, error)
	Addr() string
	Close() error
}

// Dialer opens a connection to addr.
type Dialer func(ctx context.Context, addr string) (Conn, error)
