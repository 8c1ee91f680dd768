// Package quic carries protocol envelopes over a single bidirectional QUIC
// stream per connection, using length-prefixed frames.
package quic

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	q "github.com/quic-go/quic-go"

	"github.com/TheusHen/dhmitm/dhmitm/protocol"
	"github.com/TheusHen/dhmitm/dhmitm/transport"
)

const (
	keepAlivePeriod = 10 * time.Second
	maxIdleTimeout  = time.Minute
)

func quicConfig() *q.Config {
	return &q.Config{
		KeepAlivePeriod: keepAlivePeriod,
		MaxIdleTimeout:  maxIdleTimeout,
	}
}

// Conn is one QUIC connection with its single message stream.
type Conn struct {
	conn    q.Connection
	stream  q.Stream
	frames  *protocol.FrameReader
	writeMu sync.Mutex
	once    sync.Once
}

func newConn(conn q.Connection, stream q.Stream) *Conn {
	return &Conn{conn: conn, stream: stream, frames: protocol.NewFrameReader(stream)}
}

func (c *Conn) ReadMessage(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.stream.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		payload, err := c.frames.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, mapError(err)
		}
		// Empty frames only open the stream.
		if len(payload) > 0 {
			return payload, nil
		}
	}
}

func (c *Conn) WriteMessage(ctx context.Context, msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if d, ok := ctx.Deadline(); ok {
		_ = c.stream.SetWriteDeadline(d)
		defer c.stream.SetWriteDeadline(time.Time{})
	}
	if err := protocol.WriteFrame(c.stream, msg); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		_ = c.stream.Close()
		err = c.conn.CloseWithError(0, "closed")
	})
	return err
}

func (c *Conn) RemoteAddr() string { return c.conn.RemoteAddr().String() }

func mapError(err error) error {
	var appErr *q.ApplicationError
	var idleErr *q.IdleTimeoutError
	var streamErr *q.StreamError
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		return transport.ErrClosed
	case errors.As(err, &appErr), errors.As(err, &idleErr), errors.As(err, &streamErr):
		return transport.ErrClosed
	}
	return err
}

type Listener struct {
	inner *q.Listener
}

func Listen(addr string) (*Listener, error) {
	tlsConf, err := NewServerTLSConfig()
	if err != nil {
		return nil, err
	}
	ln, err := q.ListenAddr(addr, tlsConf, quicConfig())
	if err != nil {
		return nil, err
	}
	return &Listener{inner: ln}, nil
}

// Accept waits for a connection and the stream its dialer opens.
func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	conn, err := l.inner.Accept(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, q.ErrServerClosed) {
			return nil, transport.ErrListenerClosed
		}
		return nil, err
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "no stream")
		return nil, err
	}
	return newConn(conn, stream), nil
}

func (l *Listener) Addr() string {
	if l.inner == nil {
		return ""
	}
	return l.inner.Addr().String()
}

func (l *Listener) Close() error { return l.inner.Close() }

// Dial connects and opens the message stream. An empty frame is written right
// away so the listener's AcceptStream returns without waiting for the first
// envelope.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	tlsConf, err := NewClientTLSConfig()
	if err != nil {
		return nil, err
	}
	conn, err := q.DialAddr(ctx, addr, tlsConf, quicConfig())
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "open stream")
		return nil, err
	}
	if err := protocol.WriteFrame(stream, nil); err != nil {
		_ = conn.CloseWithError(0, "open stream")
		return nil, err
	}
	return newConn(conn, stream), nil
}
