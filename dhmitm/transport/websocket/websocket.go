// Package websocket carries protocol envelopes as WebSocket text messages.
package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/TheusHen/dhmitm/dhmitm/transport"
)

const (
	writeTimeout = 10 * time.Second
	closeGrace   = time.Second
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Peers are local command-line programs, not browsers.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Conn adapts a gorilla connection to transport.Conn.
type Conn struct {
	ws      *ws.Conn
	writeMu sync.Mutex
	once    sync.Once
}

func newConn(c *ws.Conn) *Conn { return &Conn{ws: c} }

func (c *Conn) ReadMessage(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.ws.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		typ, msg, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, mapError(err)
		}
		if typ == ws.TextMessage || typ == ws.BinaryMessage {
			return msg, nil
		}
	}
}

func (c *Conn) WriteMessage(ctx context.Context, msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteMessage(ws.TextMessage, msg); err != nil {
		return mapError(err)
	}
	return nil
}

// Close sends a normal close frame and tears down the socket.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(closeGrace))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) RemoteAddr() string { return c.ws.RemoteAddr().String() }

func mapError(err error) error {
	var ce *ws.CloseError
	if errors.As(err, &ce) || errors.Is(err, net.ErrClosed) || errors.Is(err, ws.ErrCloseSent) {
		return transport.ErrClosed
	}
	return err
}

// Listener accepts WebSocket upgrades on every path of an HTTP server.
type Listener struct {
	ln    net.Listener
	srv   *http.Server
	conns chan *Conn
	done  chan struct{}
	once  sync.Once
}

func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	l := &Listener{
		ln:    ln,
		conns: make(chan *Conn),
		done:  make(chan struct{}),
	}
	l.srv = &http.Server{
		Handler:           http.HandlerFunc(l.upgrade),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		_ = l.srv.Serve(ln)
		_ = l.Close()
	}()
	return l, nil
}

func (l *Listener) upgrade(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := newConn(c)
	select {
	case l.conns <- conn:
	case <-l.done:
		_ = conn.Close()
	}
}

func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.done:
		return nil, transport.ErrListenerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Listener) Addr() string { return l.ln.Addr().String() }

// Close stops accepting. Connections already handed out stay open.
func (l *Listener) Close() error {
	l.once.Do(func() {
		close(l.done)
		_ = l.ln.Close()
	})
	return nil
}

// Dial connects to a ws:// URL.
func Dial(ctx context.Context, url string) (*Conn, error) {
	c, resp, err := ws.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return newConn(c), nil
}
