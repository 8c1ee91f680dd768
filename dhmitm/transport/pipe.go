package transport

import (
	"context"
	"sync"
)

// Pipe returns two connected in-memory Conns. Messages written to one side are
// read from the other in order. Closing either side closes both.
func Pipe() (Conn, Conn) {
	shared := &pipeState{done: make(chan struct{})}
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	a := &pipeConn{state: shared, in: ba, out: ab, name: "pipe:a"}
	b := &pipeConn{state: shared, in: ab, out: ba, name: "pipe:b"}
	return a, b
}

type pipeState struct {
	once sync.Once
	done chan struct{}
}

type pipeConn struct {
	state *pipeState
	in    <-chan []byte
	out   chan<- []byte
	name  string
}

func (c *pipeConn) ReadMessage(ctx context.Context) ([]byte, error) {
	// Drain what the peer sent before it closed.
	select {
	case msg := <-c.in:
		return msg, nil
	default:
	}
	select {
	case msg := <-c.in:
		return msg, nil
	case <-c.state.done:
		select {
		case msg := <-c.in:
			return msg, nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *pipeConn) WriteMessage(ctx context.Context, msg []byte) error {
	select {
	case <-c.state.done:
		return ErrClosed
	default:
	}
	cp := append([]byte(nil), msg...)
	select {
	case c.out <- cp:
		return nil
	case <-c.state.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *pipeConn) Close() error {
	c.state.once.Do(func() { close(c.state.done) })
	return nil
}

func (c *pipeConn) RemoteAddr() string { return c.name }

// PipeListener hands out the server ends of in-memory pipes created by Dial.
type PipeListener struct {
	name    string
	pending chan Conn
	once    sync.Once
	done    chan struct{}
}

func NewPipeListener(name string) *PipeListener {
	return &PipeListener{
		name:    name,
		pending: make(chan Conn),
		done:    make(chan struct{}),
	}
}

// Dial creates a pipe and blocks until Accept takes the server end.
func (l *PipeListener) Dial(ctx context.Context, _ string) (Conn, error) {
	client, server := Pipe()
	select {
	case l.pending <- server:
		return client, nil
	case <-l.done:
		return nil, ErrListenerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *PipeListener) Accept(ctx context.Context) (Conn, error) {
	select {
	case c := <-l.pending:
		return c, nil
	case <-l.done:
		return nil, ErrListenerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *PipeListener) Addr() string { return l.name }

func (l *PipeListener) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}
