package relay

import (
	"context"

	"github.com/TheusHen/dhmitm/dhmitm/transport"
)

// outbox delivers to a connection that may not exist yet. Until Attach is
// called, messages queue up in arrival order.
type outbox struct {
	conn    transport.Conn
	pending [][]byte
}

// Send writes msg now or queues it. It reports whether msg was queued.
func (o *outbox) Send(ctx context.Context, msg []byte) (bool, error) {
	if o.conn == nil {
		o.pending = append(o.pending, append([]byte(nil), msg...))
		return true, nil
	}
	return false, o.conn.WriteMessage(ctx, msg)
}

// Attach sets the destination and flushes the queue in order.
func (o *outbox) Attach(ctx context.Context, conn transport.Conn) (int, error) {
	o.conn = conn
	flushed := 0
	for len(o.pending) > 0 {
		if err := conn.WriteMessage(ctx, o.pending[0]); err != nil {
			return flushed, err
		}
		o.pending = o.pending[1:]
		flushed++
	}
	o.pending = nil
	return flushed, nil
}

func (o *outbox) Len() int { return len(o.pending) }
