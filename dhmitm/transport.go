package dhmitm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/TheusHen/dhmitm/dhmitm/transport"
	"github.com/TheusHen/dhmitm/dhmitm/transport/quic"
	"github.com/TheusHen/dhmitm/dhmitm/transport/websocket"
)

var ErrUnsupportedScheme = errors.New("dhmitm: unsupported address scheme")

const (
	SchemeWebSocket = "ws"
	SchemeQUIC      = "quic"
)

// Endpoint is a parsed peer address.
type Endpoint struct {
	Scheme string
	Host   string // host:port
	Path   string
}

// ParseEndpoint accepts ws://host:port[/path], quic://host:port or a bare
// host:port, which means WebSocket.
func ParseEndpoint(addr string) (Endpoint, error) {
	if !strings.Contains(addr, "://") {
		return Endpoint{Scheme: SchemeWebSocket, Host: addr}, nil
	}
	u, err := url.Parse(addr)
	if err != nil {
		return Endpoint{}, fmt.Errorf("dhmitm: parse %q: %w", addr, err)
	}
	switch u.Scheme {
	case SchemeWebSocket, SchemeQUIC:
	default:
		return Endpoint{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return Endpoint{}, fmt.Errorf("dhmitm: %q has no host", addr)
	}
	return Endpoint{Scheme: u.Scheme, Host: u.Host, Path: u.Path}, nil
}

func (e Endpoint) String() string {
	return e.Scheme + "://" + e.Host + e.Path
}

// Dial connects to addr with the transport its scheme names.
func Dial(ctx context.Context, addr string) (transport.Conn, error) {
	ep, err := ParseEndpoint(addr)
	if err != nil {
		return nil, err
	}
	switch ep.Scheme {
	case SchemeQUIC:
		c, err := quic.Dial(ctx, ep.Host)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		c, err := websocket.Dial(ctx, ep.String())
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Listen opens a listener for addr. WebSocket listeners accept any path.
func Listen(addr string) (transport.Listener, error) {
	ep, err := ParseEndpoint(addr)
	if err != nil {
		return nil, err
	}
	switch ep.Scheme {
	case SchemeQUIC:
		ln, err := quic.Listen(ep.Host)
		if err != nil {
			return nil, err
		}
		return ln, nil
	default:
		ln, err := websocket.Listen(ep.Host)
		if err != nil {
			return nil, err
		}
		return ln, nil
	}
}

var _ transport.Dialer = Dial
