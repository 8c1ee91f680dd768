package dhmitm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseEndpoint(t *testing.T) {
	cases := []struct {
		in   string
		want Endpoint
	}{
		{"127.0.0.1:8080", Endpoint{Scheme: "ws", Host: "127.0.0.1:8080"}},
		{"ws://localhost:8081", Endpoint{Scheme: "ws", Host: "localhost:8081"}},
		{"ws://localhost:8081/chat", Endpoint{Scheme: "ws", Host: "localhost:8081", Path: "/chat"}},
		{"quic://[::1]:9000", Endpoint{Scheme: "quic", Host: "[::1]:9000"}},
	}
	for _, c := range cases {
		got, err := ParseEndpoint(c.in)
		if err != nil {
			t.Fatalf("ParseEndpoint(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseEndpoint(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}

	if _, err := ParseEndpoint("http://x:1"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("expected ErrUnsupportedScheme, got %v", err)
	}
	if _, err := ParseEndpoint("ws://"); err == nil {
		t.Fatalf("expected error for missing host")
	}
}

func TestListenDialBySchemes(t *testing.T) {
	for _, scheme := range []string{"ws", "quic"} {
		t.Run(scheme, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			ln, err := Listen(scheme + "://127.0.0.1:0")
			if err != nil {
				t.Fatalf("Listen: %v", err)
			}
			defer ln.Close()

			go func() {
				c, err := ln.Accept(ctx)
				if err != nil {
					return
				}
				msg, err := c.ReadMessage(ctx)
				if err == nil {
					_ = c.WriteMessage(ctx, msg)
				}
			}()

			c, err := Dial(ctx, scheme+"://"+ln.Addr())
			if err != nil {
				t.Fatalf("Dial: %v", err)
			}
			defer c.Close()
			if err := c.WriteMessage(ctx, []byte("echo")); err != nil {
				t.Fatalf("WriteMessage: %v", err)
			}
			got, err := c.ReadMessage(ctx)
			if err != nil || string(got) != "echo" {
				t.Fatalf("ReadMessage: %q, %v", got, err)
			}
		})
	}
}
