package transport

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPipeOrderAndClose(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	a, b := Pipe()
	for _, m := range []string{"one", "two", "three"} {
		if err := a.WriteMessage(ctx, []byte(m)); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
	}
	_ = a.Close()

	for _, want := range []string{"one", "two", "three"} {
		got, err := b.ReadMessage(ctx)
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		if string(got) != want {
			t.Fatalf("got %q want %q", got, want)
		}
	}
	if _, err := b.ReadMessage(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := b.WriteMessage(ctx, []byte("late")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed on write, got %v", err)
	}
}

func TestPipeReadHonoursContext(t *testing.T) {
	a, _ := Pipe()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := a.ReadMessage(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestPipeListener(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ln := NewPipeListener("pipe:test")
	accepted := make(chan Conn, 1)
	go func() {
		c, err := ln.Accept(ctx)
		if err != nil {
			accepted <- nil
			return
		}
		accepted <- c
	}()

	client, err := ln.Dial(ctx, ln.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	server := <-accepted
	if server == nil {
		t.Fatalf("Accept failed")
	}
	if err := client.WriteMessage(ctx, []byte("ping")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	got, err := server.ReadMessage(ctx)
	if err != nil || string(got) != "ping" {
		t.Fatalf("ReadMessage: %q, %v", got, err)
	}

	_ = ln.Close()
	if _, err := ln.Accept(ctx); !errors.Is(err, ErrListenerClosed) {
		t.Fatalf("expected ErrListenerClosed, got %v", err)
	}
}
