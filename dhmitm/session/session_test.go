package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TheusHen/dhmitm/dhmitm/crypto"
	"github.com/TheusHen/dhmitm/dhmitm/protocol"
	"github.com/TheusHen/dhmitm/dhmitm/transport"
)

type chanConsole struct {
	lines chan string
}

func newChanConsole() *chanConsole { return &chanConsole{lines: make(chan string, 16)} }

func (c *chanConsole) Show(_ Role, text string) { c.lines <- text }

func expectLine(t *testing.T, c *chanConsole, want string) {
	t.Helper()
	select {
	case got := <-c.lines:
		if got != want {
			t.Fatalf("console got %q want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func TestSessionsChatOverPipe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ca, cb := transport.Pipe()
	aliceConsole, bobConsole := newChanConsole(), newChanConsole()
	established := make(chan Established, 2)

	alice, err := New(ca, Options{
		Config:        Config{Role: Initiator, PrivateKey: 6},
		Console:       aliceConsole,
		OnEstablished: func(e Established) { established <- e },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	bob, err := New(cb, Options{
		Config:        Config{Role: Responder, PrivateKey: 15},
		Console:       bobConsole,
		OnEstablished: func(e Established) { established <- e },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	aliceLines, bobLines := make(chan string), make(chan string)
	aliceDone, bobDone := make(chan error, 1), make(chan error, 1)
	go func() { aliceDone <- alice.Run(ctx, aliceLines) }()
	go func() { bobDone <- bob.Run(ctx, bobLines) }()

	for i := 0; i < 2; i++ {
		select {
		case e := <-established:
			if e.Secret != 2 {
				t.Fatalf("secret = %d, want 2", e.Secret)
			}
		case <-ctx.Done():
			t.Fatalf("handshake did not finish")
		}
	}

	aliceLines <- "hello bob"
	expectLine(t, bobConsole, "hello bob")
	bobLines <- ""
	bobLines <- "hi alice"
	expectLine(t, aliceConsole, "hi alice")

	close(aliceLines)
	if err := <-aliceDone; err != nil {
		t.Fatalf("alice Run: %v", err)
	}
	if err := <-bobDone; err != nil {
		t.Fatalf("bob Run: %v", err)
	}
	if alice.State() != StateClosed || bob.State() != StateClosed {
		t.Fatalf("states: %v / %v", alice.State(), bob.State())
	}
}

func TestSessionKeyTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, cb := transport.Pipe()
	bob, err := New(cb, Options{
		Config:     Config{Role: Responder},
		KeyTimeout: 30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := bob.Run(ctx, nil); !errors.Is(err, ErrKeyTimeout) {
		t.Fatalf("expected ErrKeyTimeout, got %v", err)
	}
}

func TestSessionSurvivesEarlyCiphertext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	peer, cb := transport.Pipe()
	console := newChanConsole()
	bob, err := New(cb, Options{Config: Config{Role: Responder, PrivateKey: 15}, Console: console})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- bob.Run(ctx, nil) }()

	send := func(e protocol.Envelope) {
		b, _ := protocol.Encode(e)
		if err := peer.WriteMessage(ctx, b); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
	}
	send(protocol.EncryptedMessage(crypto.Encrypt("too soon", 2)))
	send(protocol.PublicKey(8))

	reply, err := peer.ReadMessage(ctx)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	env, err := protocol.Decode(reply)
	if err != nil || env != protocol.PublicKey(19) {
		t.Fatalf("expected responder key 19, got %+v, %v", env, err)
	}

	send(protocol.EncryptedMessage("!!!"))
	send(protocol.EncryptedMessage(crypto.Encrypt("on time", 2)))
	expectLine(t, console, "on time")

	_ = peer.Close()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestSessionContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, cb := transport.Pipe()
	bob, err := New(cb, Options{Config: Config{Role: Responder}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- bob.Run(ctx, nil) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop on cancel")
	}
}
