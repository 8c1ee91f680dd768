package quic

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TheusHen/dhmitm/dhmitm/transport"
)

func TestQUICMessagesInOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	addr := ln.Addr()
	require.NotEmpty(t, addr)

	type result struct {
		conn transport.Conn
		err  error
	}
	accepted := make(chan result, 1)
	go func() {
		c, err := ln.Accept(ctx)
		accepted <- result{c, err}
	}()

	client, err := Dial(ctx, addr)
	require.NoError(t, err)
	defer client.Close()

	res := <-accepted
	require.NoError(t, res.err)
	server := res.conn
	defer server.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, client.WriteMessage(ctx, []byte(fmt.Sprintf("msg-%d", i))))
	}
	for i := 0; i < 5; i++ {
		msg, err := server.ReadMessage(ctx)
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("msg-%d", i), string(msg))
	}

	require.NoError(t, server.WriteMessage(ctx, []byte("reply")))
	msg, err := client.ReadMessage(ctx)
	require.NoError(t, err)
	require.Equal(t, "reply", string(msg))

	require.NoError(t, client.Close())
	_, err = server.ReadMessage(ctx)
	require.True(t, errors.Is(err, transport.ErrClosed), "got %v", err)
}
