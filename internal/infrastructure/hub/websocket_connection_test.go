package hub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-broadcast-relay/internal/infrastructure/logger"
)

// newWebSocketPair returns the server side wrapped as a WebSocketConnection
// and the raw client side.
func newWebSocketPair(t *testing.T) (*WebSocketConnection, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	accepted := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- c
	}))
	t.Cleanup(server.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	conn := NewWebSocketConnection("ws-1", <-accepted, NewDefaultWebSocketOptions(), logger.NewNop())
	t.Cleanup(func() { _ = conn.Close() })
	return conn, client
}

func TestWebSocketConnection_SendWritesTextFrame(t *testing.T) {
	conn, client := newWebSocketPair(t)

	require.NoError(t, conn.Send(context.Background(), BroadcastMessage("hello")))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	msgType, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)
	assert.Equal(t, "hello", string(data))
}

func TestWebSocketConnection_SendSucceedsOnceQueued(t *testing.T) {
	conn, client := newWebSocketPair(t)
	require.NoError(t, client.Close())

	// The peer is gone but nothing has noticed yet, so the message is still accepted.
	assert.NoError(t, conn.Send(context.Background(), BroadcastMessage("lost")))

	// The write pump's failure closes the connection and later sends are refused.
	assert.Eventually(t, func() bool {
		err := conn.Send(context.Background(), BroadcastMessage("retry"))
		return errors.Is(err, ErrConnectionClosed)
	}, 5*time.Second, 10*time.Millisecond)
	assert.True(t, conn.IsClosed())
}

func TestWebSocketConnection_SendAfterClose(t *testing.T) {
	conn, _ := newWebSocketPair(t)
	require.NoError(t, conn.Close())

	assert.ErrorIs(t, conn.Send(context.Background(), BroadcastMessage("late")), ErrConnectionClosed)
}
