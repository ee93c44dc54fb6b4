package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"go-broadcast-relay/internal/infrastructure/logger"
)

const ConnectionTypeWebSocket = "websocket"

// WebSocketOptions configures a WebSocketConnection.
type WebSocketOptions struct {
	MaxMessageSize int64
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	SendBuffer     int
}

func NewDefaultWebSocketOptions() WebSocketOptions {
	return WebSocketOptions{
		MaxMessageSize: 64 * 1024,
		WriteTimeout:   10 * time.Second,
		PongTimeout:    60 * time.Second,
		SendBuffer:     256,
	}
}

// WebSocketConnection implements the Connection interface for WebSocket connections.
// Outbound messages are queued and written as text frames by a single write pump.
type WebSocketConnection struct {
	id   string
	conn *websocket.Conn
	opts WebSocketOptions

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	logger    logger.Logger

	send chan *Message
}

// NewWebSocketConnection wraps an upgraded connection and starts its write pump.
func NewWebSocketConnection(
	id string,
	conn *websocket.Conn,
	opts WebSocketOptions,
	logger logger.Logger,
) *WebSocketConnection {
	defaults := NewDefaultWebSocketOptions()
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaults.WriteTimeout
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = defaults.PongTimeout
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaults.SendBuffer
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &WebSocketConnection{
		id:     id,
		conn:   conn,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		logger: logger.WithField("connection_id", id),
		send:   make(chan *Message, opts.SendBuffer),
	}

	go c.writePump()

	return c
}

// ID returns unique connection identifier
func (c *WebSocketConnection) ID() string {
	return c.id
}

// Type returns the connection type
func (c *WebSocketConnection) Type() string {
	return ConnectionTypeWebSocket
}

// Send queues a message for the write pump. A nil error means the message
// was accepted by the send queue, not that it reached the peer; a frame the
// pump later fails to write closes the connection instead.
func (c *WebSocketConnection) Send(ctx context.Context, message *Message) error {
	if c.IsClosed() {
		return ErrConnectionClosed
	}

	select {
	case c.send <- message:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue message %s: %w", message.ID, ctx.Err())
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Close sends a close frame and closes the underlying connection. Safe to call more than once.
func (c *WebSocketConnection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()

		deadline := time.Now().Add(c.opts.WriteTimeout)
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			deadline,
		)
		err = c.conn.Close()

		c.logger.Info("WebSocket connection closed")
	})
	return err
}

// IsClosed returns true if connection is closed
func (c *WebSocketConnection) IsClosed() bool {
	return c.ctx.Err() != nil
}

// Context is cancelled when the connection closes.
func (c *WebSocketConnection) Context() context.Context {
	return c.ctx
}

// ReadLoop blocks reading frames and hands every text frame to onText.
// It returns when the peer goes away or the connection is closed.
func (c *WebSocketConnection) ReadLoop(onText func(text string)) error {
	if c.opts.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.opts.MaxMessageSize)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				c.logger.Errorf("WebSocket read error: %v", err)
				return err
			}
			return nil
		}

		switch messageType {
		case websocket.TextMessage:
			c.logger.Debugf("Received text message (%d bytes)", len(data))
			onText(string(data))
		case websocket.BinaryMessage:
			c.logger.Debugf("Ignoring binary message of length %d", len(data))
		}
	}
}

// writePump is the only goroutine writing data frames to the connection.
func (c *WebSocketConnection) writePump() {
	// Ping before the peer's pong deadline can expire.
	ticker := time.NewTicker(c.opts.PongTimeout * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(message.Text)); err != nil {
				c.logger.Errorf("Failed to write message %s: %v", message.ID, err)
				_ = c.Close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Errorf("Failed to send ping: %v", err)
				_ = c.Close()
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}
