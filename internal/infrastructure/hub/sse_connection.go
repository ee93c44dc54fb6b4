package hub

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sse"

	"go-broadcast-relay/internal/infrastructure/logger"
)

const ConnectionTypeSSE = "sse"

// SSEConnection implements the Connection interface for Server-Sent Events.
// It is receive-only from the client's point of view.
type SSEConnection struct {
	id     string
	writer http.ResponseWriter
	rc     *http.ResponseController

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	writeMu   sync.Mutex

	writeTimeout time.Duration
	logger       logger.Logger
}

// NewSSEConnection creates a new SSE connection bound to the request context.
// A positive keepAlive starts periodic keep-alive events.
func NewSSEConnection(
	ctx context.Context,
	id string,
	w http.ResponseWriter,
	keepAlive time.Duration,
	logger logger.Logger,
) *SSEConnection {
	rctx, cancel := context.WithCancel(ctx)

	conn := &SSEConnection{
		id:           id,
		writer:       w,
		rc:           http.NewResponseController(w),
		ctx:          rctx,
		cancel:       cancel,
		writeTimeout: 10 * time.Second,
		logger:       logger.WithField("connection_id", id),
	}

	conn.setupSSEHeaders()

	if keepAlive > 0 {
		go conn.keepAlive(keepAlive)
	}

	return conn
}

// ID returns unique connection identifier
func (c *SSEConnection) ID() string {
	return c.id
}

// Type returns the connection type
func (c *SSEConnection) Type() string {
	return ConnectionTypeSSE
}

// Send writes one event and flushes it. Writes are serialized with each
// other and with Close, so no write reaches the response once Close has
// returned.
func (c *SSEConnection) Send(ctx context.Context, message *Message) error {
	if c.IsClosed() {
		return ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	// The stream may have been closed while this call waited for the lock.
	if c.IsClosed() {
		return ErrConnectionClosed
	}

	// Long-lived streams outlive the server's WriteTimeout; move the deadline per event.
	_ = c.rc.SetWriteDeadline(time.Now().Add(c.writeTimeout))

	err := sse.Encode(c.writer, sse.Event{
		Id:    message.ID,
		Event: message.Type,
		Data:  message.Text,
	})
	if err != nil {
		c.logger.Errorf("Failed to write event: %v", err)
		c.closeLocked()
		return fmt.Errorf("write event %s: %w", message.ID, err)
	}

	if err := c.rc.Flush(); err != nil {
		c.closeLocked()
		return fmt.Errorf("flush event %s: %w", message.ID, err)
	}
	return nil
}

// Close marks the stream closed; the handler serving it then returns.
// It waits for an in-flight write to finish.
func (c *SSEConnection) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.closeLocked()
	return nil
}

// closeLocked requires writeMu.
func (c *SSEConnection) closeLocked() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.logger.Info("SSE connection closed")
	})
}

// IsClosed returns true if connection is closed
func (c *SSEConnection) IsClosed() bool {
	return c.ctx.Err() != nil
}

// Context returns the connection's context (for cancellation)
func (c *SSEConnection) Context() context.Context {
	return c.ctx
}

func (c *SSEConnection) setupSSEHeaders() {
	c.writer.Header().Set("Content-Type", "text/event-stream")
	c.writer.Header().Set("Cache-Control", "no-cache")
	c.writer.Header().Set("Connection", "keep-alive")
	c.writer.Header().Set("X-Accel-Buffering", "no") // For nginx
}

func (c *SSEConnection) keepAlive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Send(c.ctx, KeepAliveMessage()); err != nil {
				c.logger.Warnf("Keep-alive failed: %v", err)
				_ = c.Close()
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}
