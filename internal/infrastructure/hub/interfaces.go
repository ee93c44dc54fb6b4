package hub

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrConnectionClosed = errors.New("connection is closed")
	ErrSendTimeout      = errors.New("send timeout")
	ErrHubStopped       = errors.New("hub is stopped")
)

// Connection is the hub's view of a client channel (SSE, WebSocket, etc.).
// The transport owns its lifecycle; the hub only tracks membership and sends.
type Connection interface {
	ID() string
	Type() string
	Send(ctx context.Context, message *Message) error
}

// Message is an immutable text payload. It carries no addressing metadata.
type Message struct {
	ID      string            `json:"id"`
	Type    string            `json:"type"`
	Text    string            `json:"text"`
	Headers map[string]string `json:"headers,omitempty"`
}

// SendFailure records a failed send to one connection during a broadcast.
type SendFailure struct {
	ConnectionID string `json:"connection_id"`
	Err          error  `json:"-"`
}

func (f SendFailure) Error() string {
	return fmt.Sprintf("send to connection %s: %v", f.ConnectionID, f.Err)
}

func (f SendFailure) Unwrap() error { return f.Err }

// BroadcastResult is the outcome of one Broadcast call.
type BroadcastResult struct {
	MessageID string        `json:"message_id"`
	Attempted int           `json:"attempted"`
	Delivered int           `json:"delivered"`
	Failures  []SendFailure `json:"failures,omitempty"`
}

// Failed reports whether the send to connID failed.
func (r *BroadcastResult) Failed(connID string) bool {
	for _, f := range r.Failures {
		if f.ConnectionID == connID {
			return true
		}
	}
	return false
}
