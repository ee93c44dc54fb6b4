package inbound

import (
	"context"

	"go-broadcast-relay/internal/infrastructure/hub"
)

// RelayUseCase is what transports and the REST API drive.
type RelayUseCase interface {
	// Connect registers a freshly accepted connection. It fails with
	// hub.ErrHubStopped once the relay is shutting down.
	Connect(conn hub.Connection) error
	// Disconnect forgets a connection. Safe to call for unknown connections.
	Disconnect(conn hub.Connection)
	// Receive relays text received from connID to every connection, the sender included.
	Receive(ctx context.Context, connID, text string) (*hub.BroadcastResult, error)
	// Push broadcasts a server-originated message.
	Push(ctx context.Context, text string) (*hub.BroadcastResult, error)

	IsRunning() bool
	ConnectionCount() int
	Connections() []hub.Connection
	ConnectionsByType(connType string) []hub.Connection
}
