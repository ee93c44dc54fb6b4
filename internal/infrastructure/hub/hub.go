package hub

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"go-broadcast-relay/internal/infrastructure/logger"
	"go-broadcast-relay/internal/infrastructure/metrics"
)

// Config tunes broadcast delivery.
type Config struct {
	// SendTimeout bounds a single per-connection send.
	SendTimeout time.Duration
	// MaxConcurrentSends bounds the broadcast fan-out. Zero or less means unbounded.
	MaxConcurrentSends int
}

func NewDefaultConfig() *Config {
	return &Config{
		SendTimeout:        10 * time.Second,
		MaxConcurrentSends: 64,
	}
}

// Hub is the registry of live connections and the broadcast dispatcher.
//
// Membership changes take the write lock; Broadcast copies the membership
// under the read lock and sends outside it. Broadcasts are therefore not
// serialized with each other, and a connection added or removed while a
// broadcast is in flight may or may not see that message. Every connection
// in the snapshot is attempted exactly once.
type Hub struct {
	connections   map[string]Connection
	connectionsMu sync.RWMutex

	running   bool
	runningMu sync.RWMutex

	sendTimeout        time.Duration
	maxConcurrentSends int

	logger  logger.Logger
	metrics *metrics.HubMetrics
}

// New creates a new Hub instance. m may be nil.
func New(logger logger.Logger, cfg *Config, m *metrics.HubMetrics) *Hub {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	sendTimeout := cfg.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = NewDefaultConfig().SendTimeout
	}

	return &Hub{
		connections:        make(map[string]Connection),
		running:            true,
		sendTimeout:        sendTimeout,
		maxConcurrentSends: cfg.MaxConcurrentSends,
		logger:             logger.WithField("component", "hub"),
		metrics:            m,
	}
}

// IsRunning returns false once Shutdown has been called.
func (h *Hub) IsRunning() bool {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	return h.running
}

// OnConnect registers conn under its ID. A second registration with an ID
// that is already present replaces the earlier entry; transports must hand
// out unique IDs per live connection.
//
// Once Shutdown has started, conn is not registered and ErrHubStopped is
// returned; the caller still owns conn and must close it.
func (h *Hub) OnConnect(conn Connection) error {
	h.connectionsMu.Lock()
	// Checked under connectionsMu: Shutdown clears running before it swaps
	// the registry, so a connection is either rejected here or closed there.
	if !h.IsRunning() {
		h.connectionsMu.Unlock()
		h.logger.Warnf("Connection %s rejected, hub is stopped", conn.ID())
		return ErrHubStopped
	}
	h.connections[conn.ID()] = conn
	count := len(h.connections)
	h.connectionsMu.Unlock()

	h.metrics.SetActiveConnections(count)
	h.logger.Infof("Connection %s registered (type: %s, total: %d)", conn.ID(), conn.Type(), count)
	return nil
}

// OnDisconnect removes conn from the registry. Unknown IDs are ignored.
func (h *Hub) OnDisconnect(conn Connection) {
	h.connectionsMu.Lock()
	_, exists := h.connections[conn.ID()]
	if exists {
		delete(h.connections, conn.ID())
	}
	count := len(h.connections)
	h.connectionsMu.Unlock()

	if !exists {
		return
	}
	h.metrics.SetActiveConnections(count)
	h.logger.Infof("Connection %s unregistered (total: %d)", conn.ID(), count)
}

// GetConnection returns a connection by ID
func (h *Hub) GetConnection(connID string) (Connection, bool) {
	h.connectionsMu.RLock()
	defer h.connectionsMu.RUnlock()

	conn, exists := h.connections[connID]
	return conn, exists
}

// GetConnections returns a point-in-time copy of the registered connections.
func (h *Hub) GetConnections() []Connection {
	h.connectionsMu.RLock()
	defer h.connectionsMu.RUnlock()

	connections := make([]Connection, 0, len(h.connections))
	for _, conn := range h.connections {
		connections = append(connections, conn)
	}
	return connections
}

// GetConnectionsByType returns connections of a specific type
func (h *Hub) GetConnectionsByType(connType string) []Connection {
	h.connectionsMu.RLock()
	defer h.connectionsMu.RUnlock()

	var connections []Connection
	for _, conn := range h.connections {
		if conn.Type() == connType {
			connections = append(connections, conn)
		}
	}
	return connections
}

// ConnectionCount returns the number of active connections
func (h *Hub) ConnectionCount() int {
	h.connectionsMu.RLock()
	defer h.connectionsMu.RUnlock()
	return len(h.connections)
}

// Broadcast sends message to every registered connection, the sender
// included. A failed send is recorded in the result and logged; it neither
// stops delivery to the others nor removes the connection, since the
// transport alone decides when a connection is gone. A nil message is
// attempted on no connection and yields an empty result.
func (h *Hub) Broadcast(ctx context.Context, message *Message) *BroadcastResult {
	if message == nil {
		h.logger.Warn("Broadcast called with nil message")
		return &BroadcastResult{}
	}

	connections := h.GetConnections()
	result := &BroadcastResult{
		MessageID: message.ID,
		Attempted: len(connections),
	}

	var (
		mu sync.Mutex
		eg errgroup.Group
	)
	if h.maxConcurrentSends > 0 {
		eg.SetLimit(h.maxConcurrentSends)
	}

	for _, conn := range connections {
		eg.Go(func() error {
			err := h.send(ctx, conn, message)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures = append(result.Failures, SendFailure{ConnectionID: conn.ID(), Err: err})
				return nil
			}
			result.Delivered++
			return nil
		})
	}
	_ = eg.Wait()

	slices.SortFunc(result.Failures, func(a, b SendFailure) int {
		return cmp.Compare(a.ConnectionID, b.ConnectionID)
	})

	h.metrics.ObserveBroadcast()
	h.logger.Infof(
		"Broadcasted message %s to %d connections (%d delivered, %d failed)",
		message.ID, result.Attempted, result.Delivered, len(result.Failures),
	)
	return result
}

// send delivers to one connection, giving up after the hub's send timeout
// even if the connection ignores its context.
func (h *Hub) send(ctx context.Context, conn Connection, message *Message) error {
	sendCtx, cancel := context.WithTimeout(ctx, h.sendTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- conn.Send(sendCtx, message)
	}()

	var err error
	select {
	case err = <-done:
	case <-sendCtx.Done():
		if errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrSendTimeout, h.sendTimeout)
		} else {
			err = sendCtx.Err()
		}
	}

	h.metrics.ObserveSend(time.Since(start), err)
	if err != nil {
		h.logger.Errorf("Failed to send message %s to connection %s: %v", message.ID, conn.ID(), err)
	}
	return err
}

// Shutdown closes every registered connection that can be closed and
// empties the registry. Later OnDisconnect calls from the transport are
// no-ops and later OnConnect calls are rejected.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.runningMu.Lock()
	if !h.running {
		h.runningMu.Unlock()
		return nil
	}
	h.running = false
	h.runningMu.Unlock()

	h.connectionsMu.Lock()
	connections := h.connections
	h.connections = make(map[string]Connection)
	h.connectionsMu.Unlock()
	h.metrics.SetActiveConnections(0)

	var errs []error
	for id, conn := range connections {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("shutdown interrupted: %w", err))
			break
		}
		closer, ok := conn.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			h.logger.Errorf("Failed to close connection %s: %v", id, err)
			errs = append(errs, fmt.Errorf("close connection %s: %w", id, err))
		}
	}

	h.logger.Infof("Hub stopped, %d connections closed", len(connections))
	return errors.Join(errs...)
}
