package facade

import (
	"context"
	"fmt"

	"go-broadcast-relay/internal/infrastructure/hub"
	"go-broadcast-relay/internal/infrastructure/logger"
	"go-broadcast-relay/internal/port/inbound"
)

type RelayApplicationService struct {
	hub       *hub.Hub
	validator *hub.MessageValidator
	logger    logger.Logger
}

var _ inbound.RelayUseCase = (*RelayApplicationService)(nil)

// NewRelayApplicationService wires the use cases onto hubInstance.
// maxTextSize of zero accepts any payload size.
func NewRelayApplicationService(hubInstance *hub.Hub, maxTextSize int, logger logger.Logger) *RelayApplicationService {
	return &RelayApplicationService{
		hub:       hubInstance,
		validator: hub.NewMessageValidator(maxTextSize),
		logger:    logger.WithField("service", "relay"),
	}
}

func (s *RelayApplicationService) Connect(conn hub.Connection) error {
	return s.hub.OnConnect(conn)
}

func (s *RelayApplicationService) Disconnect(conn hub.Connection) {
	s.hub.OnDisconnect(conn)
}

func (s *RelayApplicationService) Receive(ctx context.Context, connID, text string) (*hub.BroadcastResult, error) {
	s.logger.Debugf("Text message received from %s, relaying", connID)
	return s.broadcast(ctx, hub.TextMessage(connID, text))
}

func (s *RelayApplicationService) Push(ctx context.Context, text string) (*hub.BroadcastResult, error) {
	s.logger.Infof("Pushing server message to %d connections", s.hub.ConnectionCount())
	return s.broadcast(ctx, hub.BroadcastMessage(text))
}

func (s *RelayApplicationService) broadcast(ctx context.Context, message *hub.Message) (*hub.BroadcastResult, error) {
	if err := s.validator.Validate(message); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	result := s.hub.Broadcast(ctx, message)
	if len(result.Failures) > 0 {
		s.logger.Warnf(
			"Message %s reached %d of %d connections",
			message.ID, result.Delivered, result.Attempted,
		)
	}
	return result, nil
}

func (s *RelayApplicationService) IsRunning() bool {
	return s.hub.IsRunning()
}

func (s *RelayApplicationService) ConnectionCount() int {
	return s.hub.ConnectionCount()
}

func (s *RelayApplicationService) Connections() []hub.Connection {
	return s.hub.GetConnections()
}

func (s *RelayApplicationService) ConnectionsByType(connType string) []hub.Connection {
	return s.hub.GetConnectionsByType(connType)
}
