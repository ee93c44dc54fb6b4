package hub

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType defines common message types
type MessageType string

const (
	MessageTypeText      MessageType = "text"
	MessageTypeBroadcast MessageType = "broadcast"
	MessageTypeConnected MessageType = "connected"
	MessageTypeKeepAlive MessageType = "keepalive"
)

const (
	HeaderTimestamp = "timestamp"
	HeaderOrigin    = "origin"
)

// MessageBuilder helps build messages with fluent interface
type MessageBuilder struct {
	message *Message
}

// NewMessageBuilder creates a new message builder
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{
		message: &Message{
			Headers: make(map[string]string),
		},
	}
}

// WithID sets the message ID
func (mb *MessageBuilder) WithID(id string) *MessageBuilder {
	mb.message.ID = id
	return mb
}

// WithType sets the message type
func (mb *MessageBuilder) WithType(msgType MessageType) *MessageBuilder {
	mb.message.Type = string(msgType)
	return mb
}

// WithText sets the message payload
func (mb *MessageBuilder) WithText(text string) *MessageBuilder {
	mb.message.Text = text
	return mb
}

// WithHeader adds a header to the message
func (mb *MessageBuilder) WithHeader(key, value string) *MessageBuilder {
	mb.message.Headers[key] = value
	return mb
}

// WithOrigin records the connection the message was received from.
func (mb *MessageBuilder) WithOrigin(connID string) *MessageBuilder {
	return mb.WithHeader(HeaderOrigin, connID)
}

// WithTimestamp adds a timestamp to the message
func (mb *MessageBuilder) WithTimestamp() *MessageBuilder {
	return mb.WithHeader(HeaderTimestamp, time.Now().UTC().Format(time.RFC3339))
}

// Build returns the constructed message. The builder must not be reused.
func (mb *MessageBuilder) Build() *Message {
	if mb.message.ID == "" {
		mb.message.ID = uuid.NewString()
	}
	if _, exists := mb.message.Headers[HeaderTimestamp]; !exists {
		mb.WithTimestamp()
	}
	return mb.message
}

// TextMessage creates a message relayed from a client.
func TextMessage(originID, text string) *Message {
	return NewMessageBuilder().
		WithType(MessageTypeText).
		WithText(text).
		WithOrigin(originID).
		Build()
}

// BroadcastMessage creates a server-initiated push.
func BroadcastMessage(text string) *Message {
	return NewMessageBuilder().
		WithType(MessageTypeBroadcast).
		WithText(text).
		Build()
}

// ConnectedMessage greets a freshly registered stream.
func ConnectedMessage(connID string) *Message {
	return NewMessageBuilder().
		WithType(MessageTypeConnected).
		WithText(connID).
		Build()
}

// KeepAliveMessage creates a keep-alive message
func KeepAliveMessage() *Message {
	return NewMessageBuilder().
		WithType(MessageTypeKeepAlive).
		Build()
}

// MessageValidator validates messages before sending
type MessageValidator struct {
	maxTextSize int
}

// NewMessageValidator creates a validator. A maxTextSize of zero disables the size check.
func NewMessageValidator(maxTextSize int) *MessageValidator {
	return &MessageValidator{maxTextSize: maxTextSize}
}

// Validate validates a message
func (mv *MessageValidator) Validate(message *Message) error {
	if message == nil {
		return fmt.Errorf("message cannot be nil")
	}

	if message.ID == "" {
		return fmt.Errorf("message ID cannot be empty")
	}

	if message.Type == "" {
		return fmt.Errorf("message type cannot be empty")
	}

	if mv.maxTextSize > 0 && len(message.Text) > mv.maxTextSize {
		return fmt.Errorf("message text exceeds %d bytes", mv.maxTextSize)
	}

	return nil
}
