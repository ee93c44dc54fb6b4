package hub

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBuilder_FillsIDAndTimestamp(t *testing.T) {
	msg := NewMessageBuilder().WithType(MessageTypeBroadcast).WithText("hi").Build()

	_, err := uuid.Parse(msg.ID)
	require.NoError(t, err)
	ts, ok := msg.Headers[HeaderTimestamp]
	require.True(t, ok)
	_, err = time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)
}

func TestMessageBuilder_KeepsExplicitValues(t *testing.T) {
	msg := NewMessageBuilder().
		WithID("fixed").
		WithType(MessageTypeText).
		WithHeader(HeaderTimestamp, "then").
		WithOrigin("conn-1").
		Build()

	assert.Equal(t, "fixed", msg.ID)
	assert.Equal(t, "then", msg.Headers[HeaderTimestamp])
	assert.Equal(t, "conn-1", msg.Headers[HeaderOrigin])
}

func TestTextMessage(t *testing.T) {
	msg := TextMessage("conn-7", "hello")

	assert.Equal(t, string(MessageTypeText), msg.Type)
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, "conn-7", msg.Headers[HeaderOrigin])
	assert.NotEqual(t, msg.ID, TextMessage("conn-7", "hello").ID)
}

func TestMessageValidator(t *testing.T) {
	v := NewMessageValidator(8)

	assert.NoError(t, v.Validate(BroadcastMessage("short")))
	assert.Error(t, v.Validate(nil))
	assert.Error(t, v.Validate(&Message{Type: "text"}))
	assert.Error(t, v.Validate(&Message{ID: "x"}))
	assert.Error(t, v.Validate(BroadcastMessage(strings.Repeat("a", 9))))

	assert.NoError(t, NewMessageValidator(0).Validate(BroadcastMessage(strings.Repeat("a", 1<<16))))
}
