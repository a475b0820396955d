package client

import (
	"encoding/json"

	"github.com/lumenchat/lumen-backend/internal/models"
)

// ServerEvent is one inbound event with its raw payload preserved so the
// application can decode event-specific fields.
type ServerEvent struct {
	Type string
	Raw  json.RawMessage
}

// Inbound event shapes the client decodes itself.
type authenticatedEvent struct {
	Type string              `json:"type"`
	User models.UserResponse `json:"user"`
}

type authErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type messageSentEvent struct {
	Type    string                 `json:"type"`
	TempID  string                 `json:"temp_id"`
	Message models.MessageResponse `json:"message"`
}

// serializedFrame is the client-to-server wire wrapper.
type serializedFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Outbound payloads.
type authenticatePayload struct {
	Token string `json:"token"`
}

type chatPayload struct {
	ChatID uint `json:"chat_id"`
}

type sendMessagePayload struct {
	ChatID      uint   `json:"chat_id"`
	Content     string `json:"content"`
	MessageType string `json:"message_type,omitempty"`
	ReplyToID   *uint  `json:"reply_to_id,omitempty"`
	TempID      string `json:"temp_id"`
}

type reactionPayload struct {
	MessageID uint   `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type editMessagePayload struct {
	MessageID uint   `json:"message_id"`
	Content   string `json:"content"`
}

type deleteMessagePayload struct {
	MessageID uint `json:"message_id"`
}

type setStatusPayload struct {
	Status        string `json:"status"`
	StatusMessage string `json:"status_message,omitempty"`
}

// SendResult resolves a pending optimistic send.
type SendResult struct {
	Message models.MessageResponse
	Err     error
}

// eventType peeks at the type discriminator of an inbound frame.
func eventType(frame []byte) (string, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &probe); err != nil {
		return "", err
	}
	return probe.Type, nil
}
