package ws

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/lumenchat/lumen-backend/internal/cache"
	"github.com/lumenchat/lumen-backend/internal/service"
)

// MessageContext provides all dependencies needed for message processing
type MessageContext struct {
	UserID    uint
	SessionID string
	Conn      *ClientConnection

	Hub      *Hub
	Channels *ChannelRegistry
	Typing   *TypingCoordinator
	Presence *PresenceTracker

	MessageService  *service.MessageService
	ChatService     *service.ChatService
	ReactionService *service.ReactionService
	ReadService     *service.ReadService

	MessageCache *cache.MessageCache
}

// Message interface for all WebSocket message types
type Message interface {
	GetType() string
	Process(ctx *MessageContext) error
}

// SerializedMessage is the wire format wrapper
type SerializedMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ErrorResponse is sent when message processing fails
type ErrorResponse struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func ToJson(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func FromJson(jsonBytes []byte, msg Message) error {
	return json.Unmarshal(jsonBytes, msg)
}

func CreateMessage(msgType string, typeRegistry map[string]reflect.Type) (Message, error) {
	msgTypeReflect, ok := typeRegistry[msgType]
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", msgType)
	}

	instance := reflect.New(msgTypeReflect).Interface()
	return instance.(Message), nil
}

// SendError sends an error response to the initiating client only. Operation
// failures never close the connection and are never broadcast.
func SendError(conn *ClientConnection, code, message, details string) error {
	errResp := ErrorResponse{
		Type:    "error",
		Error:   message,
		Code:    code,
		Details: details,
	}
	return conn.WriteJSON(errResp)
}
