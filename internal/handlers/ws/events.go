package ws

import (
	"time"

	"github.com/lumenchat/lumen-backend/internal/models"
)

// Server-to-client event names.
const (
	EventAuthenticated     = "authenticated"
	EventAuthError         = "auth_error"
	EventJoinedChat        = "joined_chat"
	EventLeftChat          = "left_chat"
	EventMessageSent       = "message_sent"
	EventNewMessage        = "new_message"
	EventMessageEdited     = "message_edited"
	EventMessageDeleted    = "message_deleted"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventReactionAdded     = "reaction_added"
	EventReactionRemoved   = "reaction_removed"
	EventMessagesRead      = "messages_read"
	EventUserStatusUpdate  = "user_status_update"
)

type AuthenticatedEvent struct {
	Type string              `json:"type"`
	User models.UserResponse `json:"user"`
}

type AuthErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type JoinedChatEvent struct {
	Type   string `json:"type"`
	ChatID uint   `json:"chat_id"`
}

// NewMessageEvent carries a freshly persisted message to every subscribed
// connection except the sending one.
type NewMessageEvent struct {
	Type    string                 `json:"type"`
	Message models.MessageResponse `json:"message"`
}

// MessageSentEvent is the sender's acknowledgment, correlating the client's
// optimistic tempId with the canonical message.
type MessageSentEvent struct {
	Type    string                 `json:"type"`
	TempID  string                 `json:"temp_id"`
	Message models.MessageResponse `json:"message"`
}

type MessageEditedEvent struct {
	Type    string                 `json:"type"`
	Message models.MessageResponse `json:"message"`
}

type MessageDeletedEvent struct {
	Type      string `json:"type"`
	MessageID uint   `json:"message_id"`
	ChatID    uint   `json:"chat_id"`
}

type UserTypingEvent struct {
	Type   string `json:"type"`
	ChatID uint   `json:"chat_id"`
	UserID uint   `json:"user_id"`
}

type ReactionEvent struct {
	Type      string `json:"type"`
	MessageID uint   `json:"message_id"`
	ChatID    uint   `json:"chat_id"`
	UserID    uint   `json:"user_id"`
	Emoji     string `json:"emoji"`
}

type MessagesReadEvent struct {
	Type       string    `json:"type"`
	ChatID     uint      `json:"chat_id"`
	UserID     uint      `json:"user_id"`
	LastReadAt time.Time `json:"last_read_at"`
}

type UserStatusEvent struct {
	Type          string                `json:"type"`
	UserID        uint                  `json:"user_id"`
	Status        models.PresenceStatus `json:"status"`
	StatusMessage string                `json:"status_message,omitempty"`
	LastSeen      *time.Time            `json:"last_seen,omitempty"`
}
