package ws

import (
	"errors"
	"time"

	"github.com/lumenchat/lumen-backend/internal/models"
	"github.com/lumenchat/lumen-backend/internal/service"
	"github.com/lumenchat/lumen-backend/internal/validation"
)

// MessageAuthenticate is the first frame of every connection; the handshake
// in the websocket handler consumes it before the dispatch loop starts.
type MessageAuthenticate struct {
	Token string `json:"token"`
}

func (msg *MessageAuthenticate) GetType() string {
	return "authenticate"
}

func (msg *MessageAuthenticate) Process(ctx *MessageContext) error {
	// The handshake already ran; a second authenticate on a live connection
	// is a protocol violation but not worth dropping the connection over.
	return SendError(ctx.Conn, "already_authenticated", "Connection is already authenticated", "")
}

// MessageJoinChat subscribes the connection to a chat's broadcast group after
// verifying the identity has an active participant row.
type MessageJoinChat struct {
	ChatID uint `json:"chat_id"`
}

func (msg *MessageJoinChat) GetType() string {
	return "join_chat"
}

func (msg *MessageJoinChat) Process(ctx *MessageContext) error {
	ok, err := ctx.ChatService.IsActiveParticipant(msg.ChatID, ctx.UserID)
	if err != nil {
		return SendError(ctx.Conn, "internal_error", "Failed to verify chat access", err.Error())
	}
	if !ok {
		return SendError(ctx.Conn, "access_denied", "Not a participant of this chat", "")
	}

	ctx.Channels.Join(ctx.Conn, msg.ChatID)
	return ctx.Conn.WriteJSON(JoinedChatEvent{Type: EventJoinedChat, ChatID: msg.ChatID})
}

// MessageLeaveChat unsubscribes from the broadcast group only; leaving the
// chat itself is a participant-layer operation owned by the REST surface.
type MessageLeaveChat struct {
	ChatID uint `json:"chat_id"`
}

func (msg *MessageLeaveChat) GetType() string {
	return "leave_chat"
}

func (msg *MessageLeaveChat) Process(ctx *MessageContext) error {
	ctx.Channels.Leave(ctx.SessionID, msg.ChatID)
	return ctx.Conn.WriteJSON(JoinedChatEvent{Type: EventLeftChat, ChatID: msg.ChatID})
}

// MessageSend is the persist → enrich → broadcast → acknowledge pipeline.
type MessageSend struct {
	ChatID      uint               `json:"chat_id"`
	Content     string             `json:"content"`
	MessageType models.MessageType `json:"message_type"`
	ReplyToID   *uint              `json:"reply_to_id"`
	TempID      string             `json:"temp_id"`
}

func (msg *MessageSend) GetType() string {
	return "send_message"
}

func (msg *MessageSend) Process(ctx *MessageContext) error {
	content := validation.TrimAndLimit(msg.Content, validation.MaxMessageLength())
	if content == "" {
		return SendError(ctx.Conn, "invalid_content", "Content is required", "")
	}
	if !validation.ValidateMessageType(string(msg.MessageType)) {
		return SendError(ctx.Conn, "invalid_message_type", "Unsupported message type", "")
	}

	message, err := ctx.MessageService.SendMessage(ctx.UserID, service.SendMessageInput{
		ChatID:      msg.ChatID,
		Content:     content,
		MessageType: msg.MessageType,
		ReplyToID:   msg.ReplyToID,
		ClientID:    msg.TempID,
	})
	if err != nil {
		return sendServiceError(ctx.Conn, err)
	}

	ctx.MessageCache.InvalidateHistory(msg.ChatID)

	response := message.ToResponse()

	if msg.TempID == "" {
		// No correlation token: the sender's connection receives the
		// broadcast copy like everyone else.
		ctx.Channels.Broadcast(msg.ChatID, NewMessageEvent{Type: EventNewMessage, Message: response})
		return nil
	}

	// The sending connection gets a dedicated ack instead of a second copy;
	// the sender's other devices still receive the broadcast.
	ctx.Channels.BroadcastExcept(msg.ChatID, ctx.SessionID, NewMessageEvent{Type: EventNewMessage, Message: response})
	return ctx.Conn.WriteJSON(MessageSentEvent{Type: EventMessageSent, TempID: msg.TempID, Message: response})
}

// MessageEdit rewrites a message's content and bumps its edit counter.
type MessageEdit struct {
	MessageID uint   `json:"message_id"`
	Content   string `json:"content"`
}

func (msg *MessageEdit) GetType() string {
	return "edit_message"
}

func (msg *MessageEdit) Process(ctx *MessageContext) error {
	content := validation.TrimAndLimit(msg.Content, validation.MaxMessageLength())
	if content == "" {
		return SendError(ctx.Conn, "invalid_content", "Content is required", "")
	}

	message, err := ctx.MessageService.EditMessage(ctx.UserID, msg.MessageID, content)
	if err != nil {
		return sendServiceError(ctx.Conn, err)
	}

	ctx.MessageCache.InvalidateHistory(message.ChatID)
	ctx.Channels.Broadcast(message.ChatID, MessageEditedEvent{Type: EventMessageEdited, Message: message.ToResponse()})
	return nil
}

// MessageDelete soft-deletes a message; the row survives so replies still
// resolve.
type MessageDelete struct {
	MessageID uint `json:"message_id"`
}

func (msg *MessageDelete) GetType() string {
	return "delete_message"
}

func (msg *MessageDelete) Process(ctx *MessageContext) error {
	message, err := ctx.MessageService.DeleteMessage(ctx.UserID, msg.MessageID)
	if err != nil {
		return sendServiceError(ctx.Conn, err)
	}

	ctx.MessageCache.InvalidateHistory(message.ChatID)
	ctx.Channels.Broadcast(message.ChatID, MessageDeletedEvent{
		Type:      EventMessageDeleted,
		MessageID: message.ID,
		ChatID:    message.ChatID,
	})
	return nil
}

// MessageTypingStart refreshes the sender's typing entry for a chat.
type MessageTypingStart struct {
	ChatID uint `json:"chat_id"`
}

func (msg *MessageTypingStart) GetType() string {
	return "typing_start"
}

func (msg *MessageTypingStart) Process(ctx *MessageContext) error {
	if !ctx.Channels.Contains(msg.ChatID, ctx.SessionID) {
		return SendError(ctx.Conn, "access_denied", "Join the chat before typing", "")
	}
	ctx.Typing.Start(msg.ChatID, ctx.UserID)
	return nil
}

type MessageTypingStop struct {
	ChatID uint `json:"chat_id"`
}

func (msg *MessageTypingStop) GetType() string {
	return "typing_stop"
}

func (msg *MessageTypingStop) Process(ctx *MessageContext) error {
	ctx.Typing.Stop(msg.ChatID, ctx.UserID)
	return nil
}

// MessageAddReaction records an emoji reaction; a duplicate add is a silent
// no-op and produces no broadcast.
type MessageAddReaction struct {
	MessageID uint   `json:"message_id"`
	Emoji     string `json:"emoji"`
}

func (msg *MessageAddReaction) GetType() string {
	return "add_reaction"
}

func (msg *MessageAddReaction) Process(ctx *MessageContext) error {
	if !validation.ValidateEmoji(msg.Emoji) {
		return SendError(ctx.Conn, "invalid_emoji", "Invalid reaction emoji", "")
	}

	changed, message, err := ctx.ReactionService.AddReaction(ctx.UserID, msg.MessageID, msg.Emoji)
	if err != nil {
		return sendServiceError(ctx.Conn, err)
	}
	if !changed {
		return nil
	}

	ctx.MessageCache.InvalidateHistory(message.ChatID)
	ctx.Channels.Broadcast(message.ChatID, ReactionEvent{
		Type:      EventReactionAdded,
		MessageID: msg.MessageID,
		ChatID:    message.ChatID,
		UserID:    ctx.UserID,
		Emoji:     msg.Emoji,
	})
	return nil
}

type MessageRemoveReaction struct {
	MessageID uint   `json:"message_id"`
	Emoji     string `json:"emoji"`
}

func (msg *MessageRemoveReaction) GetType() string {
	return "remove_reaction"
}

func (msg *MessageRemoveReaction) Process(ctx *MessageContext) error {
	changed, message, err := ctx.ReactionService.RemoveReaction(ctx.UserID, msg.MessageID, msg.Emoji)
	if err != nil {
		return sendServiceError(ctx.Conn, err)
	}
	if !changed {
		return nil
	}

	ctx.MessageCache.InvalidateHistory(message.ChatID)
	ctx.Channels.Broadcast(message.ChatID, ReactionEvent{
		Type:      EventReactionRemoved,
		MessageID: msg.MessageID,
		ChatID:    message.ChatID,
		UserID:    ctx.UserID,
		Emoji:     msg.Emoji,
	})
	return nil
}

// MessageMarkRead advances the sender's read cursor and lets the rest of the
// chat render the read receipt.
type MessageMarkRead struct {
	ChatID uint `json:"chat_id"`
}

func (msg *MessageMarkRead) GetType() string {
	return "mark_read"
}

func (msg *MessageMarkRead) Process(ctx *MessageContext) error {
	readAt, err := ctx.ReadService.MarkRead(msg.ChatID, ctx.UserID)
	if err != nil {
		return sendServiceError(ctx.Conn, err)
	}

	ctx.MessageCache.InvalidateUnreadCount(msg.ChatID, ctx.UserID)
	ctx.Channels.BroadcastExceptUser(msg.ChatID, ctx.UserID, MessagesReadEvent{
		Type:       EventMessagesRead,
		ChatID:     msg.ChatID,
		UserID:     ctx.UserID,
		LastReadAt: readAt,
	})
	return nil
}

// MessageSetStatus applies a manual presence status, bypassing the automatic
// online/offline grace logic.
type MessageSetStatus struct {
	Status        models.PresenceStatus `json:"status"`
	StatusMessage string                `json:"status_message"`
}

func (msg *MessageSetStatus) GetType() string {
	return "set_status"
}

func (msg *MessageSetStatus) Process(ctx *MessageContext) error {
	if msg.Status != models.StatusOnline && msg.Status != models.StatusAway {
		return SendError(ctx.Conn, "invalid_status", "Status must be online or away", "")
	}
	ctx.Presence.SetManualStatus(ctx.UserID, msg.Status, msg.StatusMessage, time.Now().UTC())
	return nil
}

// sendServiceError maps service sentinels onto wire error codes, always
// addressed to the initiating connection only.
func sendServiceError(conn *ClientConnection, err error) error {
	switch {
	case errors.Is(err, service.ErrAccessDenied):
		return SendError(conn, "access_denied", "Access denied", "")
	case errors.Is(err, service.ErrNotFound):
		return SendError(conn, "not_found", "Referenced chat or message not found", "")
	case errors.Is(err, service.ErrSendFailed):
		return SendError(conn, "send_failed", "Failed to persist operation", err.Error())
	default:
		return SendError(conn, "internal_error", "Operation failed", err.Error())
	}
}
