package handlers

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/lumenchat/lumen-backend/internal/cache"
	"github.com/lumenchat/lumen-backend/internal/handlers/ws"
	"github.com/lumenchat/lumen-backend/internal/httpx"
	"github.com/lumenchat/lumen-backend/internal/models"
	"github.com/lumenchat/lumen-backend/internal/service"
)

type MessageHandler struct {
	messageService *service.MessageService
	readService    *service.ReadService
	channels       *ws.ChannelRegistry
	messageCache   *cache.MessageCache
}

func NewMessageHandler(messageService *service.MessageService, readService *service.ReadService, channels *ws.ChannelRegistry, messageCache *cache.MessageCache) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		readService:    readService,
		channels:       channels,
		messageCache:   messageCache,
	}
}

// GetChatMessages pages backwards through a chat's history. The first page
// (no cursor) is cache-eligible; cursored pages always hit the database.
func (h *MessageHandler) GetChatMessages(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	chatID, err := parseChatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat id")
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	var cursor uint
	if cursorStr := c.Query("cursor"); cursorStr != "" {
		parsed, err := strconv.ParseUint(cursorStr, 10, 32)
		if err != nil {
			return httpx.BadRequest(c, "invalid_cursor", "Invalid cursor")
		}
		cursor = uint(parsed)
	}

	if cursor == 0 {
		if cached, ok := h.messageCache.GetHistory(chatID); ok {
			// Cached pages still require a live membership check.
			allowed, err := h.messageService.HasAccess(chatID, userID)
			if err == nil && allowed {
				return c.JSON(fiber.Map{"messages": toMessageResponses(trimToLimit(cached, limit))})
			}
		}
	}

	messages, err := h.messageService.GetChatMessages(userID, chatID, cursor, limit)
	if err != nil {
		return sendServiceHTTPError(c, err, "get_messages_failed")
	}

	if cursor == 0 {
		if err := h.messageCache.SetHistory(chatID, messages); err != nil {
			log.Printf("Failed to cache history for chat %d: %v", chatID, err)
		}
	}

	return c.JSON(fiber.Map{"messages": toMessageResponses(messages)})
}

// MarkChatRead advances the caller's read cursor over HTTP; connected chat
// members still get the receipt pushed through the broadcast group.
func (h *MessageHandler) MarkChatRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	chatID, err := parseChatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat id")
	}

	readAt, err := h.readService.MarkRead(chatID, userID)
	if err != nil {
		return sendServiceHTTPError(c, err, "mark_read_failed")
	}

	h.messageCache.InvalidateUnreadCount(chatID, userID)
	if h.channels != nil {
		h.channels.BroadcastExceptUser(chatID, userID, ws.MessagesReadEvent{
			Type:       ws.EventMessagesRead,
			ChatID:     chatID,
			UserID:     userID,
			LastReadAt: readAt,
		})
	}

	return c.JSON(fiber.Map{"chat_id": chatID, "last_read_at": readAt})
}

// GetReadState reports every participant's read cursor for a chat.
func (h *MessageHandler) GetReadState(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	chatID, err := parseChatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat id")
	}

	states, err := h.readService.GetReadStates(chatID, userID)
	if err != nil {
		return sendServiceHTTPError(c, err, "get_read_state_failed")
	}

	return c.JSON(fiber.Map{"chat_id": chatID, "read_states": states})
}

func toMessageResponses(messages []models.Message) []models.MessageResponse {
	responses := make([]models.MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, messages[i].ToResponse())
	}
	return responses
}

// trimToLimit keeps the newest messages from a chronologically ordered slice.
func trimToLimit(messages []models.Message, limit int) []models.Message {
	if limit <= 0 || len(messages) <= limit {
		return messages
	}
	return messages[len(messages)-limit:]
}
