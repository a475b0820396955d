package handlers

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/lumenchat/lumen-backend/internal/cache"
	"github.com/lumenchat/lumen-backend/internal/httpx"
	"github.com/lumenchat/lumen-backend/internal/models"
	"github.com/lumenchat/lumen-backend/internal/service"
)

type ChatHandler struct {
	chatService  *service.ChatService
	readService  *service.ReadService
	messageCache *cache.MessageCache
}

func NewChatHandler(chatService *service.ChatService, readService *service.ReadService, messageCache *cache.MessageCache) *ChatHandler {
	return &ChatHandler{
		chatService:  chatService,
		readService:  readService,
		messageCache: messageCache,
	}
}

func (h *ChatHandler) CreateChat(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input service.CreateChatInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if input.Type == models.GroupChat && input.Name == "" {
		return httpx.BadRequest(c, "missing_name", "Group chats require a name")
	}

	chat, err := h.chatService.CreateChat(userID, input)
	if err != nil {
		log.Printf("Failed to create chat for user %d: %v", userID, err)
		return httpx.Internal(c, "create_chat_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(chat.ToResponse())
}

// GetMyChats lists the caller's chats with per-chat unread counts. Counts
// are served from cache when fresh and derived from the read cursor
// otherwise.
func (h *ChatHandler) GetMyChats(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	chats, err := h.chatService.ListUserChats(userID)
	if err != nil {
		log.Printf("Failed to list chats for user %d: %v", userID, err)
		return httpx.Internal(c, "list_chats_failed")
	}

	responses := make([]models.ChatResponse, 0, len(chats))
	for i := range chats {
		resp := chats[i].ToResponse()
		resp.UnreadCount = h.unreadCount(chats[i].ID, userID)
		responses = append(responses, resp)
	}

	return c.JSON(fiber.Map{"chats": responses})
}

func (h *ChatHandler) GetChat(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	chatID, err := parseChatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat id")
	}

	chat, err := h.chatService.GetChat(chatID, userID)
	if err != nil {
		return sendServiceHTTPError(c, err, "get_chat_failed")
	}

	resp := chat.ToResponse()
	resp.UnreadCount = h.unreadCount(chatID, userID)
	return c.JSON(resp)
}

func (h *ChatHandler) GetParticipants(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	chatID, err := parseChatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat id")
	}

	participants, err := h.chatService.GetParticipants(chatID, userID)
	if err != nil {
		return sendServiceHTTPError(c, err, "get_participants_failed")
	}

	return c.JSON(fiber.Map{"participants": participants})
}

func (h *ChatHandler) unreadCount(chatID, userID uint) int64 {
	if count, ok := h.messageCache.GetUnreadCount(chatID, userID); ok {
		return count
	}
	count, err := h.readService.UnreadCount(chatID, userID)
	if err != nil {
		log.Printf("Failed to derive unread count for chat %d user %d: %v", chatID, userID, err)
		return 0
	}
	if err := h.messageCache.SetUnreadCount(chatID, userID, count); err != nil {
		log.Printf("Failed to cache unread count for chat %d user %d: %v", chatID, userID, err)
	}
	return count
}

func parseChatID(c *fiber.Ctx) (uint, error) {
	raw, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(raw), nil
}
