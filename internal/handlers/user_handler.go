package handlers

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/lumenchat/lumen-backend/internal/cache"
	"github.com/lumenchat/lumen-backend/internal/httpx"
	"github.com/lumenchat/lumen-backend/internal/models"
	"github.com/lumenchat/lumen-backend/internal/repository"
	"github.com/lumenchat/lumen-backend/internal/service"
	"github.com/lumenchat/lumen-backend/internal/validation"
)

type UserHandler struct {
	userService   *service.UserService
	contactRepo   repository.ContactRepositoryInterface
	presenceCache *cache.PresenceCache
}

func NewUserHandler(userService *service.UserService, contactRepo repository.ContactRepositoryInterface, presenceCache *cache.PresenceCache) *UserHandler {
	return &UserHandler{
		userService:   userService,
		contactRepo:   contactRepo,
		presenceCache: presenceCache,
	}
}

func (h *UserHandler) GetCurrentUser(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	user, err := h.userService.GetUser(userID)
	if err != nil {
		return sendServiceHTTPError(c, err, "get_user_failed")
	}

	return c.JSON(user.ToResponse())
}

func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	if _, err := httpx.LocalUint(c, "userID"); err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	targetID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user id")
	}

	user, err := h.userService.GetUser(uint(targetID))
	if err != nil {
		return sendServiceHTTPError(c, err, "get_user_failed")
	}

	return c.JSON(user.ToResponse())
}

func (h *UserHandler) LookupByUsername(c *fiber.Ctx) error {
	if _, err := httpx.LocalUint(c, "userID"); err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	username := validation.NormalizeUsername(c.Query("username"))
	if !validation.ValidateUsername(username) {
		return httpx.BadRequest(c, "invalid_username", "Invalid username")
	}

	user, err := h.userService.GetUserByUsername(username)
	if err != nil {
		return sendServiceHTTPError(c, err, "lookup_user_failed")
	}

	return c.JSON(user.ToResponse())
}

// GetPresence serves a user's presence snapshot, preferring the cache and
// falling back to the persisted status columns.
func (h *UserHandler) GetPresence(c *fiber.Ctx) error {
	if _, err := httpx.LocalUint(c, "userID"); err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	targetID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user id")
	}

	if state, ok := h.presenceCache.GetPresence(uint(targetID)); ok {
		return c.JSON(state)
	}

	user, err := h.userService.GetUser(uint(targetID))
	if err != nil {
		return sendServiceHTTPError(c, err, "get_presence_failed")
	}

	state := models.PresenceState{
		UserID:        user.ID,
		Status:        user.Status,
		StatusMessage: user.StatusMessage,
		LastSeen:      user.LastSeen,
	}
	if state.Status == "" {
		state.Status = models.StatusOffline
	}
	return c.JSON(state)
}

// GetContacts lists the caller's accepted contacts with their presence.
func (h *UserHandler) GetContacts(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	contactIDs, err := h.contactRepo.ListAcceptedContactIDs(userID)
	if err != nil {
		log.Printf("Failed to list contacts for user %d: %v", userID, err)
		return httpx.Internal(c, "list_contacts_failed")
	}

	contacts := make([]models.UserResponse, 0, len(contactIDs))
	for _, id := range contactIDs {
		user, err := h.userService.GetUser(id)
		if err != nil {
			continue
		}
		contacts = append(contacts, user.ToResponse())
	}

	return c.JSON(fiber.Map{"contacts": contacts})
}
