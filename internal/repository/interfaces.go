package repository

import (
	"time"

	"github.com/lumenchat/lumen-backend/internal/models"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	FindByID(id uint) (*models.User, error)
	FindByUsername(username string) (*models.User, error)
	UpdatePresence(userID uint, status models.PresenceStatus, statusMessage string, lastSeen *time.Time) error
}

// ChatRepositoryInterface defines the contract for chat and participant operations
type ChatRepositoryInterface interface {
	Create(chat *models.Chat, participantIDs []uint) error
	FindByID(id uint) (*models.Chat, error)
	IsActiveParticipant(chatID, userID uint) (bool, error)
	GetParticipants(chatID uint) ([]models.Participant, error)
	GetActiveParticipantUserIDs(chatID uint) ([]uint, error)
	ListChatsForUser(userID uint) ([]models.Chat, error)
}

// MessageRepositoryInterface defines the contract for message repository operations
type MessageRepositoryInterface interface {
	Create(message *models.Message) error
	FindByID(id uint) (*models.Message, error)
	FindByClientID(clientID string, senderID uint) (*models.Message, error)
	FindChatMessages(chatID uint, cursor uint, limit int) ([]models.Message, error)
	Edit(messageID uint, content string) error
	SoftDelete(messageID uint) error
	CountUnread(chatID, userID uint, after *time.Time) (int64, error)
}

// ReactionRepositoryInterface defines the contract for reaction bookkeeping.
// Add reports whether a row was actually inserted; a duplicate triple is not
// an error, it simply returns false.
type ReactionRepositoryInterface interface {
	Add(reaction *models.Reaction) (bool, error)
	Remove(messageID, userID uint, emoji string) (bool, error)
	ListForMessage(messageID uint) ([]models.Reaction, error)
}

// ReadStateRepositoryInterface defines the contract for read cursor operations.
// AdvanceLastRead is monotonic: a timestamp earlier than the stored cursor is
// silently ignored.
type ReadStateRepositoryInterface interface {
	AdvanceLastRead(chatID, userID uint, readAt time.Time) error
	GetLastRead(chatID, userID uint) (*time.Time, error)
	ListReadStates(chatID uint) ([]ReadStateRow, error)
}

// ContactRepositoryInterface defines the contract for the relationship table
// owned by the social collaborator; the core only reads accepted contacts.
type ContactRepositoryInterface interface {
	ListAcceptedContactIDs(userID uint) ([]uint, error)
}

// ReadStateRow is one participant's read cursor in a chat.
type ReadStateRow struct {
	UserID     uint       `json:"user_id"`
	LastReadAt *time.Time `json:"last_read_at"`
}
