package repository

import (
	"github.com/lumenchat/lumen-backend/internal/models"
	"gorm.io/gorm"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(chat *models.Chat, participantIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		for _, userID := range participantIDs {
			role := models.RoleMember
			if userID == chat.CreatorID {
				role = models.RoleAdmin
			}
			participant := models.Participant{
				ChatID: chat.ID,
				UserID: userID,
				Role:   role,
			}
			if err := tx.Create(&participant).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ChatRepository) FindByID(id uint) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.First(&chat, id).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *ChatRepository) IsActiveParticipant(chatID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Participant{}).
		Where("chat_id = ? AND user_id = ? AND left_at IS NULL", chatID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *ChatRepository) GetParticipants(chatID uint) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.Preload("User").
		Where("chat_id = ? AND left_at IS NULL", chatID).
		Find(&participants).Error
	return participants, err
}

func (r *ChatRepository) GetActiveParticipantUserIDs(chatID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Participant{}).
		Where("chat_id = ? AND left_at IS NULL", chatID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *ChatRepository) ListChatsForUser(userID uint) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.
		Joins("JOIN participants ON participants.chat_id = chats.id").
		Where("participants.user_id = ? AND participants.left_at IS NULL", userID).
		Order("chats.updated_at DESC").
		Find(&chats).Error
	return chats, err
}
