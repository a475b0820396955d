package repository

import (
	"time"

	"github.com/lumenchat/lumen-backend/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

func (r *MessageRepository) FindByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.
		Preload("Sender").
		Preload("ReplyTo").
		Preload("ReplyTo.Sender").
		Preload("Reactions").
		First(&message, id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *MessageRepository) FindByClientID(clientID string, senderID uint) (*models.Message, error) {
	var message models.Message
	err := r.db.
		Preload("Sender").
		Where("client_id = ? AND sender_id = ?", clientID, senderID).
		First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// FindChatMessages returns up to limit messages for a chat in ascending id
// order. A non-zero cursor fetches only messages with id below it, so clients
// page backwards through history.
func (r *MessageRepository) FindChatMessages(chatID uint, cursor uint, limit int) ([]models.Message, error) {
	q := r.db.
		Preload("Sender").
		Preload("ReplyTo").
		Preload("ReplyTo.Sender").
		Preload("Reactions").
		Where("chat_id = ?", chatID)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}

	var messages []models.Message
	err := q.Order("id DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *MessageRepository) Edit(messageID uint, content string) error {
	return r.db.Model(&models.Message{}).
		Where("id = ? AND is_deleted = false", messageID).
		Updates(map[string]interface{}{
			"content": content,
			"version": gorm.Expr("version + 1"),
		}).Error
}

func (r *MessageRepository) SoftDelete(messageID uint) error {
	return r.db.Model(&models.Message{}).
		Where("id = ?", messageID).
		Updates(map[string]interface{}{
			"content":    "",
			"is_deleted": true,
		}).Error
}

// CountUnread counts messages in a chat created after the read cursor,
// excluding the user's own messages. A nil cursor counts everything.
func (r *MessageRepository) CountUnread(chatID, userID uint, after *time.Time) (int64, error) {
	q := r.db.Model(&models.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND is_deleted = false", chatID, userID)
	if after != nil {
		q = q.Where("created_at > ?", *after)
	}

	var count int64
	err := q.Count(&count).Error
	return count, err
}
