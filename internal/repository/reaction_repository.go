package repository

import (
	"github.com/lumenchat/lumen-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// Add inserts a reaction, treating a duplicate (message, user, emoji) triple
// as a no-op. Returns true only when a row was actually inserted.
func (r *ReactionRepository) Add(reaction *models.Reaction) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}, {Name: "emoji"}},
		DoNothing: true,
	}).Create(reaction)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Remove deletes a reaction. Returns true only when a row actually existed.
func (r *ReactionRepository) Remove(messageID, userID uint, emoji string) (bool, error) {
	result := r.db.
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		Delete(&models.Reaction{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *ReactionRepository) ListForMessage(messageID uint) ([]models.Reaction, error) {
	var reactions []models.Reaction
	err := r.db.Where("message_id = ?", messageID).Order("created_at ASC").Find(&reactions).Error
	return reactions, err
}
