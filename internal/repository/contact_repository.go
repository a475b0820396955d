package repository

import (
	"github.com/lumenchat/lumen-backend/internal/models"
	"gorm.io/gorm"
)

type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) ListAcceptedContactIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Contact{}).
		Where("user_id = ? AND status = ?", userID, models.ContactAccepted).
		Pluck("contact_id", &ids).Error
	return ids, err
}
