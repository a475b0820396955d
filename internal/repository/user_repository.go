package repository

import (
	"time"

	"github.com/lumenchat/lumen-backend/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdatePresence(userID uint, status models.PresenceStatus, statusMessage string, lastSeen *time.Time) error {
	updates := map[string]interface{}{
		"status":            status,
		"status_message":    statusMessage,
		"status_updated_at": gorm.Expr("NOW()"),
	}
	if lastSeen != nil {
		updates["last_seen"] = *lastSeen
	}
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}
