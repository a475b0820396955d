package repository

import (
	"time"

	"github.com/lumenchat/lumen-backend/internal/models"
	"gorm.io/gorm"
)

type ReadStateRepository struct {
	db *gorm.DB
}

func NewReadStateRepository(db *gorm.DB) *ReadStateRepository {
	return &ReadStateRepository{db: db}
}

// AdvanceLastRead moves a participant's read cursor forward. GREATEST makes
// the write monotonic: a timestamp behind the stored cursor changes nothing.
func (r *ReadStateRepository) AdvanceLastRead(chatID, userID uint, readAt time.Time) error {
	return r.db.Exec(`
		UPDATE participants
		SET last_read_at = GREATEST(COALESCE(last_read_at, 'epoch'::timestamptz), ?)
		WHERE chat_id = ? AND user_id = ? AND left_at IS NULL
	`, readAt, chatID, userID).Error
}

func (r *ReadStateRepository) GetLastRead(chatID, userID uint) (*time.Time, error) {
	var participant models.Participant
	err := r.db.Where("chat_id = ? AND user_id = ?", chatID, userID).First(&participant).Error
	if err != nil {
		return nil, err
	}
	return participant.LastReadAt, nil
}

func (r *ReadStateRepository) ListReadStates(chatID uint) ([]ReadStateRow, error) {
	var rows []ReadStateRow
	err := r.db.Model(&models.Participant{}).
		Select("user_id, last_read_at").
		Where("chat_id = ? AND left_at IS NULL", chatID).
		Scan(&rows).Error
	return rows, err
}
