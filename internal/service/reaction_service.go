package service

import (
	"errors"

	"github.com/lumenchat/lumen-backend/internal/models"
	"github.com/lumenchat/lumen-backend/internal/repository"
	"gorm.io/gorm"
)

type ReactionService struct {
	reactionRepo repository.ReactionRepositoryInterface
	messageRepo  repository.MessageRepositoryInterface
	chatRepo     repository.ChatRepositoryInterface
}

func NewReactionService(reactionRepo repository.ReactionRepositoryInterface, messageRepo repository.MessageRepositoryInterface, chatRepo repository.ChatRepositoryInterface) *ReactionService {
	return &ReactionService{reactionRepo: reactionRepo, messageRepo: messageRepo, chatRepo: chatRepo}
}

// AddReaction records an emoji reaction. Adding the same (message, user,
// emoji) triple twice collapses to success with changed=false, so callers
// broadcast only on actual state change.
func (s *ReactionService) AddReaction(userID, messageID uint, emoji string) (changed bool, message *models.Message, err error) {
	message, err = s.verifyAccess(userID, messageID)
	if err != nil {
		return false, nil, err
	}

	changed, err = s.reactionRepo.Add(&models.Reaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
	})
	return changed, message, err
}

// RemoveReaction deletes a previously recorded reaction. Removing a reaction
// that does not exist is also a silent no-op.
func (s *ReactionService) RemoveReaction(userID, messageID uint, emoji string) (changed bool, message *models.Message, err error) {
	message, err = s.verifyAccess(userID, messageID)
	if err != nil {
		return false, nil, err
	}

	changed, err = s.reactionRepo.Remove(messageID, userID, emoji)
	return changed, message, err
}

func (s *ReactionService) verifyAccess(userID, messageID uint) (*models.Message, error) {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if message.IsDeleted {
		return nil, ErrNotFound
	}

	ok, err := s.chatRepo.IsActiveParticipant(message.ChatID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccessDenied
	}
	return message, nil
}
