package service

import (
	"time"

	"github.com/lumenchat/lumen-backend/internal/repository"
)

type ReadService struct {
	readStateRepo repository.ReadStateRepositoryInterface
	messageRepo   repository.MessageRepositoryInterface
	chatRepo      repository.ChatRepositoryInterface
}

func NewReadService(readStateRepo repository.ReadStateRepositoryInterface, messageRepo repository.MessageRepositoryInterface, chatRepo repository.ChatRepositoryInterface) *ReadService {
	return &ReadService{readStateRepo: readStateRepo, messageRepo: messageRepo, chatRepo: chatRepo}
}

// MarkRead advances the participant's read cursor to now. The storage layer
// enforces monotonicity, so a cursor never moves backwards. Returns the
// effective cursor for the read receipt broadcast.
func (s *ReadService) MarkRead(chatID, userID uint) (time.Time, error) {
	ok, err := s.chatRepo.IsActiveParticipant(chatID, userID)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, ErrAccessDenied
	}

	now := time.Now().UTC()
	if err := s.readStateRepo.AdvanceLastRead(chatID, userID, now); err != nil {
		return time.Time{}, err
	}

	stored, err := s.readStateRepo.GetLastRead(chatID, userID)
	if err != nil {
		return time.Time{}, err
	}
	if stored == nil {
		return now, nil
	}
	return *stored, nil
}

// UnreadCount derives the unread total for a chat: messages created after the
// read cursor, excluding the user's own. Unread counts are never stored.
func (s *ReadService) UnreadCount(chatID, userID uint) (int64, error) {
	lastRead, err := s.readStateRepo.GetLastRead(chatID, userID)
	if err != nil {
		return 0, err
	}
	return s.messageRepo.CountUnread(chatID, userID, lastRead)
}

// GetReadStates lists every active participant's read cursor, used by clients
// to render read receipts.
func (s *ReadService) GetReadStates(chatID, userID uint) ([]repository.ReadStateRow, error) {
	ok, err := s.chatRepo.IsActiveParticipant(chatID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccessDenied
	}
	return s.readStateRepo.ListReadStates(chatID)
}
