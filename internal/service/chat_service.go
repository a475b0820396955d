package service

import (
	"errors"

	"github.com/lumenchat/lumen-backend/internal/models"
	"github.com/lumenchat/lumen-backend/internal/repository"
	"gorm.io/gorm"
)

type ChatService struct {
	chatRepo repository.ChatRepositoryInterface
}

func NewChatService(chatRepo repository.ChatRepositoryInterface) *ChatService {
	return &ChatService{chatRepo: chatRepo}
}

type CreateChatInput struct {
	Type           models.ChatType `json:"type"`
	Name           string          `json:"name"`
	ParticipantIDs []uint          `json:"participant_ids"`
}

// CreateChat provisions a chat with its participant set. Chat creation is
// collaborator territory; the realtime core only reads the result.
func (s *ChatService) CreateChat(creatorID uint, input CreateChatInput) (*models.Chat, error) {
	chat := &models.Chat{
		Type:      input.Type,
		Name:      input.Name,
		CreatorID: creatorID,
	}
	if chat.Type == "" {
		chat.Type = models.DirectChat
	}

	participantIDs := input.ParticipantIDs
	found := false
	for _, id := range participantIDs {
		if id == creatorID {
			found = true
			break
		}
	}
	if !found {
		participantIDs = append(participantIDs, creatorID)
	}

	if err := s.chatRepo.Create(chat, participantIDs); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *ChatService) GetChat(chatID, userID uint) (*models.Chat, error) {
	ok, err := s.chatRepo.IsActiveParticipant(chatID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccessDenied
	}

	chat, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return chat, nil
}

// IsActiveParticipant reports whether the user currently has an active
// participant row for the chat. The channel layer calls this on every join.
func (s *ChatService) IsActiveParticipant(chatID, userID uint) (bool, error) {
	return s.chatRepo.IsActiveParticipant(chatID, userID)
}

func (s *ChatService) ListUserChats(userID uint) ([]models.Chat, error) {
	return s.chatRepo.ListChatsForUser(userID)
}

func (s *ChatService) GetParticipants(chatID, userID uint) ([]models.Participant, error) {
	ok, err := s.chatRepo.IsActiveParticipant(chatID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccessDenied
	}
	return s.chatRepo.GetParticipants(chatID)
}
