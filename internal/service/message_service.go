package service

import (
	"errors"
	"fmt"

	"github.com/lumenchat/lumen-backend/internal/models"
	"github.com/lumenchat/lumen-backend/internal/repository"
	"gorm.io/gorm"
)

type MessageService struct {
	messageRepo repository.MessageRepositoryInterface
	chatRepo    repository.ChatRepositoryInterface
}

func NewMessageService(messageRepo repository.MessageRepositoryInterface, chatRepo repository.ChatRepositoryInterface) *MessageService {
	return &MessageService{messageRepo: messageRepo, chatRepo: chatRepo}
}

type SendMessageInput struct {
	ChatID      uint               `json:"chat_id"`
	Content     string             `json:"content"`
	MessageType models.MessageType `json:"message_type"`
	ReplyToID   *uint              `json:"reply_to_id"`
	ClientID    string             `json:"client_id"`
}

// SendMessage persists a message and returns it enriched with the sender and,
// when replying, a snapshot of the replied-to message resolved at send time.
// Chat access is re-verified here even though the channel layer already
// checked it on join.
func (s *MessageService) SendMessage(senderID uint, input SendMessageInput) (*models.Message, error) {
	ok, err := s.chatRepo.IsActiveParticipant(input.ChatID, senderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if !ok {
		return nil, ErrAccessDenied
	}

	if input.ReplyToID != nil {
		replyTo, err := s.messageRepo.FindByID(*input.ReplyToID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
		if replyTo.ChatID != input.ChatID {
			return nil, ErrNotFound
		}
	}

	message := &models.Message{
		ClientID:    input.ClientID,
		ChatID:      input.ChatID,
		SenderID:    senderID,
		Content:     input.Content,
		MessageType: input.MessageType,
		ReplyToID:   input.ReplyToID,
	}
	if message.MessageType == "" {
		message.MessageType = models.TextMessage
	}

	if err := s.messageRepo.Create(message); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	// Reload with sender, reply snapshot and reactions
	enriched, err := s.messageRepo.FindByID(message.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return enriched, nil
}

// EditMessage updates the content of an existing message owned by the sender
// and increments its edit counter.
func (s *MessageService) EditMessage(senderID, messageID uint, content string) (*models.Message, error) {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if message.IsDeleted {
		return nil, ErrNotFound
	}
	if message.SenderID != senderID {
		return nil, ErrAccessDenied
	}

	if err := s.messageRepo.Edit(messageID, content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return s.messageRepo.FindByID(messageID)
}

// DeleteMessage soft-deletes a message owned by the sender. The row survives
// with cleared content so replies referencing it stay resolvable.
func (s *MessageService) DeleteMessage(senderID, messageID uint) (*models.Message, error) {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if message.IsDeleted {
		return nil, ErrNotFound
	}
	if message.SenderID != senderID {
		return nil, ErrAccessDenied
	}

	if err := s.messageRepo.SoftDelete(messageID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	message.Content = ""
	message.IsDeleted = true
	return message, nil
}

// GetChatMessages fetches cursor-paginated history for a chat the user can
// access. This backs the REST history endpoint; the realtime path never
// replays backlog to rejoining connections.
func (s *MessageService) GetChatMessages(userID, chatID uint, cursor uint, limit int) ([]models.Message, error) {
	ok, err := s.chatRepo.IsActiveParticipant(chatID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccessDenied
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.messageRepo.FindChatMessages(chatID, cursor, limit)
}

// HasAccess reports whether the user holds an active participant row for
// the chat. Handlers use it to guard cache hits that bypass the service.
func (s *MessageService) HasAccess(chatID, userID uint) (bool, error) {
	return s.chatRepo.IsActiveParticipant(chatID, userID)
}

// GetByClientID finds a message by its client correlation token, used to
// deduplicate retried sends.
func (s *MessageService) GetByClientID(clientID string, senderID uint) (*models.Message, error) {
	return s.messageRepo.FindByClientID(clientID, senderID)
}
