package service

import (
	"fmt"
	"time"

	"github.com/lumenchat/lumen-backend/internal/models"
	"github.com/lumenchat/lumen-backend/internal/repository"
	"gorm.io/gorm"
)

// MockMessageRepository is an in-memory MessageRepositoryInterface for testing
type MockMessageRepository struct {
	messages  map[uint]*models.Message
	nextID    uint
	failOnAdd bool
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{
		messages: make(map[uint]*models.Message),
		nextID:   1,
	}
}

func (m *MockMessageRepository) Create(message *models.Message) error {
	if m.failOnAdd {
		return gorm.ErrInvalidTransaction
	}
	// Mirror the partial unique index on (client_id, sender_id): only
	// non-empty correlation tokens are constrained.
	if message.ClientID != "" {
		for _, existing := range m.messages {
			if existing.ClientID == message.ClientID && existing.SenderID == message.SenderID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	if message.ID == 0 {
		message.ID = m.nextID
		m.nextID++
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	// Mirror the column default (gorm:"default:1") applied on insert.
	if message.Version == 0 {
		message.Version = 1
	}
	stored := *message
	m.messages[message.ID] = &stored
	return nil
}

func (m *MockMessageRepository) FindByID(id uint) (*models.Message, error) {
	msg, ok := m.messages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	// Resolve the reply snapshot the way the real repository preloads it
	copied := *msg
	if copied.ReplyToID != nil {
		if replyTo, ok := m.messages[*copied.ReplyToID]; ok {
			replyCopy := *replyTo
			copied.ReplyTo = &replyCopy
		}
	}
	return &copied, nil
}

func (m *MockMessageRepository) FindByClientID(clientID string, senderID uint) (*models.Message, error) {
	for _, msg := range m.messages {
		if msg.ClientID == clientID && msg.SenderID == senderID {
			copied := *msg
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockMessageRepository) FindChatMessages(chatID uint, cursor uint, limit int) ([]models.Message, error) {
	var result []models.Message
	for id := uint(1); id < m.nextID && len(result) < limit; id++ {
		msg, ok := m.messages[id]
		if !ok || msg.ChatID != chatID {
			continue
		}
		if cursor > 0 && msg.ID >= cursor {
			continue
		}
		result = append(result, *msg)
	}
	return result, nil
}

func (m *MockMessageRepository) Edit(messageID uint, content string) error {
	msg, ok := m.messages[messageID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	msg.Content = content
	msg.Version++
	return nil
}

func (m *MockMessageRepository) SoftDelete(messageID uint) error {
	msg, ok := m.messages[messageID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	msg.Content = ""
	msg.IsDeleted = true
	return nil
}

func (m *MockMessageRepository) CountUnread(chatID, userID uint, after *time.Time) (int64, error) {
	var count int64
	for _, msg := range m.messages {
		if msg.ChatID != chatID || msg.SenderID == userID || msg.IsDeleted {
			continue
		}
		if after != nil && !msg.CreatedAt.After(*after) {
			continue
		}
		count++
	}
	return count, nil
}

// MockChatRepository is an in-memory ChatRepositoryInterface for testing
type MockChatRepository struct {
	chats        map[uint]*models.Chat
	participants map[uint]map[uint]*models.Participant // chatID -> userID
	nextID       uint
}

func NewMockChatRepository() *MockChatRepository {
	return &MockChatRepository{
		chats:        make(map[uint]*models.Chat),
		participants: make(map[uint]map[uint]*models.Participant),
		nextID:       1,
	}
}

func (m *MockChatRepository) AddParticipant(chatID, userID uint) {
	if _, ok := m.chats[chatID]; !ok {
		m.chats[chatID] = &models.Chat{ID: chatID, Type: models.GroupChat}
	}
	if m.participants[chatID] == nil {
		m.participants[chatID] = make(map[uint]*models.Participant)
	}
	m.participants[chatID][userID] = &models.Participant{ChatID: chatID, UserID: userID, Role: models.RoleMember}
}

func (m *MockChatRepository) MarkLeft(chatID, userID uint) {
	if p, ok := m.participants[chatID][userID]; ok {
		now := time.Now()
		p.LeftAt = &now
	}
}

func (m *MockChatRepository) Create(chat *models.Chat, participantIDs []uint) error {
	if chat.ID == 0 {
		chat.ID = m.nextID
		m.nextID++
	}
	m.chats[chat.ID] = chat
	for _, userID := range participantIDs {
		m.AddParticipant(chat.ID, userID)
	}
	return nil
}

func (m *MockChatRepository) FindByID(id uint) (*models.Chat, error) {
	chat, ok := m.chats[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return chat, nil
}

func (m *MockChatRepository) IsActiveParticipant(chatID, userID uint) (bool, error) {
	p, ok := m.participants[chatID][userID]
	return ok && p.LeftAt == nil, nil
}

func (m *MockChatRepository) GetParticipants(chatID uint) ([]models.Participant, error) {
	var result []models.Participant
	for _, p := range m.participants[chatID] {
		if p.LeftAt == nil {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (m *MockChatRepository) GetActiveParticipantUserIDs(chatID uint) ([]uint, error) {
	var ids []uint
	for userID, p := range m.participants[chatID] {
		if p.LeftAt == nil {
			ids = append(ids, userID)
		}
	}
	return ids, nil
}

func (m *MockChatRepository) ListChatsForUser(userID uint) ([]models.Chat, error) {
	var result []models.Chat
	for chatID, members := range m.participants {
		if p, ok := members[userID]; ok && p.LeftAt == nil {
			result = append(result, *m.chats[chatID])
		}
	}
	return result, nil
}

// MockReactionRepository is an in-memory ReactionRepositoryInterface for testing
type MockReactionRepository struct {
	reactions map[string]*models.Reaction
}

func NewMockReactionRepository() *MockReactionRepository {
	return &MockReactionRepository{reactions: make(map[string]*models.Reaction)}
}

func reactionKey(messageID, userID uint, emoji string) string {
	return fmt.Sprintf("%d:%d:%s", messageID, userID, emoji)
}

func (m *MockReactionRepository) Add(reaction *models.Reaction) (bool, error) {
	key := reactionKey(reaction.MessageID, reaction.UserID, reaction.Emoji)
	if _, exists := m.reactions[key]; exists {
		return false, nil
	}
	m.reactions[key] = reaction
	return true, nil
}

func (m *MockReactionRepository) Remove(messageID, userID uint, emoji string) (bool, error) {
	key := reactionKey(messageID, userID, emoji)
	if _, exists := m.reactions[key]; !exists {
		return false, nil
	}
	delete(m.reactions, key)
	return true, nil
}

func (m *MockReactionRepository) ListForMessage(messageID uint) ([]models.Reaction, error) {
	var result []models.Reaction
	for _, r := range m.reactions {
		if r.MessageID == messageID {
			result = append(result, *r)
		}
	}
	return result, nil
}

// MockReadStateRepository is an in-memory ReadStateRepositoryInterface for testing
type MockReadStateRepository struct {
	cursors map[[2]uint]*time.Time // (chatID, userID)
}

func NewMockReadStateRepository() *MockReadStateRepository {
	return &MockReadStateRepository{cursors: make(map[[2]uint]*time.Time)}
}

func (m *MockReadStateRepository) AdvanceLastRead(chatID, userID uint, readAt time.Time) error {
	key := [2]uint{chatID, userID}
	if existing := m.cursors[key]; existing != nil && existing.After(readAt) {
		return nil
	}
	stamped := readAt
	m.cursors[key] = &stamped
	return nil
}

func (m *MockReadStateRepository) GetLastRead(chatID, userID uint) (*time.Time, error) {
	return m.cursors[[2]uint{chatID, userID}], nil
}

func (m *MockReadStateRepository) ListReadStates(chatID uint) ([]repository.ReadStateRow, error) {
	var rows []repository.ReadStateRow
	for key, t := range m.cursors {
		if key[0] == chatID {
			rows = append(rows, repository.ReadStateRow{UserID: key[1], LastReadAt: t})
		}
	}
	return rows, nil
}
