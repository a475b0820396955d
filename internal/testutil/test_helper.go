package testutil

import (
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/lumenchat/lumen-backend/internal/models"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestUser creates a test user with default values
func (h *TestHelper) CreateTestUser(id uint, username string) *models.User {
	if id == 0 {
		id = 1
	}
	if username == "" {
		username = "testuser"
	}

	return &models.User{
		ID:        id,
		Username:  username,
		FullName:  "Test User",
		Status:    models.StatusOffline,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// CreateTestChat creates a group chat with the given participant user ids
func (h *TestHelper) CreateTestChat(id uint, participantIDs ...uint) *models.Chat {
	if id == 0 {
		id = 1
	}
	chat := &models.Chat{
		ID:        id,
		Type:      models.GroupChat,
		Name:      "Test Chat",
		CreatorID: 1,
		CreatedAt: time.Now(),
	}
	for _, uid := range participantIDs {
		chat.Participants = append(chat.Participants, models.Participant{
			ChatID:   id,
			UserID:   uid,
			Role:     models.RoleMember,
			JoinedAt: time.Now(),
		})
	}
	return chat
}

// CreateTestMessage creates a test message with default values
func (h *TestHelper) CreateTestMessage(id uint, chatID, senderID uint, content string) *models.Message {
	if id == 0 {
		id = 1
	}
	if chatID == 0 {
		chatID = 1
	}
	if senderID == 0 {
		senderID = 1
	}
	if content == "" {
		content = "Test message"
	}

	return &models.Message{
		ID:          id,
		ClientID:    fmt.Sprintf("client-%d", id),
		ChatID:      chatID,
		SenderID:    senderID,
		Content:     content,
		MessageType: models.TextMessage,
		Version:     1,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Sender: models.User{
			ID:       senderID,
			Username: "sender",
		},
	}
}

// SetupTestEnv sets up required environment variables for testing
func (h *TestHelper) SetupTestEnv() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	os.Setenv("DATABASE_URL", "")
}

// TeardownTestEnv cleans up environment variables after testing
func (h *TestHelper) TeardownTestEnv() {
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("DATABASE_URL")
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}

// GetRecordNotFoundError returns the gorm sentinel for missing rows
func GetRecordNotFoundError() error {
	return gorm.ErrRecordNotFound
}
