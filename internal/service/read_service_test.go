package service

import (
	"errors"
	"testing"
	"time"
)

func newReadService() (*ReadService, *MessageService, *MockChatRepository, *MockReadStateRepository) {
	messageRepo := NewMockMessageRepository()
	chatRepo := NewMockChatRepository()
	readStateRepo := NewMockReadStateRepository()
	return NewReadService(readStateRepo, messageRepo, chatRepo),
		NewMessageService(messageRepo, chatRepo),
		chatRepo,
		readStateRepo
}

func TestMarkRead(t *testing.T) {
	reads, _, chatRepo, _ := newReadService()
	chatRepo.AddParticipant(1, 10)

	before := time.Now().UTC()
	readAt, err := reads.MarkRead(1, 10)
	if err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if readAt.Before(before) {
		t.Errorf("MarkRead() cursor %v before call time %v", readAt, before)
	}
}

func TestMarkReadMonotonic(t *testing.T) {
	reads, _, chatRepo, readStateRepo := newReadService()
	chatRepo.AddParticipant(1, 10)

	future := time.Now().UTC().Add(time.Hour)
	if err := readStateRepo.AdvanceLastRead(1, 10, future); err != nil {
		t.Fatalf("AdvanceLastRead() error = %v", err)
	}

	// A mark-read with an earlier wall clock must not regress the cursor
	readAt, err := reads.MarkRead(1, 10)
	if err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if !readAt.Equal(future) {
		t.Errorf("MarkRead() cursor = %v, want unchanged %v", readAt, future)
	}
}

func TestMarkReadAccessDenied(t *testing.T) {
	reads, _, _, _ := newReadService()

	if _, err := reads.MarkRead(1, 99); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("MarkRead() error = %v, want ErrAccessDenied", err)
	}
}

func TestUnreadCountDerived(t *testing.T) {
	reads, messages, chatRepo, _ := newReadService()
	chatRepo.AddParticipant(1, 10)
	chatRepo.AddParticipant(1, 20)

	messages.SendMessage(20, SendMessageInput{ChatID: 1, Content: "one"})
	messages.SendMessage(20, SendMessageInput{ChatID: 1, Content: "two"})
	messages.SendMessage(10, SendMessageInput{ChatID: 1, Content: "own message"})

	// Never read: everything from others counts
	count, err := reads.UnreadCount(1, 10)
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 2 {
		t.Errorf("UnreadCount() = %d, want 2 (own messages excluded)", count)
	}

	if _, err := reads.MarkRead(1, 10); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	count, err = reads.UnreadCount(1, 10)
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("UnreadCount() after mark read = %d, want 0", count)
	}
}

func TestGetReadStates(t *testing.T) {
	reads, _, chatRepo, _ := newReadService()
	chatRepo.AddParticipant(1, 10)
	chatRepo.AddParticipant(1, 20)

	if _, err := reads.MarkRead(1, 20); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}

	rows, err := reads.GetReadStates(1, 10)
	if err != nil {
		t.Fatalf("GetReadStates() error = %v", err)
	}
	if len(rows) != 1 || rows[0].UserID != 20 {
		t.Errorf("GetReadStates() = %+v, want one row for user 20", rows)
	}

	if _, err := reads.GetReadStates(1, 99); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("GetReadStates() outsider error = %v, want ErrAccessDenied", err)
	}
}
