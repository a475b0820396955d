package service

import (
	"errors"
	"testing"

	"github.com/lumenchat/lumen-backend/internal/models"
)

func newMessageService() (*MessageService, *MockMessageRepository, *MockChatRepository) {
	messageRepo := NewMockMessageRepository()
	chatRepo := NewMockChatRepository()
	return NewMessageService(messageRepo, chatRepo), messageRepo, chatRepo
}

func TestSendMessage(t *testing.T) {
	svc, _, chatRepo := newMessageService()
	chatRepo.AddParticipant(1, 10)

	msg, err := svc.SendMessage(10, SendMessageInput{
		ChatID:   1,
		Content:  "hello",
		ClientID: "temp-1",
	})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if msg.ID == 0 {
		t.Error("SendMessage() message has no id")
	}
	if msg.MessageType != models.TextMessage {
		t.Errorf("SendMessage() type = %q, want text default", msg.MessageType)
	}
	if msg.ClientID != "temp-1" {
		t.Errorf("SendMessage() client id = %q, want temp-1", msg.ClientID)
	}
	if msg.Version != 1 {
		t.Errorf("SendMessage() version = %d, want 1", msg.Version)
	}
}

func TestSendMessageAccessDenied(t *testing.T) {
	svc, _, chatRepo := newMessageService()
	chatRepo.AddParticipant(1, 10)

	// Not a participant at all
	if _, err := svc.SendMessage(99, SendMessageInput{ChatID: 1, Content: "hi"}); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("SendMessage() error = %v, want ErrAccessDenied", err)
	}

	// Left the chat
	chatRepo.AddParticipant(1, 20)
	chatRepo.MarkLeft(1, 20)
	if _, err := svc.SendMessage(20, SendMessageInput{ChatID: 1, Content: "hi"}); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("SendMessage() after leave error = %v, want ErrAccessDenied", err)
	}
}

func TestSendMessageWithoutClientIDRepeatable(t *testing.T) {
	svc, _, chatRepo := newMessageService()
	chatRepo.AddParticipant(1, 10)

	// The correlation token is optional; senders omitting it must be able
	// to send any number of messages.
	for i := 0; i < 3; i++ {
		if _, err := svc.SendMessage(10, SendMessageInput{ChatID: 1, Content: "hi"}); err != nil {
			t.Fatalf("tokenless send %d failed: %v", i+1, err)
		}
	}
}

func TestSendMessageDuplicateClientIDRejected(t *testing.T) {
	svc, _, chatRepo := newMessageService()
	chatRepo.AddParticipant(1, 10)
	chatRepo.AddParticipant(1, 20)

	if _, err := svc.SendMessage(10, SendMessageInput{ChatID: 1, Content: "hi", ClientID: "temp-1"}); err != nil {
		t.Fatalf("first send failed: %v", err)
	}

	// Same token from the same sender is a retry and must not create a row.
	if _, err := svc.SendMessage(10, SendMessageInput{ChatID: 1, Content: "hi again", ClientID: "temp-1"}); !errors.Is(err, ErrSendFailed) {
		t.Errorf("duplicate token error = %v, want ErrSendFailed", err)
	}

	// The token is scoped per sender; another user may reuse it.
	if _, err := svc.SendMessage(20, SendMessageInput{ChatID: 1, Content: "hello", ClientID: "temp-1"}); err != nil {
		t.Errorf("other sender with same token failed: %v", err)
	}
}

func TestSendMessagePersistFailure(t *testing.T) {
	svc, messageRepo, chatRepo := newMessageService()
	chatRepo.AddParticipant(1, 10)
	messageRepo.failOnAdd = true

	_, err := svc.SendMessage(10, SendMessageInput{ChatID: 1, Content: "hi"})
	if !errors.Is(err, ErrSendFailed) {
		t.Errorf("SendMessage() error = %v, want ErrSendFailed", err)
	}
}

func TestSendMessageReplySnapshot(t *testing.T) {
	svc, _, chatRepo := newMessageService()
	chatRepo.AddParticipant(1, 10)
	chatRepo.AddParticipant(1, 20)

	original, err := svc.SendMessage(20, SendMessageInput{ChatID: 1, Content: "original"})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	reply, err := svc.SendMessage(10, SendMessageInput{
		ChatID:    1,
		Content:   "replying",
		ReplyToID: &original.ID,
	})
	if err != nil {
		t.Fatalf("SendMessage() reply error = %v", err)
	}
	if reply.ReplyTo == nil {
		t.Fatal("SendMessage() reply has no snapshot")
	}
	if reply.ReplyTo.Content != "original" {
		t.Errorf("reply snapshot content = %q, want %q", reply.ReplyTo.Content, "original")
	}

	// Editing the original later must not touch the snapshot already taken
	if _, err := svc.EditMessage(20, original.ID, "edited"); err != nil {
		t.Fatalf("EditMessage() error = %v", err)
	}
	if reply.ReplyTo.Content != "original" {
		t.Errorf("reply snapshot changed after edit: %q", reply.ReplyTo.Content)
	}
}

func TestSendMessageReplyToOtherChat(t *testing.T) {
	svc, _, chatRepo := newMessageService()
	chatRepo.AddParticipant(1, 10)
	chatRepo.AddParticipant(2, 10)

	other, err := svc.SendMessage(10, SendMessageInput{ChatID: 2, Content: "elsewhere"})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if _, err := svc.SendMessage(10, SendMessageInput{ChatID: 1, Content: "x", ReplyToID: &other.ID}); !errors.Is(err, ErrNotFound) {
		t.Errorf("SendMessage() cross-chat reply error = %v, want ErrNotFound", err)
	}
}

func TestSendMessageOrdering(t *testing.T) {
	svc, _, chatRepo := newMessageService()
	chatRepo.AddParticipant(1, 10)

	first, _ := svc.SendMessage(10, SendMessageInput{ChatID: 1, Content: "m1"})
	second, _ := svc.SendMessage(10, SendMessageInput{ChatID: 1, Content: "m2"})
	if first.ID >= second.ID {
		t.Errorf("canonical ids not ascending: %d then %d", first.ID, second.ID)
	}

	messages, err := svc.GetChatMessages(10, 1, 0, 50)
	if err != nil {
		t.Fatalf("GetChatMessages() error = %v", err)
	}
	for i := 1; i < len(messages); i++ {
		if messages[i-1].ID >= messages[i].ID {
			t.Errorf("history out of order at %d: %d then %d", i, messages[i-1].ID, messages[i].ID)
		}
	}
}

func TestEditMessage(t *testing.T) {
	svc, _, chatRepo := newMessageService()
	chatRepo.AddParticipant(1, 10)

	msg, _ := svc.SendMessage(10, SendMessageInput{ChatID: 1, Content: "before"})

	edited, err := svc.EditMessage(10, msg.ID, "after")
	if err != nil {
		t.Fatalf("EditMessage() error = %v", err)
	}
	if edited.Content != "after" {
		t.Errorf("EditMessage() content = %q, want %q", edited.Content, "after")
	}
	if edited.Version != 2 {
		t.Errorf("EditMessage() version = %d, want 2", edited.Version)
	}
}

func TestEditMessageWrongSender(t *testing.T) {
	svc, _, chatRepo := newMessageService()
	chatRepo.AddParticipant(1, 10)
	chatRepo.AddParticipant(1, 20)

	msg, _ := svc.SendMessage(10, SendMessageInput{ChatID: 1, Content: "mine"})

	if _, err := svc.EditMessage(20, msg.ID, "stolen"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("EditMessage() by non-sender error = %v, want ErrAccessDenied", err)
	}
}

func TestDeleteMessage(t *testing.T) {
	svc, _, chatRepo := newMessageService()
	chatRepo.AddParticipant(1, 10)

	msg, _ := svc.SendMessage(10, SendMessageInput{ChatID: 1, Content: "secret"})

	deleted, err := svc.DeleteMessage(10, msg.ID)
	if err != nil {
		t.Fatalf("DeleteMessage() error = %v", err)
	}
	if !deleted.IsDeleted {
		t.Error("DeleteMessage() flag not set")
	}
	if deleted.Content != "" {
		t.Errorf("DeleteMessage() content = %q, want empty", deleted.Content)
	}

	// Deleted messages reject further edits and deletes
	if _, err := svc.EditMessage(10, msg.ID, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("EditMessage() on deleted error = %v, want ErrNotFound", err)
	}
	if _, err := svc.DeleteMessage(10, msg.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteMessage() twice error = %v, want ErrNotFound", err)
	}
}

func TestDeleteKeepsReplyResolvable(t *testing.T) {
	svc, _, chatRepo := newMessageService()
	chatRepo.AddParticipant(1, 10)

	original, _ := svc.SendMessage(10, SendMessageInput{ChatID: 1, Content: "going away"})
	reply, _ := svc.SendMessage(10, SendMessageInput{ChatID: 1, Content: "re", ReplyToID: &original.ID})

	if _, err := svc.DeleteMessage(10, original.ID); err != nil {
		t.Fatalf("DeleteMessage() error = %v", err)
	}

	reloaded, err := svc.messageRepo.FindByID(reply.ID)
	if err != nil {
		t.Fatalf("reload reply error = %v", err)
	}
	if reloaded.ReplyToID == nil || *reloaded.ReplyToID != original.ID {
		t.Error("reply reference lost after delete")
	}
}
