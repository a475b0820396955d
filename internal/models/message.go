package models

import (
	"time"

	"gorm.io/gorm"
)

type MessageType string

const (
	TextMessage  MessageType = "text"
	ImageMessage MessageType = "image"
	FileMessage  MessageType = "file"
	// SystemMessage rows are written by the server (membership notices and
	// the like); client sends are rejected for this type.
	SystemMessage MessageType = "system"
)

type Message struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Client-side correlation token for optimistic rendering. Unique per sender
	// so a retried send never creates a duplicate row. The token is optional;
	// the partial index leaves tokenless sends (empty string) unconstrained.
	ClientID string `gorm:"type:varchar(36);uniqueIndex:idx_client_sender,where:client_id <> ''" json:"client_id,omitempty"`

	ChatID   uint `gorm:"not null;index" json:"chat_id"`
	Chat     Chat `gorm:"foreignKey:ChatID" json:"-"`
	SenderID uint `gorm:"not null;uniqueIndex:idx_client_sender;index" json:"sender_id"`
	Sender   User `gorm:"foreignKey:SenderID" json:"sender"`

	Content     string      `gorm:"type:text;not null" json:"content"`
	MessageType MessageType `gorm:"type:varchar(20);default:'text'" json:"message_type"`

	ReplyToID *uint    `gorm:"index" json:"reply_to_id"`
	ReplyTo   *Message `gorm:"foreignKey:ReplyToID" json:"reply_to,omitempty"`

	// Version counts edits, starting at 1. IsDeleted marks a soft delete: the
	// content is cleared but the row survives so replies stay resolvable.
	Version   int  `gorm:"default:1" json:"version"`
	IsDeleted bool `gorm:"default:false" json:"is_deleted"`

	Reactions []Reaction `gorm:"foreignKey:MessageID" json:"reactions"`
}

// Reaction is one user's emoji on a message. The (message, user, emoji) triple
// is unique; inserting a duplicate is a no-op at the storage layer.
type Reaction struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	MessageID uint   `gorm:"not null;uniqueIndex:idx_msg_user_emoji" json:"message_id"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_msg_user_emoji" json:"user_id"`
	Emoji     string `gorm:"type:varchar(32);not null;uniqueIndex:idx_msg_user_emoji" json:"emoji"`

	User User `gorm:"foreignKey:UserID" json:"user"`
}

// ReplySnapshot is the replied-to message as it looked at send time. It is
// embedded in the enriched response and never updated retroactively.
type ReplySnapshot struct {
	ID        uint         `json:"id"`
	SenderID  uint         `json:"sender_id"`
	Sender    UserResponse `json:"sender"`
	Content   string       `json:"content"`
	IsDeleted bool         `json:"is_deleted"`
}

type ReactionResponse struct {
	MessageID uint      `json:"message_id"`
	UserID    uint      `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageResponse struct {
	ID          uint               `json:"id"`
	ClientID    string             `json:"client_id,omitempty"`
	ChatID      uint               `json:"chat_id"`
	SenderID    uint               `json:"sender_id"`
	Sender      UserResponse       `json:"sender"`
	Content     string             `json:"content"`
	MessageType MessageType        `json:"message_type"`
	ReplyTo     *ReplySnapshot     `json:"reply_to,omitempty"`
	Version     int                `json:"version"`
	IsDeleted   bool               `json:"is_deleted"`
	Reactions   []ReactionResponse `json:"reactions"`
	CreatedAt   time.Time          `json:"created_at"`
}

func (r *Reaction) ToResponse() ReactionResponse {
	return ReactionResponse{
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     r.Emoji,
		CreatedAt: r.CreatedAt,
	}
}

func (m *Message) ToResponse() MessageResponse {
	resp := MessageResponse{
		ID:          m.ID,
		ClientID:    m.ClientID,
		ChatID:      m.ChatID,
		SenderID:    m.SenderID,
		Sender:      m.Sender.ToResponse(),
		Content:     m.Content,
		MessageType: m.MessageType,
		Version:     m.Version,
		IsDeleted:   m.IsDeleted,
		Reactions:   make([]ReactionResponse, 0, len(m.Reactions)),
		CreatedAt:   m.CreatedAt,
	}
	if m.ReplyTo != nil {
		resp.ReplyTo = &ReplySnapshot{
			ID:        m.ReplyTo.ID,
			SenderID:  m.ReplyTo.SenderID,
			Sender:    m.ReplyTo.Sender.ToResponse(),
			Content:   m.ReplyTo.Content,
			IsDeleted: m.ReplyTo.IsDeleted,
		}
	}
	for i := range m.Reactions {
		resp.Reactions = append(resp.Reactions, m.Reactions[i].ToResponse())
	}
	return resp
}
