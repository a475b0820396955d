package models

import (
	"time"

	"gorm.io/gorm"
)

type ChatType string

const (
	DirectChat ChatType = "direct"
	GroupChat  ChatType = "group"
)

type ParticipantRole string

const (
	RoleAdmin  ParticipantRole = "admin"
	RoleMember ParticipantRole = "member"
)

type Chat struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Type      ChatType `gorm:"type:varchar(20);not null;default:'direct'" json:"type"`
	Name      string   `gorm:"size:100" json:"name"`
	Icon      string   `json:"icon"`
	CreatorID uint     `gorm:"not null" json:"creator_id"`

	Creator      User          `gorm:"foreignKey:CreatorID" json:"creator"`
	Participants []Participant `gorm:"foreignKey:ChatID" json:"participants"`
}

// Participant is one user's membership row in a chat. A participant with a
// non-null LeftAt has left the chat and no longer passes access checks.
// LastReadAt is the read cursor; it only ever moves forward.
type Participant struct {
	ChatID     uint            `gorm:"primaryKey" json:"chat_id"`
	UserID     uint            `gorm:"primaryKey" json:"user_id"`
	Role       ParticipantRole `gorm:"type:varchar(20);default:'member'" json:"role"`
	Muted      bool            `gorm:"default:false" json:"muted"`
	LastReadAt *time.Time      `json:"last_read_at"`
	JoinedAt   time.Time       `gorm:"autoCreateTime" json:"joined_at"`
	LeftAt     *time.Time      `json:"left_at"`

	User User `gorm:"foreignKey:UserID" json:"user"`
	Chat Chat `gorm:"foreignKey:ChatID" json:"-"`
}

type ChatResponse struct {
	ID          uint      `json:"id"`
	Type        ChatType  `json:"type"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon"`
	CreatorID   uint      `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UnreadCount int64     `json:"unread_count"`
}

func (c *Chat) ToResponse() ChatResponse {
	return ChatResponse{
		ID:        c.ID,
		Type:      c.Type,
		Name:      c.Name,
		Icon:      c.Icon,
		CreatorID: c.CreatorID,
		CreatedAt: c.CreatedAt,
	}
}
