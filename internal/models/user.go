package models

import (
	"time"

	"gorm.io/gorm"
)

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusAway    PresenceStatus = "away"
	StatusOffline PresenceStatus = "offline"
)

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	FullName string `json:"full_name"`
	Avatar   string `json:"avatar"`

	Status          PresenceStatus `gorm:"type:varchar(20);default:'offline'" json:"status"`
	StatusMessage   string         `gorm:"size:120" json:"status_message"`
	StatusUpdatedAt *time.Time     `json:"status_updated_at"`
	LastSeen        *time.Time     `json:"last_seen"`

	Messages []Message `gorm:"foreignKey:SenderID" json:"-"`
}

type UserResponse struct {
	ID            uint           `json:"id"`
	Username      string         `json:"username"`
	FullName      string         `json:"full_name"`
	Avatar        string         `json:"avatar"`
	Status        PresenceStatus `json:"status"`
	StatusMessage string         `json:"status_message,omitempty"`
	LastSeen      *time.Time     `json:"last_seen"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		FullName:      u.FullName,
		Avatar:        u.Avatar,
		Status:        u.Status,
		StatusMessage: u.StatusMessage,
		LastSeen:      u.LastSeen,
	}
}

// PresenceState is the in-memory presence snapshot kept by the presence tracker
// and mirrored to the cache. It is not a database table.
type PresenceState struct {
	UserID        uint           `json:"user_id" msgpack:"user_id"`
	Status        PresenceStatus `json:"status" msgpack:"status"`
	StatusMessage string         `json:"status_message,omitempty" msgpack:"status_message"`
	LastSeen      *time.Time     `json:"last_seen" msgpack:"last_seen"`
	UpdatedAt     time.Time      `json:"updated_at" msgpack:"updated_at"`
}
