package models

import "time"

type ContactStatus string

const (
	ContactAccepted ContactStatus = "accepted"
	ContactPending  ContactStatus = "pending"
	ContactBlocked  ContactStatus = "blocked"
)

// Contact is the relationship table owned by the social collaborator. The
// realtime core only reads it to fan presence updates out to accepted contacts.
type Contact struct {
	UserID    uint          `gorm:"primaryKey" json:"user_id"`
	ContactID uint          `gorm:"primaryKey" json:"contact_id"`
	Status    ContactStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	User    User `gorm:"foreignKey:UserID" json:"-"`
	Contact User `gorm:"foreignKey:ContactID" json:"-"`
}
