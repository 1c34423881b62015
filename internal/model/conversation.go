package model

import (
	"time"
)

// Conversation status values.
const (
	ConversationStatusActive = "active"
	ConversationStatusClosed = "closed"
)

// Conversation groups messages exchanged with a single client. Created on
// the first inbound message and updated on every message after that.
type Conversation struct {
	ID            string     `json:"id" gorm:"primaryKey;type:text"`
	ClientID      string     `json:"client_id" gorm:"index;type:text" validate:"required"`
	Status        string     `json:"status,omitempty" gorm:"type:text;default:active;index"`
	Channel       string     `json:"channel,omitempty" gorm:"type:text;default:whatsapp"`
	MessageCount  int        `json:"message_count"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty" gorm:"index"`
	CreatedAt     time.Time  `json:"created_at,omitempty" gorm:"autoCreateTime;index"`
	UpdatedAt     time.Time  `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Conversation model.
func (Conversation) TableName() string {
	return "conversations"
}
