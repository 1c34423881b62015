package model

import (
	"time"

	"gorm.io/datatypes"
)

// Message directions.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// Message is a single WhatsApp-style message inside a conversation.
// Immutable once created.
type Message struct {
	ID               int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID        string         `json:"message_id" gorm:"uniqueIndex;type:text" validate:"required"`
	ConversationID   string         `json:"conversation_id" gorm:"index;type:text" validate:"required"`
	ClientID         string         `json:"client_id" gorm:"index;type:text"`
	Direction        string         `json:"direction" gorm:"type:text;index" validate:"required,oneof=incoming outgoing"`
	Body             string         `json:"body,omitempty" gorm:"type:text"`
	SentimentScore   *float64       `json:"sentiment_score,omitempty"` // [-1, 1] when analyzed
	MessageTimestamp time.Time      `json:"message_timestamp" gorm:"index"`
	Metadata         datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt        time.Time      `json:"created_at,omitempty" gorm:"autoCreateTime;index"`
}

// TableName specifies the table name for the Message model.
func (Message) TableName() string {
	return "messages"
}
