package model

import (
	"time"
)

// InboundMessagePayload is the wire shape of an inbound WhatsApp-style
// message event consumed from JetStream. The messaging provider publishes
// these; timestamps are unix milliseconds.
type InboundMessagePayload struct {
	MessageID        string                 `json:"message_id" validate:"required"`
	FromPhone        string                 `json:"from_phone" validate:"required"`
	PushName         string                 `json:"push_name,omitempty"`
	Body             string                 `json:"body,omitempty"`
	Channel          string                 `json:"channel,omitempty"`
	MessageTimestamp int64                  `json:"message_timestamp" validate:"required"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// CreateFollowUpPayload is the request body for creating a follow-up.
type CreateFollowUpPayload struct {
	ClientID     string                 `json:"client_id" validate:"required"`
	Type         string                 `json:"type,omitempty" validate:"omitempty,oneof=reminder call email meeting task"`
	Title        string                 `json:"title" validate:"required"`
	Description  string                 `json:"description,omitempty"`
	ScheduledFor time.Time              `json:"scheduled_for" validate:"required"`
	Priority     string                 `json:"priority,omitempty"`
	Channel      string                 `json:"channel,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// CreateClientPayload is the request body for creating a client.
type CreateClientPayload struct {
	Name        string                 `json:"name" validate:"required"`
	PhoneNumber string                 `json:"phone_number" validate:"required"`
	Email       string                 `json:"email,omitempty" validate:"omitempty,email"`
	Status      string                 `json:"status,omitempty" validate:"omitempty,oneof=PROSPECT ACTIVE INACTIVE VIP"`
	Priority    string                 `json:"priority,omitempty"`
	Budget      string                 `json:"budget,omitempty"`
	Timeframe   string                 `json:"timeframe,omitempty"`
	Notes       string                 `json:"notes,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// UpdateClientPayload is the request body for editing a client. Nil fields
// are left untouched; each changed field is recorded in the activity log.
type UpdateClientPayload struct {
	Name             *string `json:"name,omitempty"`
	Email            *string `json:"email,omitempty" validate:"omitempty,email"`
	Status           *string `json:"status,omitempty" validate:"omitempty,oneof=PROSPECT ACTIVE INACTIVE VIP"`
	Priority         *string `json:"priority,omitempty"`
	Budget           *string `json:"budget,omitempty"`
	Timeframe        *string `json:"timeframe,omitempty"`
	Notes            *string `json:"notes,omitempty"`
	Tags             *string `json:"tags,omitempty"`
	FollowUpRequired *bool   `json:"follow_up_required,omitempty"`
}
