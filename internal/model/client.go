package model

import (
	"time"

	"gorm.io/datatypes"
)

// Client status values.
const (
	ClientStatusProspect = "PROSPECT"
	ClientStatusActive   = "ACTIVE"
	ClientStatusInactive = "INACTIVE"
	ClientStatusVIP      = "VIP"
)

// Client represents a prospective or existing buyer in the PostgreSQL database.
// Clients are never hard-deleted; INACTIVE is the retirement state.
type Client struct {
	ID                    string         `json:"id" gorm:"primaryKey;type:text"`
	Name                  string         `json:"name" gorm:"type:text" validate:"required"`
	PhoneNumber           string         `json:"phone_number" gorm:"uniqueIndex;type:text" validate:"required"`
	Email                 string         `json:"email,omitempty" gorm:"type:text"`
	Status                string         `json:"status,omitempty" gorm:"type:text;default:PROSPECT"` // PROSPECT, ACTIVE, INACTIVE or VIP
	Priority              string         `json:"priority,omitempty" gorm:"type:text"`                // LOW, MEDIUM, HIGH
	LeadScore             int            `json:"lead_score,omitempty" gorm:"index"`                  // derived 0-100 estimate
	ConversionProbability float64        `json:"conversion_probability,omitempty"`
	Budget                string         `json:"budget,omitempty" gorm:"type:text"`
	Timeframe             string         `json:"timeframe,omitempty" gorm:"type:text"`
	FollowUpRequired      bool           `json:"follow_up_required,omitempty"`
	Notes                 string         `json:"notes,omitempty" gorm:"type:text"`
	Tags                  string         `json:"tags,omitempty" gorm:"type:text"` // comma-separated
	Origin                string         `json:"origin,omitempty" gorm:"type:text"`
	CreatedAt             time.Time      `json:"created_at,omitempty" gorm:"autoCreateTime;index"`
	UpdatedAt             time.Time      `json:"updated_at,omitempty" gorm:"autoUpdateTime;index"`
	Metadata              datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`
}

// TableName specifies the table name for the Client model.
func (Client) TableName() string {
	return "clients"
}
