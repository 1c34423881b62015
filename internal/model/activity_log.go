package model

import (
	"time"

	"gorm.io/datatypes"
)

// Activity log actions. The payload carries the transition details.
const (
	ActivityStatusChanged      = "status_changed"
	ActivityFollowUpCreated    = "follow_up_created"
	ActivityFieldEdited        = "field_edited"
	ActivityFollowUpCompleted  = "follow_up_completed"
	ActivityReminderSnoozed    = "reminder_snoozed"
	ActivityReminderDismissed  = "reminder_dismissed"
	ActivityFollowUpAutoClosed = "follow_up_auto_closed"
	ActivityLeadScoreUpdated   = "lead_score_updated"
)

// ActivityLog is an immutable audit record of a client-affecting event.
// Rows are append-only and written alongside the mutation they document.
type ActivityLog struct {
	ID        int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	ClientID  string         `json:"client_id" gorm:"index;type:text" validate:"required"`
	Action    string         `json:"action" gorm:"type:text;index" validate:"required"`
	Actor     string         `json:"actor,omitempty" gorm:"type:text"`
	Payload   datatypes.JSON `json:"payload,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at,omitempty" gorm:"autoCreateTime;index"`
}

// TableName specifies the table name for the ActivityLog model.
func (ActivityLog) TableName() string {
	return "activity_logs"
}
