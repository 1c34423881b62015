package model

import (
	"time"

	"gorm.io/datatypes"
)

// Follow-up types.
const (
	FollowUpTypeReminder = "reminder"
	FollowUpTypeCall     = "call"
	FollowUpTypeEmail    = "email"
	FollowUpTypeMeeting  = "meeting"
	FollowUpTypeTask     = "task"
)

// Reminder lifecycle states. A follow-up is eligible to notify iff it is
// not completed and its state is not dismissed or snoozed; snoozed items
// re-enter eligibility once the rescheduled time arrives.
const (
	ReminderStatePending    = "pending"
	ReminderStateShown      = "shown"
	ReminderStateSnoozed    = "snoozed"
	ReminderStateDismissed  = "dismissed"
	ReminderStateCompleted  = "completed"
	ReminderStateAutoClosed = "auto_closed"
)

// Urgency bands derived from scheduled_for relative to now.
const (
	UrgencyOverdue     = "overdue"
	UrgencyDueVerySoon = "due_very_soon" // within the next 2 hours
	UrgencyDueSoon     = "due_soon"      // within the next 24 hours
	UrgencyDueLater    = "due_later"
)

// FollowUp represents a scheduled reminder tied to a client.
type FollowUp struct {
	ID            string         `json:"id" gorm:"primaryKey;type:text"`
	ClientID      string         `json:"client_id" gorm:"index;type:text" validate:"required"`
	Type          string         `json:"type,omitempty" gorm:"type:text;default:reminder"`
	Title         string         `json:"title" gorm:"type:text" validate:"required"`
	Description   string         `json:"description,omitempty" gorm:"type:text"`
	ScheduledFor  time.Time      `json:"scheduled_for" gorm:"index" validate:"required"`
	Completed     bool           `json:"completed"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	Priority      string         `json:"priority,omitempty" gorm:"type:text"`
	ReminderState string         `json:"reminder_state,omitempty" gorm:"type:text;default:pending;index"`
	Channel       string         `json:"channel,omitempty" gorm:"type:text"`
	Metadata      datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt     time.Time      `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the FollowUp model.
func (FollowUp) TableName() string {
	return "follow_ups"
}

// Active reports whether the follow-up is still eligible to surface as a
// notification.
func (f *FollowUp) Active() bool {
	return !f.Completed &&
		f.ReminderState != ReminderStateDismissed &&
		f.ReminderState != ReminderStateSnoozed &&
		f.ReminderState != ReminderStateAutoClosed
}

// Urgency classifies the follow-up relative to now. Derived only, never stored.
func (f *FollowUp) Urgency(now time.Time) string {
	switch {
	case f.ScheduledFor.Before(now):
		return UrgencyOverdue
	case !f.ScheduledFor.After(now.Add(2 * time.Hour)):
		return UrgencyDueVerySoon
	case !f.ScheduledFor.After(now.Add(24 * time.Hour)):
		return UrgencyDueSoon
	default:
		return UrgencyDueLater
	}
}
