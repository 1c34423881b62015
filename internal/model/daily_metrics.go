package model

import (
	"time"
)

// DailyMetrics is one aggregated metrics snapshot per calendar day.
// Day is the natural key; the rollup job upserts, never duplicates.
type DailyMetrics struct {
	ID                  int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Day                 time.Time `json:"day" gorm:"uniqueIndex;type:date" validate:"required"`
	Messages            int64     `json:"messages"`
	NewClients          int64     `json:"new_clients"`
	UpdatedClients      int64     `json:"updated_clients"`
	Conversions         int64     `json:"conversions"`
	SLABreaches         int64     `json:"sla_breaches" gorm:"column:sla_breaches"`
	PendingFollowUps    int64     `json:"pending_followups" gorm:"column:pending_followups"`
	ActiveConversations int64     `json:"active_conversations"`
	AvgResponseMin      float64   `json:"avg_response_min"`
	CreatedAt           time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt           time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the DailyMetrics model.
func (DailyMetrics) TableName() string {
	return "daily_metrics"
}

// DailyMetricsUpdateColumns lists the columns overwritten on an upsert for
// an existing day. Re-running the rollup for the same day must yield the
// identical row given identical underlying data.
func DailyMetricsUpdateColumns() []string {
	return []string{
		"messages",
		"new_clients",
		"updated_clients",
		"conversions",
		"sla_breaches",
		"pending_followups",
		"active_conversations",
		"avg_response_min",
		"updated_at",
	}
}
