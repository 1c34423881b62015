package storage

import (
	"context"
	"time"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
)

// FollowUpMutation is applied to a follow-up row inside a transaction while
// the row is locked. It mutates the follow-up in place and returns an
// optional activity entry to append atomically with the update. Returning
// save=false commits nothing (used for idempotent no-ops).
type FollowUpMutation func(fu *model.FollowUp) (activity *model.ActivityLog, save bool, err error)

// FollowUpRepo defines follow-up storage operations
type FollowUpRepo interface {
	Create(ctx context.Context, followUp model.FollowUp) error
	FindByID(ctx context.Context, id string) (*model.FollowUp, error)
	FindByClientID(ctx context.Context, clientID string, pendingOnly bool) ([]model.FollowUp, error)
	FindDueWithin(ctx context.Context, asOf, from, to time.Time) ([]model.FollowUp, error)
	FindStale(ctx context.Context, overdueSince time.Time, limit int) ([]model.FollowUp, error)
	Transition(ctx context.Context, id string, mutate FollowUpMutation) (*model.FollowUp, error)
	CountPending(ctx context.Context, dueBy time.Time) (int64, error)
	Close(ctx context.Context) error
}

// ClientRepo defines client storage operations
type ClientRepo interface {
	Save(ctx context.Context, client model.Client) error
	Update(ctx context.Context, client model.Client) error
	UpdateLeadScore(ctx context.Context, id string, score int, probability float64) error
	FindByID(ctx context.Context, id string) (*model.Client, error)
	FindByPhone(ctx context.Context, phone string) (*model.Client, error)
	FindHotLeads(ctx context.Context, minScore, limit int) ([]model.Client, error)
	CountCreatedBetween(ctx context.Context, start, end time.Time) (int64, error)
	CountUpdatedBetween(ctx context.Context, start, end time.Time) (int64, error)
	Close(ctx context.Context) error
}

// ConversationRepo defines conversation storage operations
type ConversationRepo interface {
	Save(ctx context.Context, conversation model.Conversation) error
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	FindActiveByClientID(ctx context.Context, clientID string) (*model.Conversation, error)
	AppendMessage(ctx context.Context, conversationID string, message model.Message) (*model.Conversation, error)
	FindDangling(ctx context.Context, since time.Time) ([]model.Conversation, error)
	CountByStatus(ctx context.Context, status string, createdBefore time.Time) (int64, error)
	CountAll(ctx context.Context) (int64, error)
	CountSLABreached(ctx context.Context, createdFrom, createdTo, answerDeadline time.Time) (int64, error)
	AvgResponseMinutes(ctx context.Context, createdFrom, createdTo time.Time) (float64, error)
	Close(ctx context.Context) error
}

// MessageRepo defines message storage operations
type MessageRepo interface {
	FindByMessageID(ctx context.Context, messageID string) (*model.Message, error)
	FindRecentByConversation(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
	CountBetween(ctx context.Context, start, end time.Time) (int64, error)
	AvgSentimentBetween(ctx context.Context, start, end time.Time) (float64, bool, error)
	Close(ctx context.Context) error
}

// ActivityLogRepo defines activity log storage operations
type ActivityLogRepo interface {
	Save(ctx context.Context, entry model.ActivityLog) error
	FindByClientID(ctx context.Context, clientID string, limit, offset int) ([]model.ActivityLog, error)
	CountConversionsBetween(ctx context.Context, start, end time.Time) (int64, error)
	Close(ctx context.Context) error
}

// DailyMetricsRepo defines daily metrics storage operations
type DailyMetricsRepo interface {
	Upsert(ctx context.Context, metrics model.DailyMetrics) error
	FindByDay(ctx context.Context, day time.Time) (*model.DailyMetrics, error)
	Close(ctx context.Context) error
}
