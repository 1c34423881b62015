package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/storage"
)

// --- FollowUpRepo Mock ---

// FollowUpRepoMock mocks the FollowUpRepo interface
type FollowUpRepoMock struct {
	mock.Mock
}

// Create mocks the Create method
func (m *FollowUpRepoMock) Create(ctx context.Context, followUp model.FollowUp) error {
	args := m.Called(ctx, followUp)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *FollowUpRepoMock) FindByID(ctx context.Context, id string) (*model.FollowUp, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FollowUp), args.Error(1)
}

// FindByClientID mocks the FindByClientID method
func (m *FollowUpRepoMock) FindByClientID(ctx context.Context, clientID string, pendingOnly bool) ([]model.FollowUp, error) {
	args := m.Called(ctx, clientID, pendingOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FollowUp), args.Error(1)
}

// FindDueWithin mocks the FindDueWithin method
func (m *FollowUpRepoMock) FindDueWithin(ctx context.Context, asOf, from, to time.Time) ([]model.FollowUp, error) {
	args := m.Called(ctx, asOf, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FollowUp), args.Error(1)
}

// FindStale mocks the FindStale method
func (m *FollowUpRepoMock) FindStale(ctx context.Context, overdueSince time.Time, limit int) ([]model.FollowUp, error) {
	args := m.Called(ctx, overdueSince, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FollowUp), args.Error(1)
}

// Transition mocks the Transition method
func (m *FollowUpRepoMock) Transition(ctx context.Context, id string, mutate storage.FollowUpMutation) (*model.FollowUp, error) {
	args := m.Called(ctx, id, mutate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FollowUp), args.Error(1)
}

// CountPending mocks the CountPending method
func (m *FollowUpRepoMock) CountPending(ctx context.Context, dueBy time.Time) (int64, error) {
	args := m.Called(ctx, dueBy)
	return args.Get(0).(int64), args.Error(1)
}

// Close mocks the Close method
func (m *FollowUpRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- ClientRepo Mock ---

// ClientRepoMock mocks the ClientRepo interface
type ClientRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *ClientRepoMock) Save(ctx context.Context, client model.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

// Update mocks the Update method
func (m *ClientRepoMock) Update(ctx context.Context, client model.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

// UpdateLeadScore mocks the UpdateLeadScore method
func (m *ClientRepoMock) UpdateLeadScore(ctx context.Context, id string, score int, probability float64) error {
	args := m.Called(ctx, id, score, probability)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *ClientRepoMock) FindByID(ctx context.Context, id string) (*model.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

// FindByPhone mocks the FindByPhone method
func (m *ClientRepoMock) FindByPhone(ctx context.Context, phone string) (*model.Client, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

// FindHotLeads mocks the FindHotLeads method
func (m *ClientRepoMock) FindHotLeads(ctx context.Context, minScore, limit int) ([]model.Client, error) {
	args := m.Called(ctx, minScore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Client), args.Error(1)
}

// CountCreatedBetween mocks the CountCreatedBetween method
func (m *ClientRepoMock) CountCreatedBetween(ctx context.Context, start, end time.Time) (int64, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(int64), args.Error(1)
}

// CountUpdatedBetween mocks the CountUpdatedBetween method
func (m *ClientRepoMock) CountUpdatedBetween(ctx context.Context, start, end time.Time) (int64, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(int64), args.Error(1)
}

// Close mocks the Close method
func (m *ClientRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- ConversationRepo Mock ---

// ConversationRepoMock mocks the ConversationRepo interface
type ConversationRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *ConversationRepoMock) Save(ctx context.Context, conversation model.Conversation) error {
	args := m.Called(ctx, conversation)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *ConversationRepoMock) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

// FindActiveByClientID mocks the FindActiveByClientID method
func (m *ConversationRepoMock) FindActiveByClientID(ctx context.Context, clientID string) (*model.Conversation, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

// AppendMessage mocks the AppendMessage method
func (m *ConversationRepoMock) AppendMessage(ctx context.Context, conversationID string, message model.Message) (*model.Conversation, error) {
	args := m.Called(ctx, conversationID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

// FindDangling mocks the FindDangling method
func (m *ConversationRepoMock) FindDangling(ctx context.Context, since time.Time) ([]model.Conversation, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Conversation), args.Error(1)
}

// CountByStatus mocks the CountByStatus method
func (m *ConversationRepoMock) CountByStatus(ctx context.Context, status string, createdBefore time.Time) (int64, error) {
	args := m.Called(ctx, status, createdBefore)
	return args.Get(0).(int64), args.Error(1)
}

// CountAll mocks the CountAll method
func (m *ConversationRepoMock) CountAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// CountSLABreached mocks the CountSLABreached method
func (m *ConversationRepoMock) CountSLABreached(ctx context.Context, createdFrom, createdTo, answerDeadline time.Time) (int64, error) {
	args := m.Called(ctx, createdFrom, createdTo, answerDeadline)
	return args.Get(0).(int64), args.Error(1)
}

// AvgResponseMinutes mocks the AvgResponseMinutes method
func (m *ConversationRepoMock) AvgResponseMinutes(ctx context.Context, createdFrom, createdTo time.Time) (float64, error) {
	args := m.Called(ctx, createdFrom, createdTo)
	return args.Get(0).(float64), args.Error(1)
}

// Close mocks the Close method
func (m *ConversationRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- MessageRepo Mock ---

// MessageRepoMock mocks the MessageRepo interface
type MessageRepoMock struct {
	mock.Mock
}

// FindByMessageID mocks the FindByMessageID method
func (m *MessageRepoMock) FindByMessageID(ctx context.Context, messageID string) (*model.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

// FindRecentByConversation mocks the FindRecentByConversation method
func (m *MessageRepoMock) FindRecentByConversation(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	args := m.Called(ctx, conversationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

// CountBetween mocks the CountBetween method
func (m *MessageRepoMock) CountBetween(ctx context.Context, start, end time.Time) (int64, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(int64), args.Error(1)
}

// AvgSentimentBetween mocks the AvgSentimentBetween method
func (m *MessageRepoMock) AvgSentimentBetween(ctx context.Context, start, end time.Time) (float64, bool, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(float64), args.Bool(1), args.Error(2)
}

// Close mocks the Close method
func (m *MessageRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- ActivityLogRepo Mock ---

// ActivityLogRepoMock mocks the ActivityLogRepo interface
type ActivityLogRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *ActivityLogRepoMock) Save(ctx context.Context, entry model.ActivityLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// FindByClientID mocks the FindByClientID method
func (m *ActivityLogRepoMock) FindByClientID(ctx context.Context, clientID string, limit, offset int) ([]model.ActivityLog, error) {
	args := m.Called(ctx, clientID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActivityLog), args.Error(1)
}

// CountConversionsBetween mocks the CountConversionsBetween method
func (m *ActivityLogRepoMock) CountConversionsBetween(ctx context.Context, start, end time.Time) (int64, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(int64), args.Error(1)
}

// Close mocks the Close method
func (m *ActivityLogRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- DailyMetricsRepo Mock ---

// DailyMetricsRepoMock mocks the DailyMetricsRepo interface
type DailyMetricsRepoMock struct {
	mock.Mock
}

// Upsert mocks the Upsert method
func (m *DailyMetricsRepoMock) Upsert(ctx context.Context, metrics model.DailyMetrics) error {
	args := m.Called(ctx, metrics)
	return args.Error(0)
}

// FindByDay mocks the FindByDay method
func (m *DailyMetricsRepoMock) FindByDay(ctx context.Context, day time.Time) (*model.DailyMetrics, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailyMetrics), args.Error(1)
}

// Close mocks the Close method
func (m *DailyMetricsRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Ensure mocks implement the interfaces
var _ storage.FollowUpRepo = (*FollowUpRepoMock)(nil)
var _ storage.ClientRepo = (*ClientRepoMock)(nil)
var _ storage.ConversationRepo = (*ConversationRepoMock)(nil)
var _ storage.MessageRepo = (*MessageRepoMock)(nil)
var _ storage.ActivityLogRepo = (*ActivityLogRepoMock)(nil)
var _ storage.DailyMetricsRepo = (*DailyMetricsRepoMock)(nil)
