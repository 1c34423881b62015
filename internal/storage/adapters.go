package storage

import (
	"context"
	"time"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
)

// FollowUpRepoAdapter adapts the PostgresRepo to the FollowUpRepo interface
type FollowUpRepoAdapter struct {
	postgres *PostgresRepo
}

// NewFollowUpRepoAdapter creates a new follow-up repository adapter
func NewFollowUpRepoAdapter(postgres *PostgresRepo) FollowUpRepo {
	return &FollowUpRepoAdapter{postgres: postgres}
}

// Create creates a follow-up
func (a *FollowUpRepoAdapter) Create(ctx context.Context, followUp model.FollowUp) error {
	return a.postgres.CreateFollowUp(ctx, followUp)
}

// FindByID finds a follow-up by ID
func (a *FollowUpRepoAdapter) FindByID(ctx context.Context, id string) (*model.FollowUp, error) {
	return a.postgres.FindFollowUpByID(ctx, id)
}

// FindByClientID finds follow-ups for a client
func (a *FollowUpRepoAdapter) FindByClientID(ctx context.Context, clientID string, pendingOnly bool) ([]model.FollowUp, error) {
	return a.postgres.FindFollowUpsByClientID(ctx, clientID, pendingOnly)
}

// FindDueWithin finds follow-ups due inside a window
func (a *FollowUpRepoAdapter) FindDueWithin(ctx context.Context, asOf, from, to time.Time) ([]model.FollowUp, error) {
	return a.postgres.FindFollowUpsDueWithin(ctx, asOf, from, to)
}

// FindStale finds long-overdue follow-ups
func (a *FollowUpRepoAdapter) FindStale(ctx context.Context, overdueSince time.Time, limit int) ([]model.FollowUp, error) {
	return a.postgres.FindStaleFollowUps(ctx, overdueSince, limit)
}

// Transition applies a locked state mutation
func (a *FollowUpRepoAdapter) Transition(ctx context.Context, id string, mutate FollowUpMutation) (*model.FollowUp, error) {
	return a.postgres.TransitionFollowUp(ctx, id, mutate)
}

// CountPending counts incomplete follow-ups due by an instant
func (a *FollowUpRepoAdapter) CountPending(ctx context.Context, dueBy time.Time) (int64, error) {
	return a.postgres.CountPendingFollowUps(ctx, dueBy)
}

func (a *FollowUpRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// ClientRepoAdapter adapts the PostgresRepo to the ClientRepo interface
type ClientRepoAdapter struct {
	postgres *PostgresRepo
}

// NewClientRepoAdapter creates a new client repository adapter
func NewClientRepoAdapter(postgres *PostgresRepo) ClientRepo {
	return &ClientRepoAdapter{postgres: postgres}
}

// Save saves a client
func (a *ClientRepoAdapter) Save(ctx context.Context, client model.Client) error {
	return a.postgres.SaveClient(ctx, client)
}

// Update updates a client
func (a *ClientRepoAdapter) Update(ctx context.Context, client model.Client) error {
	return a.postgres.UpdateClient(ctx, client)
}

// UpdateLeadScore updates a client's scoring columns
func (a *ClientRepoAdapter) UpdateLeadScore(ctx context.Context, id string, score int, probability float64) error {
	return a.postgres.UpdateClientLeadScore(ctx, id, score, probability)
}

// FindByID finds a client by ID
func (a *ClientRepoAdapter) FindByID(ctx context.Context, id string) (*model.Client, error) {
	return a.postgres.FindClientByID(ctx, id)
}

// FindByPhone finds a client by phone number
func (a *ClientRepoAdapter) FindByPhone(ctx context.Context, phone string) (*model.Client, error) {
	return a.postgres.FindClientByPhone(ctx, phone)
}

// FindHotLeads finds high-score unconverted clients
func (a *ClientRepoAdapter) FindHotLeads(ctx context.Context, minScore, limit int) ([]model.Client, error) {
	return a.postgres.FindHotLeadClients(ctx, minScore, limit)
}

// CountCreatedBetween counts clients created in a window
func (a *ClientRepoAdapter) CountCreatedBetween(ctx context.Context, start, end time.Time) (int64, error) {
	return a.postgres.CountClientsCreatedBetween(ctx, start, end)
}

// CountUpdatedBetween counts pre-existing clients touched in a window
func (a *ClientRepoAdapter) CountUpdatedBetween(ctx context.Context, start, end time.Time) (int64, error) {
	return a.postgres.CountClientsUpdatedBetween(ctx, start, end)
}

func (a *ClientRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// ConversationRepoAdapter adapts the PostgresRepo to the ConversationRepo interface
type ConversationRepoAdapter struct {
	postgres *PostgresRepo
}

// NewConversationRepoAdapter creates a new conversation repository adapter
func NewConversationRepoAdapter(postgres *PostgresRepo) ConversationRepo {
	return &ConversationRepoAdapter{postgres: postgres}
}

// Save saves a conversation
func (a *ConversationRepoAdapter) Save(ctx context.Context, conversation model.Conversation) error {
	return a.postgres.SaveConversation(ctx, conversation)
}

// FindByID finds a conversation by ID
func (a *ConversationRepoAdapter) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	return a.postgres.FindConversationByID(ctx, id)
}

// FindActiveByClientID finds the client's most recent active conversation
func (a *ConversationRepoAdapter) FindActiveByClientID(ctx context.Context, clientID string) (*model.Conversation, error) {
	return a.postgres.FindActiveConversationByClientID(ctx, clientID)
}

// AppendMessage inserts a message and bumps the conversation counters
func (a *ConversationRepoAdapter) AppendMessage(ctx context.Context, conversationID string, message model.Message) (*model.Conversation, error) {
	return a.postgres.AppendConversationMessage(ctx, conversationID, message)
}

// FindDangling finds recently contacted conversations still awaiting a reply
func (a *ConversationRepoAdapter) FindDangling(ctx context.Context, since time.Time) ([]model.Conversation, error) {
	return a.postgres.FindDanglingConversations(ctx, since)
}

// CountByStatus counts conversations in a status
func (a *ConversationRepoAdapter) CountByStatus(ctx context.Context, status string, createdBefore time.Time) (int64, error) {
	return a.postgres.CountConversationsByStatus(ctx, status, createdBefore)
}

// CountAll counts all conversations
func (a *ConversationRepoAdapter) CountAll(ctx context.Context) (int64, error) {
	return a.postgres.CountAllConversations(ctx)
}

// CountSLABreached counts unanswered conversations past their answer window
func (a *ConversationRepoAdapter) CountSLABreached(ctx context.Context, createdFrom, createdTo, answerDeadline time.Time) (int64, error) {
	return a.postgres.CountSLABreachedConversations(ctx, createdFrom, createdTo, answerDeadline)
}

// AvgResponseMinutes averages minutes to first activity
func (a *ConversationRepoAdapter) AvgResponseMinutes(ctx context.Context, createdFrom, createdTo time.Time) (float64, error) {
	return a.postgres.AvgConversationResponseMinutes(ctx, createdFrom, createdTo)
}

func (a *ConversationRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// MessageRepoAdapter adapts the PostgresRepo to the MessageRepo interface
type MessageRepoAdapter struct {
	postgres *PostgresRepo
}

// NewMessageRepoAdapter creates a new message repository adapter
func NewMessageRepoAdapter(postgres *PostgresRepo) MessageRepo {
	return &MessageRepoAdapter{postgres: postgres}
}

// FindByMessageID finds a message by provider message ID
func (a *MessageRepoAdapter) FindByMessageID(ctx context.Context, messageID string) (*model.Message, error) {
	return a.postgres.FindMessageByMessageID(ctx, messageID)
}

// FindRecentByConversation finds the latest messages of a conversation
func (a *MessageRepoAdapter) FindRecentByConversation(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	return a.postgres.FindRecentMessagesByConversation(ctx, conversationID, limit)
}

// CountBetween counts messages in a window
func (a *MessageRepoAdapter) CountBetween(ctx context.Context, start, end time.Time) (int64, error) {
	return a.postgres.CountMessagesBetween(ctx, start, end)
}

// AvgSentimentBetween averages sentiment over scored incoming messages
func (a *MessageRepoAdapter) AvgSentimentBetween(ctx context.Context, start, end time.Time) (float64, bool, error) {
	return a.postgres.AvgMessageSentimentBetween(ctx, start, end)
}

func (a *MessageRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// ActivityLogRepoAdapter adapts the PostgresRepo to the ActivityLogRepo interface
type ActivityLogRepoAdapter struct {
	postgres *PostgresRepo
}

// NewActivityLogRepoAdapter creates a new activity log repository adapter
func NewActivityLogRepoAdapter(postgres *PostgresRepo) ActivityLogRepo {
	return &ActivityLogRepoAdapter{postgres: postgres}
}

// Save appends an activity entry
func (a *ActivityLogRepoAdapter) Save(ctx context.Context, entry model.ActivityLog) error {
	return a.postgres.SaveActivityLog(ctx, entry)
}

// FindByClientID lists a client's activity
func (a *ActivityLogRepoAdapter) FindByClientID(ctx context.Context, clientID string, limit, offset int) ([]model.ActivityLog, error) {
	return a.postgres.FindActivityLogsByClientID(ctx, clientID, limit, offset)
}

// CountConversionsBetween counts conversion status changes in a window
func (a *ActivityLogRepoAdapter) CountConversionsBetween(ctx context.Context, start, end time.Time) (int64, error) {
	return a.postgres.CountConversionsBetween(ctx, start, end)
}

func (a *ActivityLogRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// DailyMetricsRepoAdapter adapts the PostgresRepo to the DailyMetricsRepo interface
type DailyMetricsRepoAdapter struct {
	postgres *PostgresRepo
}

// NewDailyMetricsRepoAdapter creates a new daily metrics repository adapter
func NewDailyMetricsRepoAdapter(postgres *PostgresRepo) DailyMetricsRepo {
	return &DailyMetricsRepoAdapter{postgres: postgres}
}

// Upsert writes the rollup row for a day
func (a *DailyMetricsRepoAdapter) Upsert(ctx context.Context, metrics model.DailyMetrics) error {
	return a.postgres.UpsertDailyMetrics(ctx, metrics)
}

// FindByDay finds the rollup row for a day
func (a *DailyMetricsRepoAdapter) FindByDay(ctx context.Context, day time.Time) (*model.DailyMetrics, error) {
	return a.postgres.FindDailyMetricsByDay(ctx, day)
}

func (a *DailyMetricsRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// Ensure adapters implement the interfaces
var _ FollowUpRepo = (*FollowUpRepoAdapter)(nil)
var _ ClientRepo = (*ClientRepoAdapter)(nil)
var _ ConversationRepo = (*ConversationRepoAdapter)(nil)
var _ MessageRepo = (*MessageRepoAdapter)(nil)
var _ ActivityLogRepo = (*ActivityLogRepoAdapter)(nil)
var _ DailyMetricsRepo = (*DailyMetricsRepoAdapter)(nil)
