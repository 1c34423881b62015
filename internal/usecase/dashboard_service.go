package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/config"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/observer"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/storage"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// satisfactionWindow is the trailing window of scored incoming messages
// feeding the satisfaction figure.
const satisfactionWindow = 7 * 24 * time.Hour

// DashboardStats is the headline numbers block the UI polls for.
type DashboardStats struct {
	MessagesToday     int64   `json:"messages_today"`
	MessagesYesterday int64   `json:"messages_yesterday"`
	MessageGrowth     string  `json:"message_growth"`
	PendingFollowUps  int64   `json:"pending_followups"`
	TotalChats        int64   `json:"total_chats"`
	ActiveChats       int64   `json:"active_chats"`
	Satisfaction      float64 `json:"satisfaction"`
	SLABreaches       int64   `json:"sla_breaches"`
}

// NextActions bundles the three "act on this now" lists into one response.
type NextActions struct {
	Due      []DueReminder        `json:"due"`
	Hot      []model.Client       `json:"hot"`
	Dangling []model.Conversation `json:"dangling"`
}

// DashboardService serves side-effect-free aggregate reads. Every query
// degrades gracefully: a broken sub-query logs, bumps a failure counter and
// contributes a zeroed or empty default instead of failing the response.
type DashboardService struct {
	messageRepo      storage.MessageRepo
	followUpRepo     storage.FollowUpRepo
	conversationRepo storage.ConversationRepo
	clientRepo       storage.ClientRepo
	cfg              config.DashboardConfig
}

// NewDashboardService creates the dashboard read models on top of the
// given repositories.
func NewDashboardService(
	messageRepo storage.MessageRepo,
	followUpRepo storage.FollowUpRepo,
	conversationRepo storage.ConversationRepo,
	clientRepo storage.ClientRepo,
	cfg config.DashboardConfig,
) *DashboardService {
	return &DashboardService{
		messageRepo:      messageRepo,
		followUpRepo:     followUpRepo,
		conversationRepo: conversationRepo,
		clientRepo:       clientRepo,
		cfg:              cfg,
	}
}

// Stats assembles the headline dashboard numbers as of now. Always returns
// a usable struct; fields backed by a failed query come back zeroed.
func (s *DashboardService) Stats(ctx context.Context, now time.Time) *DashboardStats {
	log := logger.FromContext(ctx)
	today := utils.StartOfDayUTC(now)
	yesterday := today.Add(-24 * time.Hour)

	stats := &DashboardStats{Satisfaction: 3.0}

	messagesToday, err := s.messageRepo.CountBetween(ctx, today, today.Add(24*time.Hour))
	if err != nil {
		s.degrade(log, "messages_today", err)
	} else {
		stats.MessagesToday = messagesToday
	}

	messagesYesterday, err := s.messageRepo.CountBetween(ctx, yesterday, today)
	if err != nil {
		s.degrade(log, "messages_yesterday", err)
	} else {
		stats.MessagesYesterday = messagesYesterday
	}

	stats.MessageGrowth = formatMessageGrowth(stats.MessagesToday, stats.MessagesYesterday)

	if pending, err := s.followUpRepo.CountPending(ctx, now); err != nil {
		s.degrade(log, "pending_followups", err)
	} else {
		stats.PendingFollowUps = pending
	}

	if total, err := s.conversationRepo.CountAll(ctx); err != nil {
		s.degrade(log, "total_chats", err)
	} else {
		stats.TotalChats = total
	}

	if active, err := s.conversationRepo.CountByStatus(ctx, model.ConversationStatusActive, now); err != nil {
		s.degrade(log, "active_chats", err)
	} else {
		stats.ActiveChats = active
	}

	avgSentiment, scored, err := s.messageRepo.AvgSentimentBetween(ctx, now.Add(-satisfactionWindow), now)
	if err != nil {
		s.degrade(log, "satisfaction", err)
	} else if scored {
		stats.Satisfaction = clampSatisfaction(avgSentiment*2 + 3)
	}

	if breaches, err := s.conversationRepo.CountSLABreached(ctx, time.Time{}, now, now.Add(-slaAnswerWindow)); err != nil {
		s.degrade(log, "sla_breaches", err)
	} else {
		stats.SLABreaches = breaches
	}

	return stats
}

// HotLeads returns the highest-scoring clients, ordered by lead score
// descending, regardless of status.
func (s *DashboardService) HotLeads(ctx context.Context) ([]model.Client, error) {
	return s.clientRepo.FindHotLeads(ctx, s.cfg.HotLeadMinScore, s.cfg.HotLeadLimit)
}

// DanglingConversations returns active conversations whose latest incoming
// message inside the configured window is newer than any outgoing reply.
func (s *DashboardService) DanglingConversations(ctx context.Context, now time.Time) ([]model.Conversation, error) {
	since := now.Add(-time.Duration(s.cfg.DanglingHours) * time.Hour)
	return s.conversationRepo.FindDangling(ctx, since)
}

// Next composes the due / hot / dangling lists. The three sub-queries are
// independent; one failing yields an empty list for that slot only.
func (s *DashboardService) Next(ctx context.Context, now time.Time) *NextActions {
	log := logger.FromContext(ctx)
	actions := &NextActions{
		Due:      []DueReminder{},
		Hot:      []model.Client{},
		Dangling: []model.Conversation{},
	}

	today := utils.StartOfDayUTC(now)
	dayEnd := today.Add(24 * time.Hour)
	// asOf = dayEnd so an item snoozed to later today still counts as due today.
	dueToday, err := s.followUpRepo.FindDueWithin(ctx, dayEnd, today, dayEnd)
	if err != nil {
		s.degrade(log, "next_due", err)
	} else {
		for _, fu := range dueToday {
			actions.Due = append(actions.Due, DueReminder{FollowUp: fu, Urgency: fu.Urgency(now)})
		}
	}

	if hot, err := s.HotLeads(ctx); err != nil {
		s.degrade(log, "next_hot", err)
	} else if hot != nil {
		actions.Hot = hot
	}

	if dangling, err := s.DanglingConversations(ctx, now); err != nil {
		s.degrade(log, "next_dangling", err)
	} else if dangling != nil {
		actions.Dangling = dangling
	}

	return actions
}

func (s *DashboardService) degrade(log *zap.Logger, query string, err error) {
	observer.IncDashboardQueryFailure(query)
	log.Warn("Dashboard sub-query failed, using default",
		zap.String("query", query),
		zap.Error(err),
	)
}

// formatMessageGrowth renders today-vs-yesterday growth as the UI expects:
// "0" when both days are empty, "100" when yesterday was empty but today is
// not, otherwise the percentage change rounded to one decimal.
func formatMessageGrowth(today, yesterday int64) string {
	if yesterday == 0 {
		if today == 0 {
			return "0"
		}
		return "100"
	}
	growth := float64(today-yesterday) / float64(yesterday) * 100
	return fmt.Sprintf("%.1f", growth)
}

// clampSatisfaction pins the derived satisfaction figure onto the 1-5 scale.
func clampSatisfaction(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}
