package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	apperrors "gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/observer"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/storage"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// slaAnswerWindow is how long a conversation may sit unanswered before it
// counts as an SLA breach.
const slaAnswerWindow = 24 * time.Hour

// RollupService aggregates one calendar day of raw activity into a single
// DailyMetrics row. The rollup is idempotent: re-running for the same day
// overwrites the row with freshly computed values.
type RollupService struct {
	messageRepo      storage.MessageRepo
	clientRepo       storage.ClientRepo
	conversationRepo storage.ConversationRepo
	activityRepo     storage.ActivityLogRepo
	followUpRepo     storage.FollowUpRepo
	metricsRepo      storage.DailyMetricsRepo
}

// NewRollupService creates the daily rollup on top of the given repositories.
func NewRollupService(
	messageRepo storage.MessageRepo,
	clientRepo storage.ClientRepo,
	conversationRepo storage.ConversationRepo,
	activityRepo storage.ActivityLogRepo,
	followUpRepo storage.FollowUpRepo,
	metricsRepo storage.DailyMetricsRepo,
) *RollupService {
	return &RollupService{
		messageRepo:      messageRepo,
		clientRepo:       clientRepo,
		conversationRepo: conversationRepo,
		activityRepo:     activityRepo,
		followUpRepo:     followUpRepo,
		metricsRepo:      metricsRepo,
	}
}

// Rollup computes and upserts the metrics row for the UTC day containing
// target. Any failed aggregate aborts the whole run; a partial row is
// never written.
func (s *RollupService) Rollup(ctx context.Context, target time.Time) (*model.DailyMetrics, error) {
	log := logger.FromContext(ctx)
	started := utils.Now()

	day := utils.StartOfDayUTC(target)
	dayEnd := day.Add(24 * time.Hour)

	metrics, err := s.computeDay(ctx, day, dayEnd)
	if err != nil {
		observer.ObserveRollupDuration(time.Since(started), err)
		log.Error("Rollup aborted",
			zap.Time("day", day),
			zap.Error(err),
		)
		return nil, err
	}

	if err := s.metricsRepo.Upsert(ctx, *metrics); err != nil {
		err = s.classify(err, "failed to upsert daily metrics for %s", utils.FormatDay(day))
		observer.ObserveRollupDuration(time.Since(started), err)
		log.Error("Rollup aborted",
			zap.Time("day", day),
			zap.Error(err),
		)
		return nil, err
	}

	observer.ObserveRollupDuration(time.Since(started), nil)
	log.Info("Rollup finished",
		zap.Time("day", day),
		zap.Int64("messages", metrics.Messages),
		zap.Int64("new_clients", metrics.NewClients),
		zap.Int64("updated_clients", metrics.UpdatedClients),
		zap.Int64("conversions", metrics.Conversions),
		zap.Int64("sla_breaches", metrics.SLABreaches),
		zap.Int64("pending_followups", metrics.PendingFollowUps),
		zap.Int64("active_conversations", metrics.ActiveConversations),
		zap.Float64("avg_response_min", metrics.AvgResponseMin),
		zap.Duration("duration", time.Since(started)),
	)
	return metrics, nil
}

// computeDay runs the seven aggregates over [day, dayEnd). The first
// failure wins; zeroes from a broken query must never masquerade as data.
func (s *RollupService) computeDay(ctx context.Context, day, dayEnd time.Time) (*model.DailyMetrics, error) {
	messages, err := s.messageRepo.CountBetween(ctx, day, dayEnd)
	if err != nil {
		return nil, s.classify(err, "failed to count messages")
	}

	newClients, err := s.clientRepo.CountCreatedBetween(ctx, day, dayEnd)
	if err != nil {
		return nil, s.classify(err, "failed to count new clients")
	}

	updatedClients, err := s.clientRepo.CountUpdatedBetween(ctx, day, dayEnd)
	if err != nil {
		return nil, s.classify(err, "failed to count updated clients")
	}

	conversions, err := s.activityRepo.CountConversionsBetween(ctx, day, dayEnd)
	if err != nil {
		return nil, s.classify(err, "failed to count conversions")
	}

	slaBreaches, err := s.conversationRepo.CountSLABreached(ctx, day, dayEnd, dayEnd.Add(-slaAnswerWindow))
	if err != nil {
		return nil, s.classify(err, "failed to count sla breaches")
	}

	pendingFollowUps, err := s.followUpRepo.CountPending(ctx, dayEnd)
	if err != nil {
		return nil, s.classify(err, "failed to count pending follow-ups")
	}

	activeConversations, err := s.conversationRepo.CountByStatus(ctx, model.ConversationStatusActive, dayEnd)
	if err != nil {
		return nil, s.classify(err, "failed to count active conversations")
	}

	avgResponseMin, err := s.conversationRepo.AvgResponseMinutes(ctx, day, dayEnd)
	if err != nil {
		return nil, s.classify(err, "failed to compute average response time")
	}

	now := utils.Now()
	return &model.DailyMetrics{
		Day:                 day,
		Messages:            messages,
		NewClients:          newClients,
		UpdatedClients:      updatedClients,
		Conversions:         conversions,
		SLABreaches:         slaBreaches,
		PendingFollowUps:    pendingFollowUps,
		ActiveConversations: activeConversations,
		AvgResponseMin:      avgResponseMin,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

func (s *RollupService) classify(err error, message string, args ...interface{}) error {
	if errors.Is(err, apperrors.ErrDatabase) || errors.Is(err, apperrors.ErrTimeout) {
		return apperrors.NewRetryable(err, message, args...)
	}
	return apperrors.NewFatal(err, message, args...)
}
