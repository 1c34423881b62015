package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/config"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/eventbus"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/observer"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/reqctx"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/storage"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/validator"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// staleCloseBatchSize bounds each FindStale page during a stale sweep.
const staleCloseBatchSize = 100

// DueReminder pairs a due follow-up with its urgency band computed at
// listing time. Urgency is derived, never persisted.
type DueReminder struct {
	FollowUp model.FollowUp `json:"follow_up"`
	Urgency  string         `json:"urgency"`
}

// FollowUpService implements the reminder engine: creation, the due
// notification window, and the snooze/dismiss/complete/auto-close state
// machine. All state changes go through row-locked transitions on the
// follow-up repository, so the last writer wins under concurrent actors.
type FollowUpService struct {
	followUpRepo storage.FollowUpRepo
	clientRepo   storage.ClientRepo
	bus          eventbus.Publisher
	cfg          config.RemindersConfig
}

// NewFollowUpService creates the reminder engine on top of the given
// repositories and event bus.
func NewFollowUpService(
	followUpRepo storage.FollowUpRepo,
	clientRepo storage.ClientRepo,
	bus eventbus.Publisher,
	cfg config.RemindersConfig,
) *FollowUpService {
	return &FollowUpService{
		followUpRepo: followUpRepo,
		clientRepo:   clientRepo,
		bus:          bus,
		cfg:          cfg,
	}
}

// Create validates and stores a new follow-up in the pending state.
func (s *FollowUpService) Create(ctx context.Context, payload model.FollowUp) (*model.FollowUp, error) {
	log := logger.FromContext(ctx)

	if err := validator.Validate(payload); err != nil {
		log.Warn("Validation failed for follow-up payload",
			zap.String("client_id", payload.ClientID),
			zap.Error(err),
		)
		return nil, apperrors.NewFatal(fmt.Errorf("%w: %v", apperrors.ErrValidation, err), "invalid follow-up payload")
	}

	if _, err := s.clientRepo.FindByID(ctx, payload.ClientID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewFatal(err, "follow-up references unknown client %s", payload.ClientID)
		}
		return nil, s.classifyRepoError(ctx, err, "failed to verify client for follow-up")
	}

	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}
	if payload.Type == "" {
		payload.Type = model.FollowUpTypeReminder
	}
	payload.ReminderState = model.ReminderStatePending
	payload.Completed = false
	payload.CompletedAt = nil
	now := utils.Now()
	payload.CreatedAt = now
	payload.UpdatedAt = now

	if err := s.followUpRepo.Create(ctx, payload); err != nil {
		return nil, s.classifyRepoError(ctx, err, "failed to create follow-up")
	}

	log.Info("Created follow-up",
		zap.String("follow_up_id", payload.ID),
		zap.String("client_id", payload.ClientID),
		zap.Time("scheduled_for", payload.ScheduledFor),
	)
	s.publishActivityUpdate(ctx, &payload, model.ActivityFollowUpCreated, nil)
	return &payload, nil
}

// FindByID returns a single follow-up.
func (s *FollowUpService) FindByID(ctx context.Context, id string) (*model.FollowUp, error) {
	followUp, err := s.followUpRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, s.classifyRepoError(ctx, err, "failed to load follow-up %s", id)
	}
	return followUp, nil
}

// ListByClient returns follow-ups, optionally restricted to one client and
// to the ones still eligible to surface. An empty clientID lists across all
// clients.
func (s *FollowUpService) ListByClient(ctx context.Context, clientID string, pendingOnly bool) ([]model.FollowUp, error) {
	followUps, err := s.followUpRepo.FindByClientID(ctx, clientID, pendingOnly)
	if err != nil {
		return nil, s.classifyRepoError(ctx, err, "failed to list follow-ups for client %s", clientID)
	}
	return followUps, nil
}

// ListDueForNotification returns the follow-ups inside the notification
// window around now, each tagged with its urgency band. Dismissed items
// never surface; a snoozed item stays hidden until its rescheduled time
// arrives, even when that time already sits inside the lookahead.
func (s *FollowUpService) ListDueForNotification(ctx context.Context, now time.Time) ([]DueReminder, error) {
	from := now.Add(-time.Duration(s.cfg.LookbackMinutes) * time.Minute)
	to := now.Add(time.Duration(s.cfg.LookaheadMinutes) * time.Minute)

	followUps, err := s.followUpRepo.FindDueWithin(ctx, now, from, to)
	if err != nil {
		return nil, s.classifyRepoError(ctx, err, "failed to list due follow-ups")
	}

	due := make([]DueReminder, 0, len(followUps))
	for _, fu := range followUps {
		due = append(due, DueReminder{
			FollowUp: fu,
			Urgency:  fu.Urgency(now),
		})
	}

	observer.ObserveRemindersDueListed(len(due))
	logger.FromContext(ctx).Debug("Listed due follow-ups",
		zap.Int("count", len(due)),
		zap.Time("window_from", from),
		zap.Time("window_to", to),
	)
	return due, nil
}

// MarkShown records that a reminder has been surfaced to its recipient.
// Idempotent: an already-shown follow-up is left untouched, and one that
// reached a terminal state between listing and delivery is silently
// skipped rather than failed.
func (s *FollowUpService) MarkShown(ctx context.Context, id string) (*model.FollowUp, error) {
	var fromState string

	updated, err := s.followUpRepo.Transition(ctx, id, func(fu *model.FollowUp) (*model.ActivityLog, bool, error) {
		if fu.ReminderState == model.ReminderStateShown {
			return nil, false, nil
		}
		if fu.Completed ||
			fu.ReminderState == model.ReminderStateDismissed ||
			fu.ReminderState == model.ReminderStateAutoClosed {
			return nil, false, nil
		}

		fromState = fu.ReminderState
		fu.ReminderState = model.ReminderStateShown
		return nil, true, nil
	})
	if err != nil {
		return nil, s.transitionError(ctx, err, id, "mark_shown")
	}

	if fromState != "" {
		observer.IncReminderTransition(fromState, model.ReminderStateShown, "system")
	}
	return updated, nil
}

// Snooze pushes a follow-up forward by the given number of minutes and
// drops it out of the due list until the new time arrives.
func (s *FollowUpService) Snooze(ctx context.Context, id string, minutes int) (*model.FollowUp, error) {
	if minutes <= 0 {
		return nil, apperrors.NewFatal(fmt.Errorf("%w: snooze minutes must be positive", apperrors.ErrValidation), "invalid snooze request")
	}

	actor := reqctx.ActorFromContext(ctx)
	now := utils.Now()
	var fromState string

	updated, err := s.followUpRepo.Transition(ctx, id, func(fu *model.FollowUp) (*model.ActivityLog, bool, error) {
		if fu.Completed {
			return nil, false, fmt.Errorf("%w: follow-up %s is already completed", apperrors.ErrConflict, fu.ID)
		}
		if fu.ReminderState == model.ReminderStateDismissed || fu.ReminderState == model.ReminderStateAutoClosed {
			return nil, false, fmt.Errorf("%w: follow-up %s is %s", apperrors.ErrConflict, fu.ID, fu.ReminderState)
		}

		fromState = fu.ReminderState
		fu.ReminderState = model.ReminderStateSnoozed
		fu.ScheduledFor = now.Add(time.Duration(minutes) * time.Minute)

		activity := &model.ActivityLog{
			ClientID: fu.ClientID,
			Action:   model.ActivityReminderSnoozed,
			Actor:    actor,
			Payload: utils.MustMarshalJSON(map[string]interface{}{
				"followUpId":       fu.ID,
				"from":             fromState,
				"snoozedByMinutes": minutes,
				"scheduledFor":     utils.FormatISO8601(fu.ScheduledFor),
			}),
		}
		return activity, true, nil
	})
	if err != nil {
		return nil, s.transitionError(ctx, err, id, "snooze")
	}

	observer.IncReminderTransition(fromState, model.ReminderStateSnoozed, actor)
	s.publishActivityUpdate(ctx, updated, model.ActivityReminderSnoozed, map[string]interface{}{
		"snoozedByMinutes": minutes,
	})
	logger.FromContext(ctx).Info("Snoozed follow-up",
		zap.String("follow_up_id", id),
		zap.Int("minutes", minutes),
		zap.String("from_state", fromState),
	)
	return updated, nil
}

// Dismiss takes a follow-up out of the notification flow for good.
// Dismissing an already dismissed follow-up is a no-op.
func (s *FollowUpService) Dismiss(ctx context.Context, id string) (*model.FollowUp, error) {
	actor := reqctx.ActorFromContext(ctx)
	var fromState string

	updated, err := s.followUpRepo.Transition(ctx, id, func(fu *model.FollowUp) (*model.ActivityLog, bool, error) {
		if fu.ReminderState == model.ReminderStateDismissed {
			return nil, false, nil
		}
		if fu.Completed {
			return nil, false, fmt.Errorf("%w: follow-up %s is already completed", apperrors.ErrConflict, fu.ID)
		}
		if fu.ReminderState == model.ReminderStateAutoClosed {
			return nil, false, fmt.Errorf("%w: follow-up %s is auto-closed", apperrors.ErrConflict, fu.ID)
		}

		fromState = fu.ReminderState
		fu.ReminderState = model.ReminderStateDismissed

		activity := &model.ActivityLog{
			ClientID: fu.ClientID,
			Action:   model.ActivityReminderDismissed,
			Actor:    actor,
			Payload: utils.MustMarshalJSON(map[string]interface{}{
				"followUpId": fu.ID,
				"from":       fromState,
			}),
		}
		return activity, true, nil
	})
	if err != nil {
		return nil, s.transitionError(ctx, err, id, "dismiss")
	}

	if fromState != "" {
		observer.IncReminderTransition(fromState, model.ReminderStateDismissed, actor)
		s.publishActivityUpdate(ctx, updated, model.ActivityReminderDismissed, nil)
	}
	return updated, nil
}

// Complete marks the underlying task done. Completing an already completed
// follow-up is a no-op, so retried requests are harmless.
func (s *FollowUpService) Complete(ctx context.Context, id string) (*model.FollowUp, error) {
	actor := reqctx.ActorFromContext(ctx)
	now := utils.Now()
	var fromState string

	updated, err := s.followUpRepo.Transition(ctx, id, func(fu *model.FollowUp) (*model.ActivityLog, bool, error) {
		if fu.Completed {
			return nil, false, nil
		}

		fromState = fu.ReminderState
		fu.Completed = true
		fu.CompletedAt = &now
		fu.ReminderState = model.ReminderStateCompleted

		activity := &model.ActivityLog{
			ClientID: fu.ClientID,
			Action:   model.ActivityFollowUpCompleted,
			Actor:    actor,
			Payload: utils.MustMarshalJSON(map[string]interface{}{
				"followUpId": fu.ID,
				"from":       fromState,
				"title":      fu.Title,
			}),
		}
		return activity, true, nil
	})
	if err != nil {
		return nil, s.transitionError(ctx, err, id, "complete")
	}

	if fromState != "" {
		observer.IncReminderTransition(fromState, model.ReminderStateCompleted, actor)
		s.publishActivityUpdate(ctx, updated, model.ActivityFollowUpCompleted, nil)
	}
	return updated, nil
}

// AutoClose retires a follow-up on the system's behalf, recording why.
// Already closed, dismissed or completed follow-ups are left untouched.
func (s *FollowUpService) AutoClose(ctx context.Context, id string, reason string) (*model.FollowUp, error) {
	var fromState string

	updated, err := s.followUpRepo.Transition(ctx, id, func(fu *model.FollowUp) (*model.ActivityLog, bool, error) {
		if fu.Completed ||
			fu.ReminderState == model.ReminderStateDismissed ||
			fu.ReminderState == model.ReminderStateAutoClosed {
			return nil, false, nil
		}

		fromState = fu.ReminderState
		fu.ReminderState = model.ReminderStateAutoClosed

		activity := &model.ActivityLog{
			ClientID: fu.ClientID,
			Action:   model.ActivityFollowUpAutoClosed,
			Actor:    "system",
			Payload: utils.MustMarshalJSON(map[string]interface{}{
				"followUpId": fu.ID,
				"from":       fromState,
				"reason":     reason,
			}),
		}
		return activity, true, nil
	})
	if err != nil {
		return nil, s.transitionError(ctx, err, id, "auto_close")
	}

	if fromState != "" {
		observer.IncReminderTransition(fromState, model.ReminderStateAutoClosed, "system")
		s.publishActivityUpdate(ctx, updated, model.ActivityFollowUpAutoClosed, map[string]interface{}{
			"reason": reason,
		})
	}
	return updated, nil
}

// CloseStale auto-closes incomplete follow-ups that have been overdue
// longer than the configured threshold. Returns the number closed. Run by
// the rollup job; failures on individual rows are logged and skipped so a
// single bad row cannot wedge the sweep.
func (s *FollowUpService) CloseStale(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)
	cutoff := utils.Now().Add(-time.Duration(s.cfg.StaleAfterHours) * time.Hour)
	closed := 0

	for {
		stale, err := s.followUpRepo.FindStale(ctx, cutoff, staleCloseBatchSize)
		if err != nil {
			return closed, s.classifyRepoError(ctx, err, "failed to list stale follow-ups")
		}
		if len(stale) == 0 {
			break
		}

		progressed := false
		for _, fu := range stale {
			if _, err := s.AutoClose(ctx, fu.ID, "stale"); err != nil {
				log.Warn("Failed to auto-close stale follow-up",
					zap.String("follow_up_id", fu.ID),
					zap.Error(err),
				)
				continue
			}
			progressed = true
			closed++
		}
		if !progressed || len(stale) < staleCloseBatchSize {
			break
		}
	}

	log.Info("Stale follow-up sweep finished",
		zap.Int("closed", closed),
		zap.Time("cutoff", cutoff),
	)
	return closed, nil
}

// publishActivityUpdate emits an activity_update event. Publication is best
// effort; a bus failure never fails the transition that triggered it.
func (s *FollowUpService) publishActivityUpdate(ctx context.Context, fu *model.FollowUp, action string, extra map[string]interface{}) {
	payload := map[string]interface{}{
		"clientId":      fu.ClientID,
		"followUpId":    fu.ID,
		"action":        action,
		"reminderState": fu.ReminderState,
		"scheduledFor":  utils.FormatISO8601(fu.ScheduledFor),
	}
	for k, v := range extra {
		payload[k] = v
	}
	if err := s.bus.Publish(ctx, eventbus.TopicActivityUpdate, payload); err != nil {
		logger.FromContext(ctx).Warn("Failed to publish activity update",
			zap.String("follow_up_id", fu.ID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// transitionError maps transition failures onto the service error contract.
// NotFound and conflicts pass through for the transport layer to map;
// everything else is classified like any other repository error.
func (s *FollowUpService) transitionError(ctx context.Context, err error, id, op string) error {
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrConflict) {
		logger.FromContext(ctx).Warn("Follow-up transition rejected",
			zap.String("follow_up_id", id),
			zap.String("operation", op),
			zap.Error(err),
		)
		return err
	}
	return s.classifyRepoError(ctx, err, "failed to %s follow-up %s", op, id)
}

// classifyRepoError wraps repository errors per the retry contract:
// transient database trouble becomes retryable, anything else fatal.
func (s *FollowUpService) classifyRepoError(ctx context.Context, err error, message string, args ...interface{}) error {
	log := logger.FromContext(ctx)
	if errors.Is(err, apperrors.ErrDatabase) || errors.Is(err, apperrors.ErrTimeout) {
		log.Warn("Potentially retryable repository error", zap.Error(err))
		return apperrors.NewRetryable(err, message, args...)
	}
	log.Error("Fatal repository error", zap.Error(err))
	return apperrors.NewFatal(err, message, args...)
}
