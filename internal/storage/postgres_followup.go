package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/observer"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// --- Follow-up Repository Methods ---

// CreateFollowUp inserts a new follow-up record.
func (r *PostgresRepo) CreateFollowUp(ctx context.Context, followUp model.FollowUp) error {
	operation := func() error {
		if err := r.db.WithContext(ctx).Create(&followUp).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "CreateFollowUp", operation)
	observer.ObserveDbOperationDuration("create", "follow_up", time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to create follow-up after retries", zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindFollowUpByID finds a follow-up by its ID.
func (r *PostgresRepo) FindFollowUpByID(ctx context.Context, id string) (*model.FollowUp, error) {
	var followUp model.FollowUp
	operation := func() error {
		result := r.db.WithContext(ctx).Where("id = ?", id).First(&followUp)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: follow_up_id %s: %w", apperrors.ErrNotFound, id, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindFollowUpByID", operation)
	observer.ObserveDbOperationDuration("find_by_id", "follow_up", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find follow-up by ID after retries",
			zap.String("follow_up_id", id),
			zap.Error(findErr))
		return nil, findErr
	}
	return &followUp, nil
}

// FindFollowUpsByClientID lists follow-ups ordered by schedule, optionally
// filtered to one client (empty clientID means all clients). When pendingOnly
// is set, completed and terminally-closed records are filtered out.
func (r *PostgresRepo) FindFollowUpsByClientID(ctx context.Context, clientID string, pendingOnly bool) ([]model.FollowUp, error) {
	var followUps []model.FollowUp
	operation := func() error {
		query := r.db.WithContext(ctx)
		if clientID != "" {
			query = query.Where("client_id = ?", clientID)
		}
		if pendingOnly {
			query = query.Where("completed = ? AND reminder_state NOT IN ?",
				false, []string{model.ReminderStateDismissed, model.ReminderStateAutoClosed})
		}
		result := query.Order("scheduled_for ASC").Find(&followUps)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindFollowUpsByClientID", operation)
	observer.ObserveDbOperationDuration("find_by_client", "follow_up", time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find follow-ups by client after retries",
			zap.String("client_id", clientID),
			zap.Bool("pending_only", pendingOnly),
			zap.Error(findErr))
		return nil, findErr
	}
	if followUps == nil {
		return []model.FollowUp{}, nil
	}
	return followUps, nil
}

// FindFollowUpsDueWithin returns follow-ups whose scheduled_for falls inside
// [from, to], that are not completed, and whose reminder state still permits
// notification. Dismissed and auto-closed items never qualify. A snoozed
// item stays hidden until its rescheduled time reaches asOf, then re-enters.
func (r *PostgresRepo) FindFollowUpsDueWithin(ctx context.Context, asOf, from, to time.Time) ([]model.FollowUp, error) {
	var followUps []model.FollowUp
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("scheduled_for >= ? AND scheduled_for <= ?", from, to).
			Where("completed = ?", false).
			Where("reminder_state NOT IN ?", []string{model.ReminderStateDismissed, model.ReminderStateAutoClosed}).
			Where("(reminder_state <> ? OR scheduled_for <= ?)", model.ReminderStateSnoozed, asOf).
			Order("scheduled_for ASC").
			Find(&followUps)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindFollowUpsDueWithin", operation)
	observer.ObserveDbOperationDuration("find_due_within", "follow_up", time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find due follow-ups after retries",
			zap.Time("from", from),
			zap.Time("to", to),
			zap.Error(findErr))
		return nil, findErr
	}
	if followUps == nil {
		return []model.FollowUp{}, nil
	}
	return followUps, nil
}

// FindStaleFollowUps returns incomplete follow-ups overdue since before the
// given instant, excluding terminally-closed records. Used by the auto-close
// sweep; limit bounds a single sweep batch.
func (r *PostgresRepo) FindStaleFollowUps(ctx context.Context, overdueSince time.Time, limit int) ([]model.FollowUp, error) {
	var followUps []model.FollowUp
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("scheduled_for < ?", overdueSince).
			Where("completed = ?", false).
			Where("reminder_state NOT IN ?", []string{model.ReminderStateDismissed, model.ReminderStateAutoClosed}).
			Order("scheduled_for ASC").
			Limit(limit).
			Find(&followUps)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindStaleFollowUps", operation)
	observer.ObserveDbOperationDuration("find_stale", "follow_up", time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find stale follow-ups after retries",
			zap.Time("overdue_since", overdueSince),
			zap.Error(findErr))
		return nil, findErr
	}
	if followUps == nil {
		return []model.FollowUp{}, nil
	}
	return followUps, nil
}

// TransitionFollowUp applies a state mutation to a follow-up row and appends
// its activity entry in a single transaction. The row is locked for the
// duration, so concurrent transitions on the same id serialize and resolve
// last-write-wins.
func (r *PostgresRepo) TransitionFollowUp(ctx context.Context, id string, mutate FollowUpMutation) (*model.FollowUp, error) {
	var updated model.FollowUp

	operation := func() error {
		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
				panic(r)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					logger.FromContext(ctx).Error("Failed to rollback transaction after error",
						zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		var followUp model.FollowUp
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&followUp)
		if findErr := result.Error; findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: follow_up_id %s: %w", apperrors.ErrNotFound, id, findErr)
				return backoff.Permanent(txErr)
			}
			txErr = fmt.Errorf("%w: failed to lock follow-up row: %w", apperrors.ErrDatabase, findErr)
			return txErr
		}

		activity, save, mutateErr := mutate(&followUp)
		if mutateErr != nil {
			txErr = mutateErr
			return backoff.Permanent(txErr)
		}

		if save {
			followUp.UpdatedAt = utils.Now()
			if saveErr := tx.Save(&followUp).Error; saveErr != nil {
				txErr = checkConstraintViolation(saveErr)
				return txErr
			}
			if activity != nil {
				if logErr := tx.Create(activity).Error; logErr != nil {
					txErr = checkConstraintViolation(logErr)
					return txErr
				}
			}
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit transition transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		updated = followUp
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "TransitionFollowUp Commit", operation)
	observer.ObserveDbOperationDuration("transition", "follow_up", time.Since(startTime), commitErr)
	if commitErr != nil {
		if errors.Is(commitErr, apperrors.ErrNotFound) {
			return nil, commitErr
		}
		logger.FromContext(ctx).Error("Failed to transition follow-up after retries",
			zap.String("follow_up_id", id),
			zap.Error(commitErr))
		return nil, commitErr
	}
	return &updated, nil
}

// CountPendingFollowUps counts incomplete follow-ups scheduled on or before dueBy.
func (r *PostgresRepo) CountPendingFollowUps(ctx context.Context, dueBy time.Time) (int64, error) {
	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.FollowUp{}).
			Where("completed = ? AND scheduled_for <= ?", false, dueBy).
			Count(&count)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "CountPendingFollowUps", operation)
	observer.ObserveDbOperationDuration("count_pending", "follow_up", time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to count pending follow-ups after retries",
			zap.Time("due_by", dueBy),
			zap.Error(findErr))
		return 0, findErr
	}
	return count, nil
}
