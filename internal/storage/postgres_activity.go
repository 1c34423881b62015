package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/observer"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// --- Activity Log Repository Methods ---

// SaveActivityLog appends an activity entry.
func (r *PostgresRepo) SaveActivityLog(ctx context.Context, entry model.ActivityLog) error {
	operation := func() error {
		if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveActivityLog", operation)
	observer.ObserveDbOperationDuration("create", "activity_log", time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save activity log after retries", zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindActivityLogsByClientID lists a client's activity, newest first.
func (r *PostgresRepo) FindActivityLogsByClientID(ctx context.Context, clientID string, limit, offset int) ([]model.ActivityLog, error) {
	var entries []model.ActivityLog
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("client_id = ?", clientID).
			Order("created_at DESC").
			Limit(limit).
			Offset(offset).
			Find(&entries)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindActivityLogsByClientID", operation)
	observer.ObserveDbOperationDuration("find_by_client", "activity_log", time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find activity logs after retries",
			zap.String("client_id", clientID),
			zap.Error(findErr))
		return nil, findErr
	}
	if entries == nil {
		return []model.ActivityLog{}, nil
	}
	return entries, nil
}

// CountConversionsBetween counts status-change activity entries landing on a
// converted status in [from, to). The payload carries the new status under
// the "to" key.
func (r *PostgresRepo) CountConversionsBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.ActivityLog{}).
			Where("action = ?", model.ActivityStatusChanged).
			Where("created_at >= ? AND created_at < ?", from, to).
			Where("payload ->> 'to' IN ?", []string{model.ClientStatusActive, model.ClientStatusVIP}).
			Count(&count)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "CountConversionsBetween", operation)
	observer.ObserveDbOperationDuration("count_conversions", "activity_log", time.Since(startTime), findErr)
	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to count conversions after retries", zap.Error(findErr))
		return 0, findErr
	}
	return count, nil
}
