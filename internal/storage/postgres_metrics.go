package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/observer"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// --- Daily Metrics Repository Methods ---

// UpsertDailyMetrics inserts or fully overwrites the row for the metric's
// day. Re-running a rollup for the same day converges on the latest values.
func (r *PostgresRepo) UpsertDailyMetrics(ctx context.Context, metrics model.DailyMetrics) error {
	operation := func() error {
		metrics.UpdatedAt = utils.Now()
		result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "day"}},
			DoUpdates: clause.AssignmentColumns(model.DailyMetricsUpdateColumns()),
		}).Create(&metrics)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpsertDailyMetrics", operation)
	observer.ObserveDbOperationDuration("upsert", "daily_metrics", time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to upsert daily metrics after retries",
			zap.Time("day", metrics.Day),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindDailyMetricsByDay finds the rollup row for a day.
func (r *PostgresRepo) FindDailyMetricsByDay(ctx context.Context, day time.Time) (*model.DailyMetrics, error) {
	var metrics model.DailyMetrics
	operation := func() error {
		result := r.db.WithContext(ctx).Where("day = ?", day).First(&metrics)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: no metrics for day %s: %w", apperrors.ErrNotFound, utils.FormatDay(day), result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindDailyMetricsByDay", operation)
	observer.ObserveDbOperationDuration("find_by_day", "daily_metrics", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find daily metrics after retries",
			zap.Time("day", day),
			zap.Error(findErr))
		return nil, findErr
	}
	return &metrics, nil
}
