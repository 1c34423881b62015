package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/observer"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// --- Client Repository Methods ---

// SaveClient inserts a client record.
func (r *PostgresRepo) SaveClient(ctx context.Context, client model.Client) error {
	operation := func() error {
		if err := r.db.WithContext(ctx).Create(&client).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveClient", operation)
	observer.ObserveDbOperationDuration("create", "client", time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save client after retries", zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// UpdateClient persists the full client row.
func (r *PostgresRepo) UpdateClient(ctx context.Context, client model.Client) error {
	operation := func() error {
		client.UpdatedAt = utils.Now()
		result := r.db.WithContext(ctx).Save(&client)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return backoffPermanentNotFound("client_id", client.ID)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateClient", operation)
	observer.ObserveDbOperationDuration("update", "client", time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to update client after retries",
			zap.String("client_id", client.ID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// UpdateClientLeadScore updates only the scoring columns of a client.
func (r *PostgresRepo) UpdateClientLeadScore(ctx context.Context, id string, leadScore int, probability float64) error {
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Client{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"lead_score":             leadScore,
				"conversion_probability": probability,
				"updated_at":             utils.Now(),
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return backoffPermanentNotFound("client_id", id)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateClientLeadScore", operation)
	observer.ObserveDbOperationDuration("update_lead_score", "client", time.Since(startTime), commitErr)
	if commitErr != nil {
		if errors.Is(commitErr, apperrors.ErrNotFound) {
			return commitErr
		}
		logger.FromContext(ctx).Error("Failed to update client lead score after retries",
			zap.String("client_id", id),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindClientByID finds a client by its ID.
func (r *PostgresRepo) FindClientByID(ctx context.Context, id string) (*model.Client, error) {
	var client model.Client
	operation := func() error {
		result := r.db.WithContext(ctx).Where("id = ?", id).First(&client)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: client_id %s: %w", apperrors.ErrNotFound, id, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindClientByID", operation)
	observer.ObserveDbOperationDuration("find_by_id", "client", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find client by ID after retries",
			zap.String("client_id", id),
			zap.Error(findErr))
		return nil, findErr
	}
	return &client, nil
}

// FindClientByPhone finds a client by phone number.
func (r *PostgresRepo) FindClientByPhone(ctx context.Context, phoneNumber string) (*model.Client, error) {
	var client model.Client
	operation := func() error {
		result := r.db.WithContext(ctx).Where("phone_number = ?", phoneNumber).First(&client)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: phone_number %s: %w", apperrors.ErrNotFound, phoneNumber, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindClientByPhone", operation)
	observer.ObserveDbOperationDuration("find_by_phone", "client", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find client by phone after retries",
			zap.String("phone_number", phoneNumber),
			zap.Error(findErr))
		return nil, findErr
	}
	return &client, nil
}

// FindHotLeadClients returns clients at or above the score threshold,
// highest score first, capped at limit. Status plays no part here; a
// high-scoring active or VIP client is still a hot lead.
func (r *PostgresRepo) FindHotLeadClients(ctx context.Context, minScore, limit int) ([]model.Client, error) {
	var clients []model.Client
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("lead_score >= ?", minScore).
			Order("lead_score DESC").
			Limit(limit).
			Find(&clients)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindHotLeadClients", operation)
	observer.ObserveDbOperationDuration("find_hot_leads", "client", time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find hot lead clients after retries",
			zap.Int("min_score", minScore),
			zap.Error(findErr))
		return nil, findErr
	}
	if clients == nil {
		return []model.Client{}, nil
	}
	return clients, nil
}

// CountClientsCreatedBetween counts clients created in [from, to).
func (r *PostgresRepo) CountClientsCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Client{}).
			Where("created_at >= ? AND created_at < ?", from, to).
			Count(&count)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "CountClientsCreatedBetween", operation)
	observer.ObserveDbOperationDuration("count_created", "client", time.Since(startTime), findErr)
	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to count created clients after retries", zap.Error(findErr))
		return 0, findErr
	}
	return count, nil
}

// CountClientsUpdatedBetween counts clients touched in [from, to) that were
// created before the window, so newly-created rows are not double counted.
func (r *PostgresRepo) CountClientsUpdatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Client{}).
			Where("updated_at >= ? AND updated_at < ?", from, to).
			Where("created_at < ?", from).
			Count(&count)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "CountClientsUpdatedBetween", operation)
	observer.ObserveDbOperationDuration("count_updated", "client", time.Since(startTime), findErr)
	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to count updated clients after retries", zap.Error(findErr))
		return 0, findErr
	}
	return count, nil
}

func backoffPermanentNotFound(key, value string) error {
	return backoff.Permanent(fmt.Errorf("%w: %s %s: no rows affected", apperrors.ErrNotFound, key, value))
}
