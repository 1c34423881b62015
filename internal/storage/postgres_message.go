package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/observer"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// --- Message Repository Methods ---

// FindMessageByMessageID finds a message by its provider-assigned message ID.
// Used for inbound dedupe.
func (r *PostgresRepo) FindMessageByMessageID(ctx context.Context, messageID string) (*model.Message, error) {
	var message model.Message
	operation := func() error {
		result := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&message)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: message_id %s: %w", apperrors.ErrNotFound, messageID, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindMessageByMessageID", operation)
	observer.ObserveDbOperationDuration("find_by_message_id", "message", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find message by message ID after retries",
			zap.String("message_id", messageID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &message, nil
}

// FindRecentMessagesByConversation returns the latest messages for a
// conversation, newest first, capped at limit. Feeds suggestion prompts.
func (r *PostgresRepo) FindRecentMessagesByConversation(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	var messages []model.Message
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("conversation_id = ?", conversationID).
			Order("message_timestamp DESC").
			Limit(limit).
			Find(&messages)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindRecentMessagesByConversation", operation)
	observer.ObserveDbOperationDuration("find_recent_by_conversation", "message", time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find recent messages after retries",
			zap.String("conversation_id", conversationID),
			zap.Error(findErr))
		return nil, findErr
	}
	if messages == nil {
		return []model.Message{}, nil
	}
	return messages, nil
}

// CountMessagesBetween counts messages whose timestamp falls in [from, to).
func (r *PostgresRepo) CountMessagesBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Message{}).
			Where("message_timestamp >= ? AND message_timestamp < ?", from, to).
			Count(&count)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "CountMessagesBetween", operation)
	observer.ObserveDbOperationDuration("count_between", "message", time.Since(startTime), findErr)
	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to count messages after retries", zap.Error(findErr))
		return 0, findErr
	}
	return count, nil
}

// AvgMessageSentimentBetween averages sentiment over incoming messages with a
// recorded score in [from, to). Returns (0, false) when no scored messages
// exist in the window.
func (r *PostgresRepo) AvgMessageSentimentBetween(ctx context.Context, from, to time.Time) (float64, bool, error) {
	var avg *float64
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Message{}).
			Select("AVG(sentiment_score)").
			Where("message_timestamp >= ? AND message_timestamp < ?", from, to).
			Where("direction = ?", model.DirectionIncoming).
			Where("sentiment_score IS NOT NULL").
			Scan(&avg)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "AvgMessageSentimentBetween", operation)
	observer.ObserveDbOperationDuration("avg_sentiment", "message", time.Since(startTime), findErr)
	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to average message sentiment after retries", zap.Error(findErr))
		return 0, false, findErr
	}
	if avg == nil {
		return 0, false, nil
	}
	return *avg, true, nil
}
