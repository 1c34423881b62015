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

// --- Conversation Repository Methods ---

// SaveConversation inserts a conversation record.
func (r *PostgresRepo) SaveConversation(ctx context.Context, conversation model.Conversation) error {
	operation := func() error {
		if err := r.db.WithContext(ctx).Create(&conversation).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveConversation", operation)
	observer.ObserveDbOperationDuration("create", "conversation", time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save conversation after retries", zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindConversationByID finds a conversation by its ID.
func (r *PostgresRepo) FindConversationByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conversation model.Conversation
	operation := func() error {
		result := r.db.WithContext(ctx).Where("id = ?", id).First(&conversation)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: conversation_id %s: %w", apperrors.ErrNotFound, id, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindConversationByID", operation)
	observer.ObserveDbOperationDuration("find_by_id", "conversation", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find conversation by ID after retries",
			zap.String("conversation_id", id),
			zap.Error(findErr))
		return nil, findErr
	}
	return &conversation, nil
}

// FindActiveConversationByClientID returns the most recent active
// conversation for a client, or ErrNotFound when none exists.
func (r *PostgresRepo) FindActiveConversationByClientID(ctx context.Context, clientID string) (*model.Conversation, error) {
	var conversation model.Conversation
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("client_id = ? AND status = ?", clientID, model.ConversationStatusActive).
			Order("created_at DESC").
			First(&conversation)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: no active conversation for client %s: %w", apperrors.ErrNotFound, clientID, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindActiveConversationByClientID", operation)
	observer.ObserveDbOperationDuration("find_active_by_client", "conversation", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find active conversation after retries",
			zap.String("client_id", clientID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &conversation, nil
}

// AppendConversationMessage inserts a message and bumps the parent
// conversation's counters in one transaction. The conversation row is locked
// so concurrent appends serialize. Returns the updated conversation.
func (r *PostgresRepo) AppendConversationMessage(ctx context.Context, conversationID string, message model.Message) (*model.Conversation, error) {
	var updated model.Conversation

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

		var conversation model.Conversation
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", conversationID).
			First(&conversation)
		if findErr := result.Error; findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: conversation_id %s: %w", apperrors.ErrNotFound, conversationID, findErr)
				return backoff.Permanent(txErr)
			}
			txErr = fmt.Errorf("%w: failed to lock conversation row: %w", apperrors.ErrDatabase, findErr)
			return txErr
		}

		message.ConversationID = conversationID
		if createErr := tx.Create(&message).Error; createErr != nil {
			txErr = checkConstraintViolation(createErr)
			return txErr
		}

		messageAt := message.MessageTimestamp
		conversation.MessageCount++
		if conversation.LastMessageAt == nil || messageAt.After(*conversation.LastMessageAt) {
			conversation.LastMessageAt = &messageAt
		}
		conversation.UpdatedAt = utils.Now()
		if saveErr := tx.Save(&conversation).Error; saveErr != nil {
			txErr = checkConstraintViolation(saveErr)
			return txErr
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit append transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		updated = conversation
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "AppendConversationMessage Commit", operation)
	observer.ObserveDbOperationDuration("append_message", "conversation", time.Since(startTime), commitErr)
	if commitErr != nil {
		if errors.Is(commitErr, apperrors.ErrNotFound) {
			return nil, commitErr
		}
		logger.FromContext(ctx).Error("Failed to append conversation message after retries",
			zap.String("conversation_id", conversationID),
			zap.Error(commitErr))
		return nil, commitErr
	}
	return &updated, nil
}

// FindDanglingConversations returns active conversations whose most recent
// incoming message arrived at or after since and is newer than every
// outgoing message. A conversation with no outgoing messages at all counts
// as soon as it has a recent incoming message.
func (r *PostgresRepo) FindDanglingConversations(ctx context.Context, since time.Time) ([]model.Conversation, error) {
	var conversations []model.Conversation
	operation := func() error {
		result := r.db.WithContext(ctx).Raw(`
			SELECT c.* FROM conversations c
			JOIN (
				SELECT conversation_id,
					MAX(CASE WHEN direction = ? THEN message_timestamp END) AS last_in,
					MAX(CASE WHEN direction = ? THEN message_timestamp END) AS last_out
				FROM messages
				GROUP BY conversation_id
			) m ON m.conversation_id = c.id
			WHERE c.status = ?
			  AND m.last_in IS NOT NULL
			  AND m.last_in >= ?
			  AND (m.last_out IS NULL OR m.last_out < m.last_in)
			ORDER BY m.last_in ASC`,
			model.DirectionIncoming,
			model.DirectionOutgoing,
			model.ConversationStatusActive,
			since,
		).Scan(&conversations)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindDanglingConversations", operation)
	observer.ObserveDbOperationDuration("find_dangling", "conversation", time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find dangling conversations after retries",
			zap.Time("since", since),
			zap.Error(findErr))
		return nil, findErr
	}
	if conversations == nil {
		return []model.Conversation{}, nil
	}
	return conversations, nil
}

// CountConversationsByStatus counts conversations in a status created on or
// before the given instant.
func (r *PostgresRepo) CountConversationsByStatus(ctx context.Context, status string, createdBefore time.Time) (int64, error) {
	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Conversation{}).
			Where("status = ? AND created_at <= ?", status, createdBefore).
			Count(&count)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "CountConversationsByStatus", operation)
	observer.ObserveDbOperationDuration("count_by_status", "conversation", time.Since(startTime), findErr)
	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to count conversations by status after retries",
			zap.String("status", status),
			zap.Error(findErr))
		return 0, findErr
	}
	return count, nil
}

// CountAllConversations counts every conversation regardless of status.
func (r *PostgresRepo) CountAllConversations(ctx context.Context) (int64, error) {
	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Conversation{}).Count(&count)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "CountAllConversations", operation)
	observer.ObserveDbOperationDuration("count_all", "conversation", time.Since(startTime), findErr)
	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to count conversations after retries", zap.Error(findErr))
		return 0, findErr
	}
	return count, nil
}

// CountSLABreachedConversations counts conversations created in [createdFrom,
// createdTo) that were never answered and whose answer window closed at or
// before answerDeadline.
func (r *PostgresRepo) CountSLABreachedConversations(ctx context.Context, createdFrom, createdTo, answerDeadline time.Time) (int64, error) {
	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Conversation{}).
			Where("created_at >= ? AND created_at < ?", createdFrom, createdTo).
			Where("created_at <= ?", answerDeadline).
			Where("message_count = 0 OR last_message_at IS NULL").
			Count(&count)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "CountSLABreachedConversations", operation)
	observer.ObserveDbOperationDuration("count_sla_breached", "conversation", time.Since(startTime), findErr)
	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to count SLA breached conversations after retries", zap.Error(findErr))
		return 0, findErr
	}
	return count, nil
}

// AvgConversationResponseMinutes averages the minutes between conversation
// creation and first recorded activity, over conversations created in
// [createdFrom, createdTo) that have any messages. Returns 0 when the window
// has no answered conversations.
func (r *PostgresRepo) AvgConversationResponseMinutes(ctx context.Context, createdFrom, createdTo time.Time) (float64, error) {
	var avg *float64
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Conversation{}).
			Select("AVG(EXTRACT(EPOCH FROM (last_message_at - created_at)) / 60.0)").
			Where("created_at >= ? AND created_at < ?", createdFrom, createdTo).
			Where("last_message_at IS NOT NULL").
			Scan(&avg)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "AvgConversationResponseMinutes", operation)
	observer.ObserveDbOperationDuration("avg_response_minutes", "conversation", time.Since(startTime), findErr)
	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to average conversation response minutes after retries", zap.Error(findErr))
		return 0, findErr
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}
