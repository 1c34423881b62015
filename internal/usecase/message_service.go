package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/eventbus"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/storage"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/validator"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// MessageService handles inbound message ingestion: dedupe, client and
// conversation upkeep, and fan-out to the event bus and the suggestion
// worker.
type MessageService struct {
	messageRepo      storage.MessageRepo
	clientRepo       storage.ClientRepo
	conversationRepo storage.ConversationRepo
	bus              eventbus.Publisher
	suggestionWorker ISuggestionWorker
}

// NewMessageService creates the inbound message pipeline.
func NewMessageService(
	messageRepo storage.MessageRepo,
	clientRepo storage.ClientRepo,
	conversationRepo storage.ConversationRepo,
	bus eventbus.Publisher,
	suggestionWorker ISuggestionWorker,
) *MessageService {
	return &MessageService{
		messageRepo:      messageRepo,
		clientRepo:       clientRepo,
		conversationRepo: conversationRepo,
		bus:              bus,
		suggestionWorker: suggestionWorker,
	}
}

// RecordInbound processes one inbound message event. Redelivered events are
// detected by message_id and acknowledged without side effects. A fatal
// error means the payload can never succeed; a retryable error means the
// broker should redeliver.
func (s *MessageService) RecordInbound(ctx context.Context, payload model.InboundMessagePayload) error {
	log := logger.FromContext(ctx)
	start := utils.Now()

	if err := validator.Validate(payload); err != nil {
		log.Error("Validation failed for inbound message",
			zap.String("message_id", payload.MessageID),
			zap.String("from_phone", payload.FromPhone),
			zap.Error(err),
		)
		return apperrors.NewFatal(fmt.Errorf("%w: %v", apperrors.ErrValidation, err), "invalid inbound message payload")
	}

	// Dedupe on the provider message id; JetStream redelivers on slow acks.
	existing, err := s.messageRepo.FindByMessageID(ctx, payload.MessageID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return s.classify(ctx, err, "failed to check for duplicate message %s", payload.MessageID)
	}
	if existing != nil {
		log.Debug("Skipping duplicate inbound message",
			zap.String("message_id", payload.MessageID),
		)
		return nil
	}

	client, err := s.findOrCreateClient(ctx, payload)
	if err != nil {
		return err
	}

	conversation, err := s.findOrCreateConversation(ctx, client.ID, payload.Channel)
	if err != nil {
		return err
	}

	var metadata []byte
	if payload.Metadata != nil {
		metadata = utils.MustMarshalJSON(payload.Metadata)
	}
	message := model.Message{
		MessageID:        payload.MessageID,
		ConversationID:   conversation.ID,
		ClientID:         client.ID,
		Direction:        model.DirectionIncoming,
		Body:             payload.Body,
		MessageTimestamp: utils.UnixMilliToTime(payload.MessageTimestamp),
		Metadata:         metadata,
	}

	conversation, err = s.conversationRepo.AppendMessage(ctx, conversation.ID, message)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			// Lost a race with a concurrent redelivery; the message is stored.
			log.Debug("Inbound message already appended",
				zap.String("message_id", payload.MessageID),
			)
			return nil
		}
		return s.classify(ctx, err, "failed to append message %s", payload.MessageID)
	}

	if err := s.bus.Publish(ctx, eventbus.TopicNewMessage, map[string]interface{}{
		"messageId":      payload.MessageID,
		"conversationId": conversation.ID,
		"clientId":       client.ID,
		"body":           payload.Body,
		"timestamp":      message.MessageTimestamp,
	}); err != nil {
		log.Warn("Failed to publish new message event",
			zap.String("message_id", payload.MessageID),
			zap.Error(err),
		)
	}

	if s.suggestionWorker != nil {
		task := SuggestionTaskData{
			Ctx:            context.WithoutCancel(ctx),
			ConversationID: conversation.ID,
			ClientID:       client.ID,
		}
		if err := s.suggestionWorker.SubmitTask(task); err != nil {
			log.Warn("Failed to submit suggestion task",
				zap.String("conversation_id", conversation.ID),
				zap.Error(err),
			)
		}
	}

	log.Info("Recorded inbound message",
		zap.String("message_id", payload.MessageID),
		zap.String("conversation_id", conversation.ID),
		zap.String("client_id", client.ID),
		zap.Int("message_count", conversation.MessageCount),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// findOrCreateClient resolves the sender to a client row, creating a
// prospect on first contact. A duplicate on create means another consumer
// won the race, so the lookup is retried.
func (s *MessageService) findOrCreateClient(ctx context.Context, payload model.InboundMessagePayload) (*model.Client, error) {
	client, err := s.clientRepo.FindByPhone(ctx, payload.FromPhone)
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, s.classify(ctx, err, "failed to look up client by phone")
	}

	name := payload.PushName
	if name == "" {
		name = payload.FromPhone
	}
	now := utils.Now()
	created := model.Client{
		ID:          uuid.NewString(),
		Name:        name,
		PhoneNumber: payload.FromPhone,
		Status:      model.ClientStatusProspect,
		Origin:      payload.Channel,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.clientRepo.Save(ctx, created); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return s.clientRepo.FindByPhone(ctx, payload.FromPhone)
		}
		return nil, s.classify(ctx, err, "failed to create client for phone")
	}

	logger.FromContext(ctx).Info("Created client from inbound message",
		zap.String("client_id", created.ID),
		zap.String("origin", created.Origin),
	)
	return &created, nil
}

// findOrCreateConversation returns the client's active conversation,
// opening one when none exists.
func (s *MessageService) findOrCreateConversation(ctx context.Context, clientID, channel string) (*model.Conversation, error) {
	conversation, err := s.conversationRepo.FindActiveByClientID(ctx, clientID)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, s.classify(ctx, err, "failed to look up active conversation for client %s", clientID)
	}

	if channel == "" {
		channel = "whatsapp"
	}
	now := utils.Now()
	created := model.Conversation{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		Status:    model.ConversationStatusActive,
		Channel:   channel,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.conversationRepo.Save(ctx, created); err != nil {
		return nil, s.classify(ctx, err, "failed to open conversation for client %s", clientID)
	}

	logger.FromContext(ctx).Info("Opened conversation",
		zap.String("conversation_id", created.ID),
		zap.String("client_id", clientID),
	)
	return &created, nil
}

func (s *MessageService) classify(ctx context.Context, err error, message string, args ...interface{}) error {
	log := logger.FromContext(ctx)
	if errors.Is(err, apperrors.ErrDatabase) || errors.Is(err, apperrors.ErrTimeout) || errors.Is(err, apperrors.ErrConflict) {
		log.Warn("Potentially retryable error during inbound processing", zap.Error(err))
		return apperrors.NewRetryable(err, message, args...)
	}
	log.Error("Fatal error during inbound processing", zap.Error(err))
	return apperrors.NewFatal(err, message, args...)
}
