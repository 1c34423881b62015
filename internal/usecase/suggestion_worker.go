package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/ai"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/config"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/eventbus"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/observer"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/storage"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

const (
	// suggestionHistoryLimit bounds how many recent messages feed the prompt.
	suggestionHistoryLimit = 20
	// suggestionTaskTimeout bounds one completion round trip.
	suggestionTaskTimeout = 30 * time.Second
)

// SuggestionTaskData holds the data for one AI suggestion task.
type SuggestionTaskData struct {
	Ctx            context.Context // context derived for the task, NOT the original request context
	ConversationID string
	ClientID       string
}

// ISuggestionWorker defines the interface for the AI suggestion worker pool.
type ISuggestionWorker interface {
	SubmitTask(taskData SuggestionTaskData) error
	Stop()
}

// SuggestionWorker runs AI reply drafting off the ingestion hot path. Each
// task drafts a reply from recent conversation context, refreshes the
// client's lead score from the completion metadata and broadcasts the
// suggestion. Nothing durable is written except the lead score and an
// activity entry.
type SuggestionWorker struct {
	pool         *ants.PoolWithFunc
	messageRepo  storage.MessageRepo
	clientRepo   storage.ClientRepo
	activityRepo storage.ActivityLogRepo
	completer    ai.Completer
	bus          eventbus.Publisher
	cfg          config.SuggestionWorkerPoolConfig
	baseLogger   *zap.Logger
}

// Ensure SuggestionWorker implements ISuggestionWorker
var _ ISuggestionWorker = (*SuggestionWorker)(nil)

// NewSuggestionWorker creates and initializes a new suggestion worker pool.
func NewSuggestionWorker(
	cfg config.SuggestionWorkerPoolConfig,
	messageRepo storage.MessageRepo,
	clientRepo storage.ClientRepo,
	activityRepo storage.ActivityLogRepo,
	completer ai.Completer,
	bus eventbus.Publisher,
	baseLogger *zap.Logger,
) (*SuggestionWorker, error) {
	worker := &SuggestionWorker{
		messageRepo:  messageRepo,
		clientRepo:   clientRepo,
		activityRepo: activityRepo,
		completer:    completer,
		bus:          bus,
		cfg:          cfg,
		baseLogger:   baseLogger.Named("suggestion_worker"),
	}

	pool, err := ants.NewPoolWithFunc(cfg.PoolSize, func(i interface{}) {
		taskData, ok := i.(SuggestionTaskData)
		if !ok {
			worker.baseLogger.Error("Invalid task data type received", zap.Any("data", i))
			return
		}
		worker.processSuggestionTask(taskData)
	},
		ants.WithExpiryDuration(cfg.ExpiryTime),
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(cfg.QueueSize),
		ants.WithPanicHandler(func(err interface{}) {
			worker.baseLogger.Error("Panic recovered in suggestion worker", zap.Any("panic_error", err), zap.Stack("stack"))
			observer.IncSuggestionTasksProcessed("panic")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create suggestion worker pool: %w", err)
	}
	worker.pool = pool
	worker.baseLogger.Info("Suggestion worker pool initialized",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("queue_size", cfg.QueueSize),
		zap.Duration("expiry_time", cfg.ExpiryTime),
	)
	return worker, nil
}

// SubmitTask submits a new suggestion task to the worker pool.
func (w *SuggestionWorker) SubmitTask(taskData SuggestionTaskData) error {
	start := time.Now()
	observer.IncSuggestionTasksSubmitted()
	observer.SetSuggestionQueueLength(w.pool.Waiting())

	err := w.pool.Invoke(taskData)
	duration := time.Since(start)

	if err != nil {
		w.baseLogger.Warn("Failed to submit suggestion task to pool",
			zap.String("conversation_id", taskData.ConversationID),
			zap.String("client_id", taskData.ClientID),
			zap.Duration("submit_duration", duration),
			zap.Error(err),
		)
		observer.IncSuggestionTasksProcessed("submit_error")
		if errors.Is(err, ants.ErrPoolOverload) {
			return fmt.Errorf("suggestion pool overload: %w", err)
		}
		return fmt.Errorf("failed to invoke suggestion task: %w", err)
	}

	w.baseLogger.Debug("Submitted suggestion task",
		zap.String("conversation_id", taskData.ConversationID),
		zap.Duration("submit_duration", duration),
	)
	return nil
}

// processSuggestionTask contains the logic executed by a worker goroutine.
func (w *SuggestionWorker) processSuggestionTask(taskData SuggestionTaskData) {
	start := time.Now()
	log := logger.FromContextOr(taskData.Ctx, w.baseLogger).With(
		zap.String("conversation_id", taskData.ConversationID),
		zap.String("client_id", taskData.ClientID),
	)

	ctx, cancel := context.WithTimeout(taskData.Ctx, suggestionTaskTimeout)
	defer cancel()

	status := "success"
	defer func() {
		observer.IncSuggestionTasksProcessed(status)
		observer.ObserveSuggestionProcessingDuration(time.Since(start))
	}()

	recent, err := w.messageRepo.FindRecentByConversation(ctx, taskData.ConversationID, suggestionHistoryLimit)
	if err != nil {
		status = "error"
		log.Error("Failed to load conversation history for suggestion", zap.Error(err))
		return
	}
	if len(recent) == 0 {
		status = "skipped"
		log.Debug("No messages in conversation, skipping suggestion")
		return
	}

	// FindRecentByConversation returns newest first; the prompt wants
	// chronological order.
	history := make([]string, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		history = append(history, fmt.Sprintf("%s: %s", recent[i].Direction, recent[i].Body))
	}

	suggestion, err := w.completer.Complete(ctx, suggestionPrompt, history)
	if err != nil {
		status = "error"
		log.Error("AI completion failed", zap.Error(err))
		return
	}

	if err := w.clientRepo.UpdateLeadScore(ctx, taskData.ClientID, suggestion.LeadScore, suggestion.ConversionProbability); err != nil {
		status = "error"
		log.Error("Failed to update lead score from suggestion", zap.Error(err))
		return
	}

	activity := model.ActivityLog{
		ClientID: taskData.ClientID,
		Action:   model.ActivityLeadScoreUpdated,
		Actor:    "system",
		Payload: utils.MustMarshalJSON(map[string]interface{}{
			"conversationId":        taskData.ConversationID,
			"leadScore":             suggestion.LeadScore,
			"conversionProbability": suggestion.ConversionProbability,
			"sentiment":             suggestion.Sentiment,
		}),
	}
	if err := w.activityRepo.Save(ctx, activity); err != nil {
		// The score is already updated; losing the audit entry is not
		// worth failing the task over.
		log.Warn("Failed to record lead score activity", zap.Error(err))
	}

	if err := w.bus.Publish(ctx, eventbus.TopicAIResponse, map[string]interface{}{
		"conversationId": taskData.ConversationID,
		"clientId":       taskData.ClientID,
		"reply":          suggestion.Reply,
		"leadScore":      suggestion.LeadScore,
		"sentiment":      suggestion.Sentiment,
	}); err != nil {
		log.Warn("Failed to publish AI response event", zap.Error(err))
	}

	log.Info("Processed suggestion task",
		zap.Int("lead_score", suggestion.LeadScore),
		zap.Duration("duration", time.Since(start)),
	)
}

// Stop gracefully shuts down the worker pool, waiting for tasks.
func (w *SuggestionWorker) Stop() {
	w.baseLogger.Info("Stopping suggestion worker pool...")
	w.pool.Release()
	w.baseLogger.Info("Suggestion worker pool stopped")
}

// suggestionPrompt frames the completion request; the conversation history
// rides alongside it.
const suggestionPrompt = "Draft a concise, warm reply to the client's latest message and assess purchase intent."
