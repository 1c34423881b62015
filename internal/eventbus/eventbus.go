package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/reqctx"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// Topics carried by the bus. Payloads are topic-specific JSON documents.
const (
	TopicNewMessage     = "new_message"
	TopicActivityUpdate = "activity_update"
	TopicAIResponse     = "ai_response"
)

// Event is the envelope published on every topic.
type Event struct {
	Topic      string          `json:"topic"`
	OccurredAt time.Time       `json:"occurred_at"`
	RequestID  string          `json:"request_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher fans events out to interested consumers. Publishing is
// best-effort from the caller's point of view; a failed publish must never
// roll back the state change that produced the event.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
	Close() error
}

// Handler consumes events delivered by a subscribing bus.
type Handler func(ctx context.Context, event Event)

func newEvent(ctx context.Context, topic string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("%w: failed to marshal %s payload: %w", apperrors.ErrBadRequest, topic, err)
	}

	requestID, _ := reqctx.RequestIDFromContext(ctx)
	return Event{
		Topic:      topic,
		OccurredAt: utils.Now(),
		RequestID:  requestID,
		Payload:    raw,
	}, nil
}
