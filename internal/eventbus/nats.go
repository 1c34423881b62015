package eventbus

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/jetstream"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/observer"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// NATSPublisher publishes events to NATS JetStream subjects of the form
// <prefix>.<topic>, e.g. v1.events.new_message.
type NATSPublisher struct {
	client        jetstream.ClientInterface
	subjectPrefix string
}

// NewNATSPublisher creates a publisher on top of an existing JetStream client.
func NewNATSPublisher(client jetstream.ClientInterface, subjectPrefix string) *NATSPublisher {
	return &NATSPublisher{
		client:        client,
		subjectPrefix: subjectPrefix,
	}
}

var _ Publisher = (*NATSPublisher)(nil)

// Publish marshals the event envelope and publishes it to the topic subject.
func (p *NATSPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	event, err := newEvent(ctx, topic, payload)
	if err != nil {
		observer.IncEventPublished(topic, err)
		return err
	}

	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, topic)
	headers := map[string]string{}
	if event.RequestID != "" {
		headers["X-Request-ID"] = event.RequestID
	}

	if err := p.client.Publish(subject, utils.MustMarshalJSON(event), headers); err != nil {
		observer.IncEventPublished(topic, err)
		logger.FromContext(ctx).Error("Failed to publish event",
			zap.String("topic", topic),
			zap.String("subject", subject),
			zap.Error(err))
		return fmt.Errorf("%w: publish %s: %w", apperrors.ErrEventBus, topic, err)
	}

	observer.IncEventPublished(topic, nil)
	return nil
}

// Close is a no-op; the underlying NATS connection is shared and closed by
// its owner.
func (p *NATSPublisher) Close() error {
	return nil
}
