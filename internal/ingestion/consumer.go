package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	apperrors "gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/config"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/jetstream"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/observer"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/reqctx"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
)

// AckNakAction represents the decision made after processing a message.
type AckNakAction int

const (
	ActionAck      AckNakAction = iota // processed successfully, ACK
	ActionNakDelay                     // retryable error, NAK with backoff delay
	ActionTerm                         // fatal error or retries exhausted, TERM
)

// InboundService consumes decoded inbound message payloads.
type InboundService interface {
	RecordInbound(ctx context.Context, payload model.InboundMessagePayload) error
}

// Consumer is the JetStream push consumer for inbound messaging events.
// It decodes each event and hands it to the inbound service; the service's
// error classification drives the ack decision.
type Consumer struct {
	client  jetstream.ClientInterface
	service InboundService
	cfg     config.ConsumerNatsConfig
	ctx     context.Context
	cancel  context.CancelFunc
	sub     *nats.Subscription
}

// NewConsumer creates a consumer for the configured inbound stream.
func NewConsumer(client jetstream.ClientInterface, service InboundService, cfg config.ConsumerNatsConfig) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = logger.WithLogger(ctx, logger.Log.Named("ingestion"))
	return &Consumer{
		client:  client,
		service: service,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start ensures the stream and durable consumer exist, then subscribes.
func (c *Consumer) Start() error {
	streamConfig := &nats.StreamConfig{
		Name:      c.cfg.Stream,
		Subjects:  c.cfg.SubjectList,
		Retention: nats.LimitsPolicy,
		MaxAge:    time.Duration(c.cfg.MaxAge) * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if err := c.client.SetupStream(c.ctx, streamConfig); err != nil {
		return fmt.Errorf("failed to setup inbound stream: %w", err)
	}

	consumerConfig := &nats.ConsumerConfig{
		Durable:        c.cfg.Consumer,
		DeliverSubject: fmt.Sprintf("deliver.%s", c.cfg.Consumer),
		DeliverGroup:   c.cfg.QueueGroup,
		AckPolicy:      nats.AckExplicitPolicy,
		MaxDeliver:     c.cfg.MaxDeliver,
		FilterSubjects: c.cfg.SubjectList,
	}
	if err := c.client.SetupConsumer(c.ctx, c.cfg.Stream, consumerConfig); err != nil {
		return fmt.Errorf("failed to setup inbound consumer: %w", err)
	}

	subject := ""
	if len(c.cfg.SubjectList) > 0 {
		subject = c.cfg.SubjectList[0]
	}
	sub, err := c.client.SubscribePush(subject, c.cfg.Consumer, c.cfg.QueueGroup, c.cfg.Stream, c.HandleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to inbound subject: %w", err)
	}
	c.sub = sub

	logger.FromContext(c.ctx).Info("Inbound consumer started",
		zap.String("stream", c.cfg.Stream),
		zap.String("consumer", c.cfg.Consumer),
		zap.Strings("subjects", c.cfg.SubjectList),
	)
	return nil
}

// HandleMessage processes a single delivery. Exported for tests.
func (c *Consumer) HandleMessage(msg *nats.Msg) {
	start := time.Now()
	observer.IncInboundReceived(msg.Subject)

	requestID := msg.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	msgCtx := reqctx.WithRequestID(c.ctx, requestID)
	log := logger.FromContext(msgCtx).With(
		zap.String("subject", msg.Subject),
		zap.String("request_id", requestID),
	)
	msgCtx = logger.WithLogger(msgCtx, log)

	defer func() {
		observer.ObserveInboundProcessingDuration(msg.Subject, time.Since(start))
		if r := recover(); r != nil {
			log.Error("[panic] Recovered from panic in inbound handler",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			observer.IncInboundFailed(msg.Subject)
			if nakErr := msg.Nak(); nakErr != nil {
				log.Error("Failed to NAK message after panic", zap.Error(nakErr))
			}
		}
	}()

	var payload model.InboundMessagePayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Error("Failed to decode inbound payload, terminating delivery", zap.Error(err))
		observer.IncInboundFailed(msg.Subject)
		if termErr := msg.Term(); termErr != nil {
			log.Error("Failed to TERM malformed message", zap.Error(termErr))
		}
		return
	}

	processingErr := c.service.RecordInbound(msgCtx, payload)

	metadata, metaErr := msg.Metadata()
	var numDelivered uint64 = 1
	if metaErr == nil {
		numDelivered = metadata.NumDelivered
	}

	action, delay := determineAckNakAction(processingErr, numDelivered, c.cfg.MaxDeliver, c.cfg.NakBaseDelay, c.cfg.NakMaxDelay)
	switch action {
	case ActionAck:
		if err := msg.Ack(); err != nil {
			log.Error("Failed to ACK message", zap.Error(err))
			return
		}
		observer.IncInboundProcessed(msg.Subject)
	case ActionNakDelay:
		log.Warn("Retryable failure, NAKing with delay",
			zap.Uint64("num_delivered", numDelivered),
			zap.Duration("delay", delay),
			zap.Error(processingErr),
		)
		observer.IncInboundFailed(msg.Subject)
		if err := msg.NakWithDelay(delay); err != nil {
			log.Error("Failed to NAK message", zap.Error(err))
		}
	case ActionTerm:
		log.Error("Terminal failure, TERMing delivery",
			zap.Uint64("num_delivered", numDelivered),
			zap.Error(processingErr),
		)
		observer.IncInboundFailed(msg.Subject)
		if err := msg.Term(); err != nil {
			log.Error("Failed to TERM message", zap.Error(err))
		}
	}
}

// Stop drains the subscription and cancels the consumer context.
func (c *Consumer) Stop() {
	log := logger.FromContext(c.ctx)
	if c.sub != nil {
		if err := c.sub.Drain(); err != nil {
			log.Warn("Failed to drain inbound subscription", zap.Error(err))
		}
	}
	c.cancel()
	log.Info("Inbound consumer stopped")
}

// determineAckNakAction decides the fate of a delivery from the processing
// result. Fatal errors and exhausted retries terminate the delivery;
// retryable errors NAK with exponential backoff.
func determineAckNakAction(
	processingErr error,
	numDelivered uint64,
	maxDeliver int,
	nakBaseDelay time.Duration,
	nakMaxDelay time.Duration,
) (action AckNakAction, delay time.Duration) {
	if processingErr == nil {
		return ActionAck, 0
	}

	if !apperrors.IsRetryable(processingErr) || numDelivered >= uint64(maxDeliver) {
		return ActionTerm, 0
	}

	attempt := numDelivered
	delay = nakBaseDelay
	if attempt > 1 {
		delay = nakBaseDelay * (1 << (attempt - 1))
	}
	if delay > nakMaxDelay {
		delay = nakMaxDelay
	}
	return ActionNakDelay, delay
}
