package ingestion

import (
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/config"
	jsmock "gitlab.com/aurelia/api/luxe-crm-service/internal/jetstream/mock"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
)

func init() {
	logger.Log = zap.NewNop().Named("test")
}

func consumerTestConfig() config.ConsumerNatsConfig {
	return config.ConsumerNatsConfig{
		MaxAge:       7,
		Stream:       "crm_inbound",
		Consumer:     "crm_inbound_consumer",
		QueueGroup:   "crm_inbound_group",
		SubjectList:  []string{"v1.messages.inbound.>"},
		MaxDeliver:   5,
		NakBaseDelay: 2 * time.Second,
		NakMaxDelay:  30 * time.Second,
	}
}

func TestConsumerStart_SetsUpStreamAndConsumer(t *testing.T) {
	client := new(jsmock.ClientMock)
	cfg := consumerTestConfig()

	var streamConfig *nats.StreamConfig
	client.On("SetupStream", mock.Anything, mock.AnythingOfType("*nats.StreamConfig")).
		Run(func(args mock.Arguments) {
			streamConfig = args.Get(1).(*nats.StreamConfig)
		}).
		Return(nil).Once()

	var consumerConfig *nats.ConsumerConfig
	client.On("SetupConsumer", mock.Anything, cfg.Stream, mock.AnythingOfType("*nats.ConsumerConfig")).
		Run(func(args mock.Arguments) {
			consumerConfig = args.Get(2).(*nats.ConsumerConfig)
		}).
		Return(nil).Once()

	client.On("SubscribePush", cfg.SubjectList[0], cfg.Consumer, cfg.QueueGroup, cfg.Stream, mock.AnythingOfType("nats.MsgHandler")).
		Return(jsmock.MockSubscription(), nil).Once()

	consumer := NewConsumer(client, nil, cfg)
	err := consumer.Start()

	require.NoError(t, err)
	require.NotNil(t, streamConfig)
	assert.Equal(t, cfg.Stream, streamConfig.Name)
	assert.Equal(t, cfg.SubjectList, streamConfig.Subjects)
	assert.Equal(t, 7*24*time.Hour, streamConfig.MaxAge)
	require.NotNil(t, consumerConfig)
	assert.Equal(t, cfg.Consumer, consumerConfig.Durable)
	assert.Equal(t, nats.AckExplicitPolicy, consumerConfig.AckPolicy)
	assert.Equal(t, cfg.MaxDeliver, consumerConfig.MaxDeliver)
	client.AssertExpectations(t)
}

func TestConsumerStart_StreamSetupError(t *testing.T) {
	client := new(jsmock.ClientMock)
	client.On("SetupStream", mock.Anything, mock.AnythingOfType("*nats.StreamConfig")).
		Return(errors.New("stream boom")).Once()

	consumer := NewConsumer(client, nil, consumerTestConfig())
	err := consumer.Start()

	require.Error(t, err)
	client.AssertNotCalled(t, "SetupConsumer", mock.Anything, mock.Anything, mock.Anything)
}

func TestDetermineAckNakAction(t *testing.T) {
	base := 2 * time.Second
	max := 30 * time.Second

	tests := []struct {
		name          string
		err           error
		numDelivered  uint64
		wantAction    AckNakAction
		wantDelay     time.Duration
	}{
		{"success acks", nil, 1, ActionAck, 0},
		{"fatal terms", apperrors.NewFatal(errors.New("bad payload"), "decode"), 1, ActionTerm, 0},
		{"retryable naks with base delay", apperrors.NewRetryable(errors.New("db down"), "query"), 1, ActionNakDelay, base},
		{"retryable backs off exponentially", apperrors.NewRetryable(errors.New("db down"), "query"), 3, ActionNakDelay, 8 * time.Second},
		{"retryable delay capped", apperrors.NewRetryable(errors.New("db down"), "query"), 4, ActionNakDelay, 16 * time.Second},
		{"retries exhausted terms", apperrors.NewRetryable(errors.New("db down"), "query"), 5, ActionTerm, 0},
		{"unclassified error terms", errors.New("who knows"), 1, ActionTerm, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, delay := determineAckNakAction(tt.err, tt.numDelivered, 5, base, max)
			assert.Equal(t, tt.wantAction, action)
			assert.Equal(t, tt.wantDelay, delay)
		})
	}
}

func TestDetermineAckNakAction_DelayNeverExceedsMax(t *testing.T) {
	err := apperrors.NewRetryable(errors.New("db down"), "query")
	action, delay := determineAckNakAction(err, 9, 20, 2*time.Second, 30*time.Second)
	assert.Equal(t, ActionNakDelay, action)
	assert.Equal(t, 30*time.Second, delay)
}

func TestConsumerStop_WithoutSubscription(t *testing.T) {
	consumer := NewConsumer(new(jsmock.ClientMock), nil, consumerTestConfig())
	assert.NotPanics(t, consumer.Stop)
}
