package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	storagemock "gitlab.com/aurelia/api/luxe-crm-service/internal/storage/mock"
)

type messageFixture struct {
	service          *MessageService
	messageRepo      *storagemock.MessageRepoMock
	clientRepo       *storagemock.ClientRepoMock
	conversationRepo *storagemock.ConversationRepoMock
	bus              *recordingPublisher
	worker           *MockSuggestionWorker
}

func newMessageFixture() *messageFixture {
	f := &messageFixture{
		messageRepo:      new(storagemock.MessageRepoMock),
		clientRepo:       new(storagemock.ClientRepoMock),
		conversationRepo: new(storagemock.ConversationRepoMock),
		bus:              &recordingPublisher{},
		worker:           new(MockSuggestionWorker),
	}
	f.service = NewMessageService(
		f.messageRepo,
		f.clientRepo,
		f.conversationRepo,
		f.bus,
		f.worker,
	)
	return f
}

func inboundPayload() model.InboundMessagePayload {
	return model.InboundMessagePayload{
		MessageID:        "wamid.1",
		FromPhone:        "+628111111111",
		PushName:         "Dewi",
		Body:             "Is the Daytona still available?",
		Channel:          "whatsapp",
		MessageTimestamp: time.Now().UnixMilli(),
	}
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", apperrors.ErrNotFound, what)
}

func TestRecordInbound_CreatesClientAndConversation(t *testing.T) {
	f := newMessageFixture()
	payload := inboundPayload()

	f.messageRepo.On("FindByMessageID", mock.Anything, payload.MessageID).Return(nil, notFound("message")).Once()
	f.clientRepo.On("FindByPhone", mock.Anything, payload.FromPhone).Return(nil, notFound("client")).Once()

	var createdClient model.Client
	f.clientRepo.On("Save", mock.Anything, mock.AnythingOfType("model.Client")).
		Run(func(args mock.Arguments) {
			createdClient = args.Get(1).(model.Client)
		}).
		Return(nil).Once()

	f.conversationRepo.On("FindActiveByClientID", mock.Anything, mock.AnythingOfType("string")).
		Return(nil, notFound("conversation")).Once()

	var createdConversation model.Conversation
	f.conversationRepo.On("Save", mock.Anything, mock.AnythingOfType("model.Conversation")).
		Run(func(args mock.Arguments) {
			createdConversation = args.Get(1).(model.Conversation)
		}).
		Return(nil).Once()

	f.conversationRepo.On("AppendMessage", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("model.Message")).
		Run(func(args mock.Arguments) {
			msg := args.Get(2).(model.Message)
			assert.Equal(t, payload.MessageID, msg.MessageID)
			assert.Equal(t, model.DirectionIncoming, msg.Direction)
			assert.Equal(t, payload.Body, msg.Body)
		}).
		Return(model.NewConversation(&model.Conversation{Status: model.ConversationStatusActive, MessageCount: 1}), nil).Once()

	f.worker.On("SubmitTask", mock.AnythingOfType("usecase.SuggestionTaskData")).Return(nil).Once()

	err := f.service.RecordInbound(context.Background(), payload)

	require.NoError(t, err)
	assert.Equal(t, "Dewi", createdClient.Name)
	assert.Equal(t, payload.FromPhone, createdClient.PhoneNumber)
	assert.Equal(t, model.ClientStatusProspect, createdClient.Status)
	assert.Equal(t, "whatsapp", createdClient.Origin)
	assert.Equal(t, createdClient.ID, createdConversation.ClientID)
	assert.Equal(t, model.ConversationStatusActive, createdConversation.Status)
	assert.Equal(t, 1, f.bus.CountTopic("new_message"))

	f.messageRepo.AssertExpectations(t)
	f.clientRepo.AssertExpectations(t)
	f.conversationRepo.AssertExpectations(t)
	f.worker.AssertExpectations(t)
}

func TestRecordInbound_ReusesExistingClientAndConversation(t *testing.T) {
	f := newMessageFixture()
	payload := inboundPayload()

	client := model.NewClient(&model.Client{PhoneNumber: payload.FromPhone})
	conversation := model.NewConversation(&model.Conversation{ClientID: client.ID, Status: model.ConversationStatusActive})

	f.messageRepo.On("FindByMessageID", mock.Anything, payload.MessageID).Return(nil, notFound("message")).Once()
	f.clientRepo.On("FindByPhone", mock.Anything, payload.FromPhone).Return(client, nil).Once()
	f.conversationRepo.On("FindActiveByClientID", mock.Anything, client.ID).Return(conversation, nil).Once()
	f.conversationRepo.On("AppendMessage", mock.Anything, conversation.ID, mock.AnythingOfType("model.Message")).
		Return(conversation, nil).Once()
	f.worker.On("SubmitTask", mock.AnythingOfType("usecase.SuggestionTaskData")).Return(nil).Once()

	err := f.service.RecordInbound(context.Background(), payload)

	require.NoError(t, err)
	f.clientRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.conversationRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRecordInbound_DuplicateMessageIsAcked(t *testing.T) {
	f := newMessageFixture()
	payload := inboundPayload()

	f.messageRepo.On("FindByMessageID", mock.Anything, payload.MessageID).
		Return(model.NewMessage(&model.Message{MessageID: payload.MessageID}), nil).Once()

	err := f.service.RecordInbound(context.Background(), payload)

	require.NoError(t, err)
	f.clientRepo.AssertNotCalled(t, "FindByPhone", mock.Anything, mock.Anything)
	f.conversationRepo.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 0, f.bus.CountTopic("new_message"))
}

func TestRecordInbound_InvalidPayloadIsFatal(t *testing.T) {
	f := newMessageFixture()
	payload := inboundPayload()
	payload.MessageID = ""

	err := f.service.RecordInbound(context.Background(), payload)

	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	f.messageRepo.AssertNotCalled(t, "FindByMessageID", mock.Anything, mock.Anything)
}

func TestRecordInbound_DatabaseErrorIsRetryable(t *testing.T) {
	f := newMessageFixture()
	payload := inboundPayload()

	client := model.NewClient(&model.Client{PhoneNumber: payload.FromPhone})
	conversation := model.NewConversation(&model.Conversation{ClientID: client.ID, Status: model.ConversationStatusActive})

	f.messageRepo.On("FindByMessageID", mock.Anything, payload.MessageID).Return(nil, notFound("message")).Once()
	f.clientRepo.On("FindByPhone", mock.Anything, payload.FromPhone).Return(client, nil).Once()
	f.conversationRepo.On("FindActiveByClientID", mock.Anything, client.ID).Return(conversation, nil).Once()
	f.conversationRepo.On("AppendMessage", mock.Anything, conversation.ID, mock.AnythingOfType("model.Message")).
		Return(nil, fmt.Errorf("%w: connection reset", apperrors.ErrDatabase)).Once()

	err := f.service.RecordInbound(context.Background(), payload)

	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
	f.worker.AssertNotCalled(t, "SubmitTask", mock.Anything)
}

func TestRecordInbound_ClientCreateRaceFallsBackToLookup(t *testing.T) {
	f := newMessageFixture()
	payload := inboundPayload()

	winner := model.NewClient(&model.Client{PhoneNumber: payload.FromPhone})
	conversation := model.NewConversation(&model.Conversation{ClientID: winner.ID, Status: model.ConversationStatusActive})

	f.messageRepo.On("FindByMessageID", mock.Anything, payload.MessageID).Return(nil, notFound("message")).Once()
	f.clientRepo.On("FindByPhone", mock.Anything, payload.FromPhone).Return(nil, notFound("client")).Once()
	f.clientRepo.On("Save", mock.Anything, mock.AnythingOfType("model.Client")).
		Return(fmt.Errorf("%w: phone_number", apperrors.ErrDuplicate)).Once()
	f.clientRepo.On("FindByPhone", mock.Anything, payload.FromPhone).Return(winner, nil).Once()
	f.conversationRepo.On("FindActiveByClientID", mock.Anything, winner.ID).Return(conversation, nil).Once()
	f.conversationRepo.On("AppendMessage", mock.Anything, conversation.ID, mock.AnythingOfType("model.Message")).
		Return(conversation, nil).Once()
	f.worker.On("SubmitTask", mock.AnythingOfType("usecase.SuggestionTaskData")).Return(nil).Once()

	err := f.service.RecordInbound(context.Background(), payload)

	require.NoError(t, err)
	f.clientRepo.AssertExpectations(t)
}

func TestRecordInbound_SuggestionSubmitFailureDoesNotFail(t *testing.T) {
	f := newMessageFixture()
	payload := inboundPayload()

	client := model.NewClient(&model.Client{PhoneNumber: payload.FromPhone})
	conversation := model.NewConversation(&model.Conversation{ClientID: client.ID, Status: model.ConversationStatusActive})

	f.messageRepo.On("FindByMessageID", mock.Anything, payload.MessageID).Return(nil, notFound("message")).Once()
	f.clientRepo.On("FindByPhone", mock.Anything, payload.FromPhone).Return(client, nil).Once()
	f.conversationRepo.On("FindActiveByClientID", mock.Anything, client.ID).Return(conversation, nil).Once()
	f.conversationRepo.On("AppendMessage", mock.Anything, conversation.ID, mock.AnythingOfType("model.Message")).
		Return(conversation, nil).Once()
	f.worker.On("SubmitTask", mock.AnythingOfType("usecase.SuggestionTaskData")).
		Return(errors.New("pool overload")).Once()

	err := f.service.RecordInbound(context.Background(), payload)

	require.NoError(t, err)
	assert.Equal(t, 1, f.bus.CountTopic("new_message"))
}
