package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/config"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/storage"
	storagemock "gitlab.com/aurelia/api/luxe-crm-service/internal/storage/mock"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
)

func init() {
	// Initialize logger for tests
	logger.Log = zap.NewNop().Named("test")
}

// recordingPublisher captures published events synchronously for asserts.
type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Topic   string
	Payload interface{}
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Topic: topic, Payload: payload})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) CountTopic(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Topic == topic {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) LastPayload(topic string) interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Topic == topic {
			return p.events[i].Payload
		}
	}
	return nil
}

func remindersTestConfig() config.RemindersConfig {
	return config.RemindersConfig{
		LookaheadMinutes: 5,
		LookbackMinutes:  5,
		StaleAfterHours:  168,
	}
}

func newFollowUpFixture() (*FollowUpService, *storagemock.FollowUpRepoMock, *storagemock.ClientRepoMock, *recordingPublisher) {
	followUpRepo := new(storagemock.FollowUpRepoMock)
	clientRepo := new(storagemock.ClientRepoMock)
	bus := &recordingPublisher{}
	service := NewFollowUpService(followUpRepo, clientRepo, bus, remindersTestConfig())
	return service, followUpRepo, clientRepo, bus
}

// --- Create Tests --- //

func TestCreateFollowUp_Success(t *testing.T) {
	service, followUpRepo, clientRepo, bus := newFollowUpFixture()

	client := model.NewClient()
	clientRepo.On("FindByID", mock.Anything, client.ID).Return(client, nil).Once()

	var stored model.FollowUp
	followUpRepo.On("Create", mock.Anything, mock.AnythingOfType("model.FollowUp")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(model.FollowUp)
		}).
		Return(nil).Once()

	payload := model.FollowUp{
		ClientID:     client.ID,
		Title:        "Send catalogue",
		ScheduledFor: time.Now().Add(3 * time.Hour),
	}
	created, err := service.Create(context.Background(), payload)

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.ReminderStatePending, created.ReminderState)
	assert.Equal(t, model.FollowUpTypeReminder, created.Type)
	assert.False(t, created.Completed)
	assert.Nil(t, created.CompletedAt)
	assert.Equal(t, created.ID, stored.ID)
	assert.Equal(t, 1, bus.CountTopic("activity_update"))

	followUpRepo.AssertExpectations(t)
	clientRepo.AssertExpectations(t)
}

func TestCreateFollowUp_ValidationError(t *testing.T) {
	service, followUpRepo, clientRepo, _ := newFollowUpFixture()

	payload := model.FollowUp{
		ClientID: "client-1",
		// Title missing
		ScheduledFor: time.Now().Add(time.Hour),
	}
	created, err := service.Create(context.Background(), payload)

	require.Error(t, err)
	assert.Nil(t, created)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.True(t, apperrors.IsFatal(err))
	clientRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	followUpRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateFollowUp_UnknownClient(t *testing.T) {
	service, followUpRepo, clientRepo, _ := newFollowUpFixture()

	clientRepo.On("FindByID", mock.Anything, "ghost").
		Return(nil, fmt.Errorf("%w: client ghost", apperrors.ErrNotFound)).Once()

	payload := model.FollowUp{
		ClientID:     "ghost",
		Title:        "Call back",
		ScheduledFor: time.Now().Add(time.Hour),
	}
	created, err := service.Create(context.Background(), payload)

	require.Error(t, err)
	assert.Nil(t, created)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	followUpRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// --- ListDueForNotification Tests --- //

func TestListDueForNotification_WindowAndUrgency(t *testing.T) {
	service, followUpRepo, _, _ := newFollowUpFixture()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	overdue := model.NewFollowUp(&model.FollowUp{ScheduledFor: now.Add(-2 * time.Minute)})
	soon := model.NewFollowUp(&model.FollowUp{ScheduledFor: now.Add(3 * time.Minute)})

	followUpRepo.On("FindDueWithin", mock.Anything, now, now.Add(-5*time.Minute), now.Add(5*time.Minute)).
		Return([]model.FollowUp{*overdue, *soon}, nil).Once()

	due, err := service.ListDueForNotification(context.Background(), now)

	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, model.UrgencyOverdue, due[0].Urgency)
	assert.Equal(t, model.UrgencyDueVerySoon, due[1].Urgency)
	followUpRepo.AssertExpectations(t)
}

func TestListDueForNotification_Empty(t *testing.T) {
	service, followUpRepo, _, _ := newFollowUpFixture()

	followUpRepo.On("FindDueWithin", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]model.FollowUp{}, nil).Once()

	due, err := service.ListDueForNotification(context.Background(), time.Now())

	require.NoError(t, err)
	assert.Empty(t, due)
}

// --- MarkShown Tests --- //

func TestMarkShown_TransitionsPending(t *testing.T) {
	service, followUpRepo, _, _ := newFollowUpFixture()

	base := model.NewFollowUp(&model.FollowUp{ReminderState: model.ReminderStatePending})

	followUpRepo.On("Transition", mock.Anything, base.ID, mock.AnythingOfType("storage.FollowUpMutation")).
		Run(func(args mock.Arguments) {
			mutate := args.Get(2).(storage.FollowUpMutation)
			activity, save, err := mutate(base)
			require.NoError(t, err)
			require.True(t, save)
			assert.Nil(t, activity)
		}).
		Return(base, nil).Once()

	updated, err := service.MarkShown(context.Background(), base.ID)

	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, model.ReminderStateShown, updated.ReminderState)
	followUpRepo.AssertExpectations(t)
}

func TestMarkShown_TerminalStateIsNoOp(t *testing.T) {
	service, followUpRepo, _, _ := newFollowUpFixture()

	base := model.NewFollowUp(&model.FollowUp{ReminderState: model.ReminderStateDismissed})

	followUpRepo.On("Transition", mock.Anything, base.ID, mock.AnythingOfType("storage.FollowUpMutation")).
		Run(func(args mock.Arguments) {
			mutate := args.Get(2).(storage.FollowUpMutation)
			activity, save, err := mutate(base)
			require.NoError(t, err)
			assert.False(t, save)
			assert.Nil(t, activity)
		}).
		Return(base, nil).Once()

	updated, err := service.MarkShown(context.Background(), base.ID)

	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, model.ReminderStateDismissed, updated.ReminderState)
}

// --- Snooze Tests --- //

func TestSnooze_ReschedulesAndLogsActivity(t *testing.T) {
	service, followUpRepo, _, bus := newFollowUpFixture()

	base := model.NewFollowUp(&model.FollowUp{ReminderState: model.ReminderStateShown})
	before := time.Now()

	followUpRepo.On("Transition", mock.Anything, base.ID, mock.AnythingOfType("storage.FollowUpMutation")).
		Run(func(args mock.Arguments) {
			mutate := args.Get(2).(storage.FollowUpMutation)
			activity, save, err := mutate(base)
			require.NoError(t, err)
			require.True(t, save)
			require.NotNil(t, activity)
			assert.Equal(t, model.ActivityReminderSnoozed, activity.Action)
			assert.Equal(t, base.ClientID, activity.ClientID)
		}).
		Return(base, nil).Once()

	updated, err := service.Snooze(context.Background(), base.ID, 30)

	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, model.ReminderStateSnoozed, updated.ReminderState)
	assert.True(t, updated.ScheduledFor.After(before.Add(29*time.Minute)))
	assert.Equal(t, 1, bus.CountTopic("activity_update"))
	followUpRepo.AssertExpectations(t)
}

func TestSnooze_RejectsNonPositiveMinutes(t *testing.T) {
	service, followUpRepo, _, _ := newFollowUpFixture()

	updated, err := service.Snooze(context.Background(), "fu-1", 0)

	require.Error(t, err)
	assert.Nil(t, updated)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	followUpRepo.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything)
}

func TestSnooze_CompletedIsConflict(t *testing.T) {
	service, followUpRepo, _, bus := newFollowUpFixture()

	done := time.Now()
	base := model.NewFollowUp(&model.FollowUp{
		ReminderState: model.ReminderStateCompleted,
		Completed:     true,
		CompletedAt:   &done,
	})
	conflict := fmt.Errorf("%w: follow-up %s is already completed", apperrors.ErrConflict, base.ID)

	followUpRepo.On("Transition", mock.Anything, base.ID, mock.AnythingOfType("storage.FollowUpMutation")).
		Run(func(args mock.Arguments) {
			mutate := args.Get(2).(storage.FollowUpMutation)
			activity, save, err := mutate(base)
			assert.Nil(t, activity)
			assert.False(t, save)
			assert.True(t, errors.Is(err, apperrors.ErrConflict))
		}).
		Return(nil, conflict).Once()

	updated, err := service.Snooze(context.Background(), base.ID, 15)

	require.Error(t, err)
	assert.Nil(t, updated)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, 0, bus.CountTopic("activity_update"))
}

func TestSnooze_NotFound(t *testing.T) {
	service, followUpRepo, _, _ := newFollowUpFixture()

	followUpRepo.On("Transition", mock.Anything, "missing", mock.AnythingOfType("storage.FollowUpMutation")).
		Return(nil, fmt.Errorf("%w: follow_up id missing", apperrors.ErrNotFound)).Once()

	updated, err := service.Snooze(context.Background(), "missing", 10)

	require.Error(t, err)
	assert.Nil(t, updated)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

// --- Dismiss Tests --- //

func TestDismiss_TransitionsAndPublishes(t *testing.T) {
	service, followUpRepo, _, bus := newFollowUpFixture()

	base := model.NewFollowUp(&model.FollowUp{ReminderState: model.ReminderStatePending})

	followUpRepo.On("Transition", mock.Anything, base.ID, mock.AnythingOfType("storage.FollowUpMutation")).
		Run(func(args mock.Arguments) {
			mutate := args.Get(2).(storage.FollowUpMutation)
			activity, save, err := mutate(base)
			require.NoError(t, err)
			require.True(t, save)
			require.NotNil(t, activity)
			assert.Equal(t, model.ActivityReminderDismissed, activity.Action)
		}).
		Return(base, nil).Once()

	updated, err := service.Dismiss(context.Background(), base.ID)

	require.NoError(t, err)
	assert.Equal(t, model.ReminderStateDismissed, updated.ReminderState)
	assert.Equal(t, 1, bus.CountTopic("activity_update"))
}

func TestDismiss_AlreadyDismissedIsNoOp(t *testing.T) {
	service, followUpRepo, _, bus := newFollowUpFixture()

	base := model.NewFollowUp(&model.FollowUp{ReminderState: model.ReminderStateDismissed})

	followUpRepo.On("Transition", mock.Anything, base.ID, mock.AnythingOfType("storage.FollowUpMutation")).
		Run(func(args mock.Arguments) {
			mutate := args.Get(2).(storage.FollowUpMutation)
			activity, save, err := mutate(base)
			assert.Nil(t, activity)
			assert.False(t, save)
			assert.NoError(t, err)
		}).
		Return(base, nil).Once()

	updated, err := service.Dismiss(context.Background(), base.ID)

	require.NoError(t, err)
	assert.Equal(t, model.ReminderStateDismissed, updated.ReminderState)
	assert.Equal(t, 0, bus.CountTopic("activity_update"))
}

// --- Complete Tests --- //

func TestComplete_MarksDone(t *testing.T) {
	service, followUpRepo, _, bus := newFollowUpFixture()

	base := model.NewFollowUp(&model.FollowUp{ReminderState: model.ReminderStateShown})

	followUpRepo.On("Transition", mock.Anything, base.ID, mock.AnythingOfType("storage.FollowUpMutation")).
		Run(func(args mock.Arguments) {
			mutate := args.Get(2).(storage.FollowUpMutation)
			activity, save, err := mutate(base)
			require.NoError(t, err)
			require.True(t, save)
			require.NotNil(t, activity)
			assert.Equal(t, model.ActivityFollowUpCompleted, activity.Action)
		}).
		Return(base, nil).Once()

	updated, err := service.Complete(context.Background(), base.ID)

	require.NoError(t, err)
	assert.True(t, updated.Completed)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, model.ReminderStateCompleted, updated.ReminderState)
	assert.Equal(t, 1, bus.CountTopic("activity_update"))
}

func TestComplete_IdempotentOnRepeat(t *testing.T) {
	service, followUpRepo, _, bus := newFollowUpFixture()

	done := time.Now().Add(-time.Hour)
	base := model.NewFollowUp(&model.FollowUp{
		ReminderState: model.ReminderStateCompleted,
		Completed:     true,
		CompletedAt:   &done,
	})

	followUpRepo.On("Transition", mock.Anything, base.ID, mock.AnythingOfType("storage.FollowUpMutation")).
		Run(func(args mock.Arguments) {
			mutate := args.Get(2).(storage.FollowUpMutation)
			activity, save, err := mutate(base)
			assert.Nil(t, activity)
			assert.False(t, save)
			assert.NoError(t, err)
		}).
		Return(base, nil).Once()

	updated, err := service.Complete(context.Background(), base.ID)

	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, done.Unix(), updated.CompletedAt.Unix())
	assert.Equal(t, 0, bus.CountTopic("activity_update"))
}

// --- AutoClose / CloseStale Tests --- //

func TestAutoClose_RecordsReason(t *testing.T) {
	service, followUpRepo, _, bus := newFollowUpFixture()

	base := model.NewFollowUp(&model.FollowUp{ReminderState: model.ReminderStatePending})

	followUpRepo.On("Transition", mock.Anything, base.ID, mock.AnythingOfType("storage.FollowUpMutation")).
		Run(func(args mock.Arguments) {
			mutate := args.Get(2).(storage.FollowUpMutation)
			activity, save, err := mutate(base)
			require.NoError(t, err)
			require.True(t, save)
			require.NotNil(t, activity)
			assert.Equal(t, model.ActivityFollowUpAutoClosed, activity.Action)
			assert.Equal(t, "system", activity.Actor)
			assert.Contains(t, string(activity.Payload), "stale")
		}).
		Return(base, nil).Once()

	updated, err := service.AutoClose(context.Background(), base.ID, "stale")

	require.NoError(t, err)
	assert.Equal(t, model.ReminderStateAutoClosed, updated.ReminderState)
	assert.Equal(t, 1, bus.CountTopic("activity_update"))
}

func TestCloseStale_SweepsBatch(t *testing.T) {
	service, followUpRepo, _, _ := newFollowUpFixture()

	first := model.NewFollowUp(&model.FollowUp{ReminderState: model.ReminderStatePending})
	second := model.NewFollowUp(&model.FollowUp{ReminderState: model.ReminderStateShown})

	followUpRepo.On("FindStale", mock.Anything, mock.Anything, staleCloseBatchSize).
		Return([]model.FollowUp{*first, *second}, nil).Once()

	for _, fu := range []*model.FollowUp{first, second} {
		fu := fu
		followUpRepo.On("Transition", mock.Anything, fu.ID, mock.AnythingOfType("storage.FollowUpMutation")).
			Run(func(args mock.Arguments) {
				mutate := args.Get(2).(storage.FollowUpMutation)
				_, _, err := mutate(fu)
				require.NoError(t, err)
			}).
			Return(fu, nil).Once()
	}

	closed, err := service.CloseStale(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, closed)
	followUpRepo.AssertExpectations(t)
}

func TestCloseStale_EmptyIsClean(t *testing.T) {
	service, followUpRepo, _, _ := newFollowUpFixture()

	followUpRepo.On("FindStale", mock.Anything, mock.Anything, staleCloseBatchSize).
		Return([]model.FollowUp{}, nil).Once()

	closed, err := service.CloseStale(context.Background())

	require.NoError(t, err)
	assert.Zero(t, closed)
	followUpRepo.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything)
}
