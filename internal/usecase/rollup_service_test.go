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

type rollupFixture struct {
	service          *RollupService
	messageRepo      *storagemock.MessageRepoMock
	clientRepo       *storagemock.ClientRepoMock
	conversationRepo *storagemock.ConversationRepoMock
	activityRepo     *storagemock.ActivityLogRepoMock
	followUpRepo     *storagemock.FollowUpRepoMock
	metricsRepo      *storagemock.DailyMetricsRepoMock
}

func newRollupFixture() *rollupFixture {
	f := &rollupFixture{
		messageRepo:      new(storagemock.MessageRepoMock),
		clientRepo:       new(storagemock.ClientRepoMock),
		conversationRepo: new(storagemock.ConversationRepoMock),
		activityRepo:     new(storagemock.ActivityLogRepoMock),
		followUpRepo:     new(storagemock.FollowUpRepoMock),
		metricsRepo:      new(storagemock.DailyMetricsRepoMock),
	}
	f.service = NewRollupService(
		f.messageRepo,
		f.clientRepo,
		f.conversationRepo,
		f.activityRepo,
		f.followUpRepo,
		f.metricsRepo,
	)
	return f
}

func TestRollup_ComputesAndUpsertsDay(t *testing.T) {
	f := newRollupFixture()

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	dayEnd := day.Add(24 * time.Hour)
	// A mid-day target must normalize to the day boundary.
	target := day.Add(14*time.Hour + 37*time.Minute)

	f.messageRepo.On("CountBetween", mock.Anything, day, dayEnd).Return(int64(120), nil).Once()
	f.clientRepo.On("CountCreatedBetween", mock.Anything, day, dayEnd).Return(int64(4), nil).Once()
	f.clientRepo.On("CountUpdatedBetween", mock.Anything, day, dayEnd).Return(int64(11), nil).Once()
	f.activityRepo.On("CountConversionsBetween", mock.Anything, day, dayEnd).Return(int64(2), nil).Once()
	f.conversationRepo.On("CountSLABreached", mock.Anything, day, dayEnd, dayEnd.Add(-24*time.Hour)).Return(int64(1), nil).Once()
	f.followUpRepo.On("CountPending", mock.Anything, dayEnd).Return(int64(7), nil).Once()
	f.conversationRepo.On("CountByStatus", mock.Anything, model.ConversationStatusActive, dayEnd).Return(int64(15), nil).Once()
	f.conversationRepo.On("AvgResponseMinutes", mock.Anything, day, dayEnd).Return(12.5, nil).Once()

	var upserted model.DailyMetrics
	f.metricsRepo.On("Upsert", mock.Anything, mock.AnythingOfType("model.DailyMetrics")).
		Run(func(args mock.Arguments) {
			upserted = args.Get(1).(model.DailyMetrics)
		}).
		Return(nil).Once()

	metrics, err := f.service.Rollup(context.Background(), target)

	require.NoError(t, err)
	require.NotNil(t, metrics)
	assert.Equal(t, day, metrics.Day)
	assert.Equal(t, int64(120), metrics.Messages)
	assert.Equal(t, int64(4), metrics.NewClients)
	assert.Equal(t, int64(11), metrics.UpdatedClients)
	assert.Equal(t, int64(2), metrics.Conversions)
	assert.Equal(t, int64(1), metrics.SLABreaches)
	assert.Equal(t, int64(7), metrics.PendingFollowUps)
	assert.Equal(t, int64(15), metrics.ActiveConversations)
	assert.Equal(t, 12.5, metrics.AvgResponseMin)
	assert.Equal(t, *metrics, upserted)

	f.messageRepo.AssertExpectations(t)
	f.metricsRepo.AssertExpectations(t)
}

func TestRollup_AbortsOnFirstFailedAggregate(t *testing.T) {
	f := newRollupFixture()

	dbErr := fmt.Errorf("%w: connection reset", apperrors.ErrDatabase)
	f.messageRepo.On("CountBetween", mock.Anything, mock.Anything, mock.Anything).
		Return(int64(0), dbErr).Once()

	metrics, err := f.service.Rollup(context.Background(), time.Now().UTC())

	require.Error(t, err)
	assert.Nil(t, metrics)
	assert.True(t, apperrors.IsRetryable(err))
	assert.True(t, errors.Is(err, apperrors.ErrDatabase))
	f.metricsRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.clientRepo.AssertNotCalled(t, "CountCreatedBetween", mock.Anything, mock.Anything, mock.Anything)
}

func TestRollup_UpsertFailureIsLoud(t *testing.T) {
	f := newRollupFixture()

	f.messageRepo.On("CountBetween", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil).Once()
	f.clientRepo.On("CountCreatedBetween", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil).Once()
	f.clientRepo.On("CountUpdatedBetween", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil).Once()
	f.activityRepo.On("CountConversionsBetween", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil).Once()
	f.conversationRepo.On("CountSLABreached", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil).Once()
	f.followUpRepo.On("CountPending", mock.Anything, mock.Anything).Return(int64(0), nil).Once()
	f.conversationRepo.On("CountByStatus", mock.Anything, model.ConversationStatusActive, mock.Anything).Return(int64(0), nil).Once()
	f.conversationRepo.On("AvgResponseMinutes", mock.Anything, mock.Anything, mock.Anything).Return(0.0, nil).Once()

	f.metricsRepo.On("Upsert", mock.Anything, mock.AnythingOfType("model.DailyMetrics")).
		Return(fmt.Errorf("%w: down", apperrors.ErrDatabase)).Once()

	metrics, err := f.service.Rollup(context.Background(), time.Now().UTC())

	require.Error(t, err)
	assert.Nil(t, metrics)
	assert.True(t, apperrors.IsRetryable(err))
}
