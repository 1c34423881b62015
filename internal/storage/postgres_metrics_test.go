package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// --- Daily Metrics Repository Tests ---

func TestPostgresRepo_UpsertDailyMetrics_InsertsOrOverwrites(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	day := utils.StartOfDayUTC(utils.Now())
	metrics := model.DailyMetrics{
		Day:                 day,
		Messages:            120,
		NewClients:          4,
		UpdatedClients:      9,
		Conversions:         2,
		SLABreaches:         1,
		PendingFollowUps:    17,
		ActiveConversations: 33,
		AvgResponseMin:      8.4,
	}

	mock.ExpectQuery(`INSERT INTO "daily_metrics" (.+) ON CONFLICT \("day"\) DO UPDATE SET`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	err := repo.UpsertDailyMetrics(ctx, metrics)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_FindDailyMetricsByDay_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	day := utils.StartOfDayUTC(utils.Now())
	rows := sqlmock.NewRows([]string{
		"id", "day", "messages", "new_clients", "updated_clients", "conversions",
		"sla_breaches", "pending_followups", "active_conversations",
		"avg_response_min", "created_at", "updated_at",
	}).AddRow(int64(1), day, int64(120), int64(4), int64(9), int64(2),
		int64(1), int64(17), int64(33), 8.4, time.Now(), time.Now())

	mock.ExpectQuery(`SELECT (.+) FROM "daily_metrics" WHERE day =`).
		WillReturnRows(rows)

	found, err := repo.FindDailyMetricsByDay(ctx, day)

	require.NoError(t, err)
	assert.Equal(t, int64(120), found.Messages)
	assert.Equal(t, int64(17), found.PendingFollowUps)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_FindDailyMetricsByDay_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT (.+) FROM "daily_metrics" WHERE day =`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	found, err := repo.FindDailyMetricsByDay(ctx, utils.StartOfDayUTC(utils.Now()))

	assert.Nil(t, found)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
