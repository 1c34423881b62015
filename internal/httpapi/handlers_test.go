package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/usecase"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
)

func init() {
	logger.Log = zap.NewNop().Named("test")
}

// --- API mocks --- //

type followUpAPIMock struct{ mock.Mock }

func (m *followUpAPIMock) Create(ctx context.Context, payload model.FollowUp) (*model.FollowUp, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FollowUp), args.Error(1)
}

func (m *followUpAPIMock) ListByClient(ctx context.Context, clientID string, pendingOnly bool) ([]model.FollowUp, error) {
	args := m.Called(ctx, clientID, pendingOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FollowUp), args.Error(1)
}

func (m *followUpAPIMock) ListDueForNotification(ctx context.Context, now time.Time) ([]usecase.DueReminder, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.DueReminder), args.Error(1)
}

func (m *followUpAPIMock) Snooze(ctx context.Context, id string, minutes int) (*model.FollowUp, error) {
	args := m.Called(ctx, id, minutes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FollowUp), args.Error(1)
}

func (m *followUpAPIMock) Dismiss(ctx context.Context, id string) (*model.FollowUp, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FollowUp), args.Error(1)
}

func (m *followUpAPIMock) Complete(ctx context.Context, id string) (*model.FollowUp, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FollowUp), args.Error(1)
}

type dashboardAPIMock struct{ mock.Mock }

func (m *dashboardAPIMock) Stats(ctx context.Context, now time.Time) *usecase.DashboardStats {
	args := m.Called(ctx, now)
	return args.Get(0).(*usecase.DashboardStats)
}

func (m *dashboardAPIMock) Next(ctx context.Context, now time.Time) *usecase.NextActions {
	args := m.Called(ctx, now)
	return args.Get(0).(*usecase.NextActions)
}

type rollupAPIMock struct{ mock.Mock }

func (m *rollupAPIMock) Rollup(ctx context.Context, target time.Time) (*model.DailyMetrics, error) {
	args := m.Called(ctx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailyMetrics), args.Error(1)
}

type clientAPIMock struct{ mock.Mock }

func (m *clientAPIMock) Create(ctx context.Context, payload model.CreateClientPayload) (*model.Client, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

func (m *clientAPIMock) Update(ctx context.Context, id string, payload model.UpdateClientPayload) (*model.Client, error) {
	args := m.Called(ctx, id, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

func (m *clientAPIMock) FindByID(ctx context.Context, id string) (*model.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

func (m *clientAPIMock) ListActivity(ctx context.Context, clientID string, limit, offset int) ([]model.ActivityLog, error) {
	args := m.Called(ctx, clientID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActivityLog), args.Error(1)
}

type apiFixture struct {
	router    http.Handler
	followUps *followUpAPIMock
	dashboard *dashboardAPIMock
	rollup    *rollupAPIMock
	clients   *clientAPIMock
}

func newAPIFixture() *apiFixture {
	f := &apiFixture{
		followUps: new(followUpAPIMock),
		dashboard: new(dashboardAPIMock),
		rollup:    new(rollupAPIMock),
		clients:   new(clientAPIMock),
	}
	server := NewServer(f.followUps, f.dashboard, f.rollup, f.clients, nil)
	f.router = server.Router()
	return f
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// --- Follow-up endpoints --- //

func TestCreateFollowUpEndpoint(t *testing.T) {
	f := newAPIFixture()

	created := model.NewFollowUp(&model.FollowUp{ClientID: "client-1", Title: "Send catalogue"})
	f.followUps.On("Create", mock.Anything, mock.AnythingOfType("model.FollowUp")).
		Return(created, nil).Once()

	rec := doJSON(t, f.router, http.MethodPost, "/api/v1/followups", map[string]interface{}{
		"client_id":     "client-1",
		"title":         "Send catalogue",
		"scheduled_for": time.Now().Add(2 * time.Hour).Format(time.RFC3339),
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	var got model.FollowUp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCreateFollowUpEndpoint_BadJSON(t *testing.T) {
	f := newAPIFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/followups", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.followUps.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateFollowUpEndpoint_ValidationMapsTo400(t *testing.T) {
	f := newAPIFixture()

	f.followUps.On("Create", mock.Anything, mock.AnythingOfType("model.FollowUp")).
		Return(nil, apperrors.NewFatal(fmt.Errorf("%w: title required", apperrors.ErrValidation), "invalid follow-up payload")).Once()

	rec := doJSON(t, f.router, http.MethodPost, "/api/v1/followups", map[string]interface{}{
		"client_id": "client-1",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListFollowUpsEndpoint(t *testing.T) {
	f := newAPIFixture()

	followUps := []model.FollowUp{*model.NewFollowUp(&model.FollowUp{ClientID: "client-1"})}
	f.followUps.On("ListByClient", mock.Anything, "client-1", true).
		Return(followUps, nil).Once()

	rec := doJSON(t, f.router, http.MethodGet, "/api/v1/followups?clientId=client-1&pendingOnly=true", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got []model.FollowUp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, followUps[0].ID, got[0].ID)
}

func TestListFollowUpsEndpoint_NoClientFilter(t *testing.T) {
	f := newAPIFixture()

	followUps := []model.FollowUp{
		*model.NewFollowUp(&model.FollowUp{ClientID: "client-1"}),
		*model.NewFollowUp(&model.FollowUp{ClientID: "client-2"}),
	}
	f.followUps.On("ListByClient", mock.Anything, "", false).
		Return(followUps, nil).Once()

	rec := doJSON(t, f.router, http.MethodGet, "/api/v1/followups", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got []model.FollowUp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestSnoozeEndpoint(t *testing.T) {
	f := newAPIFixture()

	updated := model.NewFollowUp(&model.FollowUp{ID: "fu-1", ReminderState: model.ReminderStateSnoozed})
	f.followUps.On("Snooze", mock.Anything, "fu-1", 30).Return(updated, nil).Once()

	rec := doJSON(t, f.router, http.MethodPut, "/api/v1/followups/fu-1/snooze", map[string]int{"minutes": 30})

	assert.Equal(t, http.StatusOK, rec.Code)
	var got model.FollowUp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.ReminderStateSnoozed, got.ReminderState)
}

func TestSnoozeEndpoint_NotFoundMapsTo404(t *testing.T) {
	f := newAPIFixture()

	f.followUps.On("Snooze", mock.Anything, "missing", 10).
		Return(nil, fmt.Errorf("%w: follow_up id missing", apperrors.ErrNotFound)).Once()

	rec := doJSON(t, f.router, http.MethodPut, "/api/v1/followups/missing/snooze", map[string]int{"minutes": 10})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDismissEndpoint_ConflictMapsTo409(t *testing.T) {
	f := newAPIFixture()

	f.followUps.On("Dismiss", mock.Anything, "fu-1").
		Return(nil, fmt.Errorf("%w: already completed", apperrors.ErrConflict)).Once()

	rec := doJSON(t, f.router, http.MethodPut, "/api/v1/followups/fu-1/dismiss", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDueEndpoint(t *testing.T) {
	f := newAPIFixture()

	due := []usecase.DueReminder{{FollowUp: *model.NewFollowUp(), Urgency: model.UrgencyOverdue}}
	f.followUps.On("ListDueForNotification", mock.Anything, mock.AnythingOfType("time.Time")).
		Return(due, nil).Once()

	rec := doJSON(t, f.router, http.MethodGet, "/api/v1/followups/due", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got []usecase.DueReminder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, model.UrgencyOverdue, got[0].Urgency)
}

// --- Dashboard / rollup endpoints --- //

func TestDashboardStatsEndpoint(t *testing.T) {
	f := newAPIFixture()

	f.dashboard.On("Stats", mock.Anything, mock.AnythingOfType("time.Time")).
		Return(&usecase.DashboardStats{MessagesToday: 10, MessageGrowth: "100", Satisfaction: 3.0}).Once()

	rec := doJSON(t, f.router, http.MethodGet, "/api/v1/dashboard/stats", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got usecase.DashboardStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(10), got.MessagesToday)
	assert.Equal(t, "100", got.MessageGrowth)
}

func TestNextActionsEndpoint(t *testing.T) {
	f := newAPIFixture()

	f.dashboard.On("Next", mock.Anything, mock.AnythingOfType("time.Time")).
		Return(&usecase.NextActions{
			Due:      []usecase.DueReminder{},
			Hot:      []model.Client{*model.NewClient(&model.Client{LeadScore: 90})},
			Dangling: []model.Conversation{},
		}).Once()

	rec := doJSON(t, f.router, http.MethodGet, "/api/v1/dashboard/next-actions", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got usecase.NextActions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Hot, 1)
	assert.Empty(t, got.Due)
}

func TestRollupEndpoint_ExplicitDate(t *testing.T) {
	f := newAPIFixture()

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	metrics := &model.DailyMetrics{Day: day, Messages: 42}
	f.rollup.On("Rollup", mock.Anything, day).Return(metrics, nil).Once()

	rec := doJSON(t, f.router, http.MethodPost, "/api/v1/rollup", map[string]string{"date": "2026-03-09"})

	assert.Equal(t, http.StatusOK, rec.Code)
	var got model.DailyMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(42), got.Messages)
}

func TestRollupEndpoint_InvalidDate(t *testing.T) {
	f := newAPIFixture()

	rec := doJSON(t, f.router, http.MethodPost, "/api/v1/rollup", map[string]string{"date": "03/09/2026"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.rollup.AssertNotCalled(t, "Rollup", mock.Anything, mock.Anything)
}

func TestRollupEndpoint_FailureMapsTo500(t *testing.T) {
	f := newAPIFixture()

	f.rollup.On("Rollup", mock.Anything, mock.AnythingOfType("time.Time")).
		Return(nil, apperrors.NewRetryable(errors.New("db down"), "rollup failed")).Once()

	rec := doJSON(t, f.router, http.MethodPost, "/api/v1/rollup", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
	assert.NotContains(t, rec.Body.String(), "db down")
}

// --- Client endpoints --- //

func TestCreateClientEndpoint_DuplicateMapsTo409(t *testing.T) {
	f := newAPIFixture()

	f.clients.On("Create", mock.Anything, mock.AnythingOfType("model.CreateClientPayload")).
		Return(nil, fmt.Errorf("%w: phone_number", apperrors.ErrDuplicate)).Once()

	rec := doJSON(t, f.router, http.MethodPost, "/api/v1/clients", map[string]string{
		"name":         "Amara",
		"phone_number": "+628122222222",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetClientEndpoint(t *testing.T) {
	f := newAPIFixture()

	client := model.NewClient(&model.Client{ID: "client-1"})
	f.clients.On("FindByID", mock.Anything, "client-1").Return(client, nil).Once()

	rec := doJSON(t, f.router, http.MethodGet, "/api/v1/clients/client-1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got model.Client
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "client-1", got.ID)
}

func TestUpdateClientEndpoint(t *testing.T) {
	f := newAPIFixture()

	updated := model.NewClient(&model.Client{ID: "client-1", Status: model.ClientStatusVIP})
	f.clients.On("Update", mock.Anything, "client-1", mock.MatchedBy(func(p model.UpdateClientPayload) bool {
		return p.Status != nil && *p.Status == model.ClientStatusVIP
	})).Return(updated, nil).Once()

	rec := doJSON(t, f.router, http.MethodPut, "/api/v1/clients/client-1", map[string]string{
		"status": "VIP",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	var got model.Client
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.ClientStatusVIP, got.Status)
}

func TestClientActivityEndpoint_PassesPaging(t *testing.T) {
	f := newAPIFixture()

	entries := []model.ActivityLog{{ID: 1, ClientID: "client-1", Action: model.ActivityReminderSnoozed}}
	f.clients.On("ListActivity", mock.Anything, "client-1", 10, 5).Return(entries, nil).Once()

	rec := doJSON(t, f.router, http.MethodGet, "/api/v1/clients/client-1/activity?limit=10&offset=5", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got []model.ActivityLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
}

// --- Health --- //

func TestHealthEndpoints(t *testing.T) {
	f := newAPIFixture()

	rec := doJSON(t, f.router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, f.router, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyEndpoint_FailingCheck(t *testing.T) {
	server := NewServer(new(followUpAPIMock), new(dashboardAPIMock), new(rollupAPIMock), new(clientAPIMock),
		func(ctx context.Context) error { return errors.New("db unreachable") })
	router := server.Router()

	rec := doJSON(t, router, http.MethodGet, "/ready", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
