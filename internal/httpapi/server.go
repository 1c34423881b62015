package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	apperrors "gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/usecase"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// FollowUpAPI is the slice of the follow-up service the transport needs.
type FollowUpAPI interface {
	Create(ctx context.Context, payload model.FollowUp) (*model.FollowUp, error)
	ListByClient(ctx context.Context, clientID string, pendingOnly bool) ([]model.FollowUp, error)
	ListDueForNotification(ctx context.Context, now time.Time) ([]usecase.DueReminder, error)
	Snooze(ctx context.Context, id string, minutes int) (*model.FollowUp, error)
	Dismiss(ctx context.Context, id string) (*model.FollowUp, error)
	Complete(ctx context.Context, id string) (*model.FollowUp, error)
}

// DashboardAPI serves the dashboard read models.
type DashboardAPI interface {
	Stats(ctx context.Context, now time.Time) *usecase.DashboardStats
	Next(ctx context.Context, now time.Time) *usecase.NextActions
}

// RollupAPI triggers an on-demand metrics rollup.
type RollupAPI interface {
	Rollup(ctx context.Context, target time.Time) (*model.DailyMetrics, error)
}

// ClientAPI is the slice of the client service the transport needs.
type ClientAPI interface {
	Create(ctx context.Context, payload model.CreateClientPayload) (*model.Client, error)
	Update(ctx context.Context, id string, payload model.UpdateClientPayload) (*model.Client, error)
	FindByID(ctx context.Context, id string) (*model.Client, error)
	ListActivity(ctx context.Context, clientID string, limit, offset int) ([]model.ActivityLog, error)
}

// Server bundles the HTTP handlers over the usecase services.
type Server struct {
	followUps FollowUpAPI
	dashboard DashboardAPI
	rollup    RollupAPI
	clients   ClientAPI

	// readyCheck reports readiness of downstream dependencies; nil means
	// always ready.
	readyCheck func(ctx context.Context) error
}

// NewServer creates the API server over the given services.
func NewServer(followUps FollowUpAPI, dashboard DashboardAPI, rollup RollupAPI, clients ClientAPI, readyCheck func(ctx context.Context) error) *Server {
	return &Server{
		followUps:  followUps,
		dashboard:  dashboard,
		rollup:     rollup,
		clients:    clients,
		readyCheck: readyCheck,
	}
}

// writeError maps service errors onto HTTP status codes. Internal detail
// never leaks on a 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrBadRequest):
		utils.WriteJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		utils.WriteJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperrors.ErrDuplicate), errors.Is(err, apperrors.ErrConflict):
		utils.WriteJSONError(w, http.StatusConflict, err.Error())
	default:
		utils.WriteJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}
