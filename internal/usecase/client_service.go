package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "gitlab.com/aurelia/api/luxe-crm-service/internal/apperrors"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/reqctx"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/storage"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/validator"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// defaultActivityPageSize caps an activity page when the caller does not
// say how many entries it wants.
const defaultActivityPageSize = 50

// ClientService handles client records and their activity history.
type ClientService struct {
	clientRepo   storage.ClientRepo
	activityRepo storage.ActivityLogRepo
}

// NewClientService creates the client service.
func NewClientService(clientRepo storage.ClientRepo, activityRepo storage.ActivityLogRepo) *ClientService {
	return &ClientService{
		clientRepo:   clientRepo,
		activityRepo: activityRepo,
	}
}

// Create validates and stores a new client record.
func (s *ClientService) Create(ctx context.Context, payload model.CreateClientPayload) (*model.Client, error) {
	log := logger.FromContext(ctx)

	if err := validator.Validate(payload); err != nil {
		log.Warn("Validation failed for client payload",
			zap.String("phone_number", payload.PhoneNumber),
			zap.Error(err),
		)
		return nil, apperrors.NewFatal(fmt.Errorf("%w: %v", apperrors.ErrValidation, err), "invalid client payload")
	}

	status := payload.Status
	if status == "" {
		status = model.ClientStatusProspect
	}
	var metadata []byte
	if payload.Metadata != nil {
		metadata = utils.MustMarshalJSON(payload.Metadata)
	}
	now := utils.Now()
	client := model.Client{
		ID:          uuid.NewString(),
		Name:        payload.Name,
		PhoneNumber: payload.PhoneNumber,
		Email:       payload.Email,
		Status:      status,
		Priority:    payload.Priority,
		Budget:      payload.Budget,
		Timeframe:   payload.Timeframe,
		Notes:       payload.Notes,
		Origin:      "manual",
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.clientRepo.Save(ctx, client); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, err
		}
		return nil, s.classify(ctx, err, "failed to create client")
	}

	log.Info("Created client",
		zap.String("client_id", client.ID),
		zap.String("actor", reqctx.ActorFromContext(ctx)),
	)
	return &client, nil
}

// Update applies a partial edit to a client. A status change is logged as
// status_changed; every other changed field as field_edited. Activity rows
// are best-effort; a failed audit write never rolls back the edit.
func (s *ClientService) Update(ctx context.Context, id string, payload model.UpdateClientPayload) (*model.Client, error) {
	log := logger.FromContext(ctx)

	if err := validator.Validate(payload); err != nil {
		return nil, apperrors.NewFatal(fmt.Errorf("%w: %v", apperrors.ErrValidation, err), "invalid client update")
	}

	client, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, s.classify(ctx, err, "failed to load client %s", id)
	}

	actor := reqctx.ActorFromContext(ctx)
	var activities []model.ActivityLog

	edit := func(field string, current *string, next *string) {
		if next == nil || *next == *current {
			return
		}
		activities = append(activities, model.ActivityLog{
			ClientID: client.ID,
			Action:   model.ActivityFieldEdited,
			Actor:    actor,
			Payload: utils.MustMarshalJSON(map[string]interface{}{
				"field": field,
				"from":  *current,
				"to":    *next,
			}),
		})
		*current = *next
	}

	if payload.Status != nil && *payload.Status != client.Status {
		activities = append(activities, model.ActivityLog{
			ClientID: client.ID,
			Action:   model.ActivityStatusChanged,
			Actor:    actor,
			Payload: utils.MustMarshalJSON(map[string]interface{}{
				"from": client.Status,
				"to":   *payload.Status,
			}),
		})
		client.Status = *payload.Status
	}
	edit("name", &client.Name, payload.Name)
	edit("email", &client.Email, payload.Email)
	edit("priority", &client.Priority, payload.Priority)
	edit("budget", &client.Budget, payload.Budget)
	edit("timeframe", &client.Timeframe, payload.Timeframe)
	edit("notes", &client.Notes, payload.Notes)
	edit("tags", &client.Tags, payload.Tags)
	if payload.FollowUpRequired != nil && *payload.FollowUpRequired != client.FollowUpRequired {
		activities = append(activities, model.ActivityLog{
			ClientID: client.ID,
			Action:   model.ActivityFieldEdited,
			Actor:    actor,
			Payload: utils.MustMarshalJSON(map[string]interface{}{
				"field": "follow_up_required",
				"from":  client.FollowUpRequired,
				"to":    *payload.FollowUpRequired,
			}),
		})
		client.FollowUpRequired = *payload.FollowUpRequired
	}

	if len(activities) == 0 {
		return client, nil
	}

	client.UpdatedAt = utils.Now()
	if err := s.clientRepo.Update(ctx, *client); err != nil {
		return nil, s.classify(ctx, err, "failed to update client %s", id)
	}

	for _, activity := range activities {
		if err := s.activityRepo.Save(ctx, activity); err != nil {
			log.Warn("Failed to record client edit activity",
				zap.String("client_id", client.ID),
				zap.String("action", activity.Action),
				zap.Error(err),
			)
		}
	}

	log.Info("Updated client",
		zap.String("client_id", client.ID),
		zap.Int("edits", len(activities)),
		zap.String("actor", actor),
	)
	return client, nil
}

// FindByID returns a single client.
func (s *ClientService) FindByID(ctx context.Context, id string) (*model.Client, error) {
	client, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, s.classify(ctx, err, "failed to load client %s", id)
	}
	return client, nil
}

// ListActivity returns a page of the client's activity history, newest
// first.
func (s *ClientService) ListActivity(ctx context.Context, clientID string, limit, offset int) ([]model.ActivityLog, error) {
	if clientID == "" {
		return nil, apperrors.NewFatal(fmt.Errorf("%w: clientId is required", apperrors.ErrValidation), "invalid activity listing")
	}
	if limit <= 0 || limit > 500 {
		limit = defaultActivityPageSize
	}
	if offset < 0 {
		offset = 0
	}
	entries, err := s.activityRepo.FindByClientID(ctx, clientID, limit, offset)
	if err != nil {
		return nil, s.classify(ctx, err, "failed to list activity for client %s", clientID)
	}
	return entries, nil
}

func (s *ClientService) classify(ctx context.Context, err error, message string, args ...interface{}) error {
	log := logger.FromContext(ctx)
	if errors.Is(err, apperrors.ErrDatabase) || errors.Is(err, apperrors.ErrTimeout) {
		log.Warn("Potentially retryable repository error", zap.Error(err))
		return apperrors.NewRetryable(err, message, args...)
	}
	log.Error("Fatal repository error", zap.Error(err))
	return apperrors.NewFatal(err, message, args...)
}
