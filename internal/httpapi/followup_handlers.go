package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// handleCreateFollowUp handles POST /api/v1/followups.
func (s *Server) handleCreateFollowUp(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateFollowUpPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	followUp := model.FollowUp{
		ClientID:     payload.ClientID,
		Type:         payload.Type,
		Title:        payload.Title,
		Description:  payload.Description,
		ScheduledFor: payload.ScheduledFor,
		Priority:     payload.Priority,
		Channel:      payload.Channel,
	}
	if payload.Metadata != nil {
		followUp.Metadata = utils.MustMarshalJSON(payload.Metadata)
	}

	created, err := s.followUps.Create(r.Context(), followUp)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, created)
}

// handleListFollowUps handles GET /api/v1/followups?clientId=&pendingOnly=.
func (s *Server) handleListFollowUps(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	pendingOnly, _ := strconv.ParseBool(r.URL.Query().Get("pendingOnly"))

	followUps, err := s.followUps.ListByClient(r.Context(), clientID, pendingOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	if followUps == nil {
		followUps = []model.FollowUp{}
	}
	utils.WriteJSONResponse(w, http.StatusOK, followUps)
}

// handleListDueFollowUps handles GET /api/v1/followups/due, the endpoint
// the UI notification poll hits.
func (s *Server) handleListDueFollowUps(w http.ResponseWriter, r *http.Request) {
	due, err := s.followUps.ListDueForNotification(r.Context(), utils.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, due)
}

type snoozeRequest struct {
	Minutes int `json:"minutes"`
}

// handleSnoozeFollowUp handles PUT /api/v1/followups/{id}/snooze.
func (s *Server) handleSnoozeFollowUp(w http.ResponseWriter, r *http.Request) {
	var payload snoozeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := s.followUps.Snooze(r.Context(), chi.URLParam(r, "id"), payload.Minutes)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, updated)
}

// handleDismissFollowUp handles PUT /api/v1/followups/{id}/dismiss.
func (s *Server) handleDismissFollowUp(w http.ResponseWriter, r *http.Request) {
	updated, err := s.followUps.Dismiss(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, updated)
}

// handleCompleteFollowUp handles PUT /api/v1/followups/{id}/complete.
func (s *Server) handleCompleteFollowUp(w http.ResponseWriter, r *http.Request) {
	updated, err := s.followUps.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, updated)
}
