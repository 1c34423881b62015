package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// handleDashboardStats handles GET /api/v1/dashboard/stats.
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSONResponse(w, http.StatusOK, s.dashboard.Stats(r.Context(), utils.Now()))
}

// handleNextActions handles GET /api/v1/dashboard/next-actions.
func (s *Server) handleNextActions(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSONResponse(w, http.StatusOK, s.dashboard.Next(r.Context(), utils.Now()))
}

type rollupRequest struct {
	Date string `json:"date,omitempty"` // YYYY-MM-DD, defaults to yesterday UTC
}

// handleRollup handles POST /api/v1/rollup, the on-demand trigger; the
// scheduled path runs through the rollup command.
func (s *Server) handleRollup(w http.ResponseWriter, r *http.Request) {
	target := utils.Now().UTC().AddDate(0, 0, -1)

	var payload rollupRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			utils.WriteJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	if payload.Date != "" {
		day, err := utils.ParseDay(payload.Date)
		if err != nil {
			utils.WriteJSONError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		target = day
	}

	metrics, err := s.rollup.Rollup(r.Context(), target)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, metrics)
}

// handleCreateClient handles POST /api/v1/clients.
func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateClientPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.clients.Create(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, created)
}

// handleUpdateClient handles PUT /api/v1/clients/{id}.
func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdateClientPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := s.clients.Update(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, updated)
}

// handleGetClient handles GET /api/v1/clients/{id}.
func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	client, err := s.clients.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, client)
}

// handleClientActivity handles GET /api/v1/clients/{id}/activity.
func (s *Server) handleClientActivity(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit")
	offset := queryInt(r, "offset")

	entries, err := s.clients.ListActivity(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []model.ActivityLog{}
	}
	utils.WriteJSONResponse(w, http.StatusOK, entries)
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady handles GET /ready; it fails while downstream dependencies
// are unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.readyCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.readyCheck(ctx); err != nil {
			utils.WriteJSONError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	utils.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}

func queryInt(r *http.Request, key string) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
