package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vigil/api/engine"
	"vigil/api/logger"
	"vigil/api/model"
)

type monitorResponse struct {
	model.Monitor
	Status *model.MonitorStatus `json:"status"`
}

func (h *Handler) ListMonitors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	monitors, err := h.db.ListMonitors(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]monitorResponse, 0, len(monitors))
	for _, m := range monitors {
		status, err := h.db.MonitorStatus(ctx, m.ID)
		if err != nil {
			clog := logger.WithComponent("api")
			clog.Error().Err(err).Str("monitor", m.ID).Msg("monitor status")
		}
		out = append(out, monitorResponse{Monitor: m, Status: status})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetMonitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	m, err := h.db.GetMonitor(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "Monitor not found")
		return
	}

	status, err := h.db.MonitorStatus(ctx, id)
	if err != nil {
		clog := logger.WithComponent("api")
		clog.Error().Err(err).Str("monitor", id).Msg("monitor status")
	}
	writeJSON(w, http.StatusOK, monitorResponse{Monitor: *m, Status: status})
}

type createMonitorRequest struct {
	Name           string `json:"name"`
	URL            string `json:"url"`
	Type           string `json:"monitorType"`
	CheckInterval  int    `json:"checkInterval"`
	Timeout        int    `json:"timeout"`
	AlertThreshold int    `json:"alertThreshold"`
}

func (h *Handler) CreateMonitor(w http.ResponseWriter, r *http.Request) {
	var req createMonitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Type == "" {
		req.Type = "http"
	}
	if req.CheckInterval == 0 {
		req.CheckInterval = 60
	}
	if req.Timeout == 0 {
		req.Timeout = 10
	}
	if req.AlertThreshold == 0 {
		req.AlertThreshold = 3
	}

	m := &model.Monitor{
		Name:           model.SanitizeString(req.Name, 255),
		URL:            model.SanitizeString(req.URL, 512),
		Type:           req.Type,
		CheckInterval:  req.CheckInterval,
		TimeoutSeconds: req.Timeout,
		AlertThreshold: req.AlertThreshold,
	}

	if result := m.Validate(); !result.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "Validation failed",
			"details": result.Messages(),
		})
		return
	}

	if err := h.db.InsertMonitor(r.Context(), m); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	clog := logger.WithComponent("api")
	clog.Info().Str("monitor", m.ID).Str("name", m.Name).Msg("monitor created")
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) UpdateMonitor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var u model.MonitorUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if u.Empty() {
		writeError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	if result := u.Validate(); !result.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "Validation failed",
			"details": result.Messages(),
		})
		return
	}

	m, err := h.db.UpdateMonitor(r.Context(), id, &u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "Monitor not found")
		return
	}

	clog := logger.WithComponent("api")
	clog.Info().Str("monitor", id).Msg("monitor updated")
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) DeleteMonitor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.db.DeleteMonitor(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Monitor not found")
		return
	}

	clog := logger.WithComponent("api")
	clog.Info().Str("monitor", id).Msg("monitor deleted")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Monitor deleted successfully"})
}

// CheckMonitorNow triggers an out-of-band check and reports when the
// full check-and-evaluate sequence has finished.
func (h *Handler) CheckMonitorNow(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	id := chi.URLParam(r, "id")
	if err := h.engine.CheckOne(ctx, id); err != nil {
		if errors.Is(err, engine.ErrMonitorNotFound) {
			writeError(w, http.StatusNotFound, "Monitor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Monitor check completed"})
}
