package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vigil/api/logger"
	"vigil/api/model"
)

func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status := q.Get("status")
	if status != "" && status != string(model.AlertActive) && status != string(model.AlertResolved) {
		writeError(w, http.StatusBadRequest, "status must be active or resolved")
		return
	}

	alerts, err := h.db.ListAlerts(r.Context(), model.AlertFilter{
		MonitorID: q.Get("monitor_id"),
		Status:    status,
		Limit:     queryInt(r, "limit", 50, 500),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	a, err := h.db.GetAlert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "Alert not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	a, err := h.db.AcknowledgeAlert(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "Alert not found or already acknowledged")
		return
	}

	clog := logger.WithComponent("api")
	clog.Info().Str("alert", id).Msg("alert acknowledged")
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) AlertStats(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24, 720)
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	stats, err := h.db.AlertStats(r.Context(), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
