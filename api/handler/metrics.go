package handler

import (
	"net/http"
	"time"

	"vigil/api/model"
)

func (h *Handler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := model.OutcomeFilter{
		MonitorID: q.Get("monitor_id"),
		Limit:     queryInt(r, "limit", 100, 1000),
	}

	if v := q.Get("start_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start_time must be RFC3339")
			return
		}
		filter.Start = &t
	}
	if v := q.Get("end_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end_time must be RFC3339")
			return
		}
		filter.End = &t
	}
	if filter.Start != nil && filter.End != nil && !filter.Start.Before(*filter.End) {
		writeError(w, http.StatusBadRequest, "start_time must be before end_time")
		return
	}

	outcomes, err := h.db.ListOutcomes(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if outcomes == nil {
		outcomes = []model.Outcome{}
	}
	writeJSON(w, http.StatusOK, outcomes)
}

func (h *Handler) MetricsSummary(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24, 720)
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	summary, err := h.db.OutcomeSummary(r.Context(), r.URL.Query().Get("monitor_id"), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) ListSystemMetrics(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24, 720)
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	samples, err := h.db.ListResourceSamples(r.Context(), since, queryInt(r, "limit", 100, 1000))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if samples == nil {
		samples = []model.ResourceSample{}
	}
	writeJSON(w, http.StatusOK, samples)
}

// UptimeReport aggregates per-monitor uptime for the analytics API.
func (h *Handler) UptimeReport(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7, 90)

	report, err := h.db.UptimeReport(r.Context(), r.URL.Query().Get("monitor_id"), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if report == nil {
		report = []model.UptimeEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"periodDays": days,
		"monitors":   report,
	})
}
