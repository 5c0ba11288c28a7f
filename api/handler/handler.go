package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vigil/api/engine"
	"vigil/api/store"
	"vigil/api/sysinfo"
)

type Handler struct {
	db      *store.DB
	engine  *engine.Engine
	sampler *sysinfo.Sampler
}

func New(db *store.DB, eng *engine.Engine, sampler *sysinfo.Sampler) *Handler {
	return &Handler{db: db, engine: eng, sampler: sampler}
}

// ValidateMonitorID rejects requests whose {id} is not a UUID before
// they reach the store.
func ValidateMonitorID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id != "" {
			if _, err := uuid.Parse(id); err != nil {
				writeError(w, http.StatusBadRequest, "invalid monitor id")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryInt reads an integer query param, clamped to [1, max]. Missing
// or malformed values return the fallback.
func queryInt(r *http.Request, key string, fallback, max int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
