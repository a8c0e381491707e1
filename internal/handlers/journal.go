package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vilaw/vilaw-web/internal/models"
)

const defaultSessionsLimit = 50

// HandleSessions lists the most recent session records as JSON. The optional "limit" query parameter
// caps the number of records.
func (m Main) HandleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultSessionsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	recs := []models.SessionRecord{}
	if m.journal != nil {
		stored, err := m.journal.Sessions(r.Context(), limit)
		if err != nil {
			m.logger.Error("Failed to get sessions", slog.String(errLoggerKey, err.Error()))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		recs = append(recs, stored...)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(recs); err != nil {
		m.logger.Error("Failed to encode sessions", slog.String(errLoggerKey, err.Error()))
	}
}
