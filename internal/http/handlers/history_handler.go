package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"p1gateway/internal/meter"
)

// HistoryProvider serves stored snapshot ranges.
type HistoryProvider interface {
	History(ctx context.Context, from, to time.Time, limit int) ([]meter.Snapshot, error)
}

// NewHistoryHandler returns the GET /api/readings/history handler.
// Query parameters: from, to (RFC 3339, default last 24h) and limit.
func NewHistoryHandler(provider HistoryProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		from := now.Add(-24 * time.Hour)
		to := now

		q := r.URL.Query()
		if raw := q.Get("from"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid 'from' timestamp")
				return
			}
			from = parsed
		}
		if raw := q.Get("to"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid 'to' timestamp")
				return
			}
			to = parsed
		}
		if to.Before(from) {
			writeError(w, http.StatusBadRequest, "'to' precedes 'from'")
			return
		}

		limit := 0
		if raw := q.Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				writeError(w, http.StatusBadRequest, "invalid 'limit'")
				return
			}
			limit = parsed
		}

		snapshots, err := provider.History(r.Context(), from, to, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch history")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"from":      from,
			"to":        to,
			"snapshots": snapshots,
		})
	}
}
