package handlers

import "net/http"

// StatsProvider reports pipeline counters.
type StatsProvider interface {
	Stats() (parsed, malformed uint64)
}

// NewHealthHandler returns the GET /health handler.
func NewHealthHandler(stats StatsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]interface{}{"status": "ok"}
		if stats != nil {
			parsed, malformed := stats.Stats()
			payload["telegrams_parsed"] = parsed
			payload["telegrams_malformed"] = malformed
		}
		writeJSON(w, http.StatusOK, payload)
	}
}
