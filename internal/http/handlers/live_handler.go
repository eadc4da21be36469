package handlers

import (
	"context"
	"net/http"

	"p1gateway/internal/meter"
)

// LatestProvider serves the most recent snapshot.
type LatestProvider interface {
	Latest(ctx context.Context) (*meter.Snapshot, error)
}

// NewLiveHandler returns the GET /api/readings/live handler. Unauthenticated:
// this is the endpoint a wall display polls.
func NewLiveHandler(provider LatestProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := provider.Latest(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "no reading available yet")
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}
