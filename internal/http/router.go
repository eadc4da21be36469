package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	Live       http.HandlerFunc
	History    http.HandlerFunc
	Login      http.HandlerFunc
	LiveStream http.HandlerFunc
	Health     http.HandlerFunc

	// AuthMiddleware wraps the history endpoint when token auth is on.
	AuthMiddleware func(http.Handler) http.Handler
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	if routes.Live != nil {
		mux.Handle("/api/readings/live", method(http.MethodGet, routes.Live))
	}
	if routes.History != nil {
		history := method(http.MethodGet, routes.History)
		if routes.AuthMiddleware != nil {
			mux.Handle("/api/readings/history", routes.AuthMiddleware(history))
		} else {
			mux.Handle("/api/readings/history", history)
		}
	}
	if routes.Login != nil {
		mux.Handle("/api/login", method(http.MethodPost, routes.Login))
	}
	if routes.LiveStream != nil {
		mux.Handle("/ws", method(http.MethodGet, routes.LiveStream))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
