package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades HTTP connections into live-stream subscribers.
type Server struct {
	hub          *Hub
	logger       *zap.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds the ws server.
func NewServer(hub *Hub, writeTimeout time.Duration, logger *zap.Logger) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Server{
		hub:          hub,
		logger:       logger,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Local dashboards connect from arbitrary origins.
				return true
			},
		},
	}
}

// HandleWS is the HTTP handler for /ws.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	// The request context dies when this handler returns; the hijacked
	// connection outlives it.
	ctx, cancel := context.WithCancel(context.Background())
	client := newClient(conn, s.writeTimeout, s.logger, func(c *Client) {
		s.hub.remove(c)
		cancel()
	})
	s.hub.add(client)

	go client.start(ctx)
	s.logger.Info("live stream client connected", zap.String("remote", r.RemoteAddr))
}
