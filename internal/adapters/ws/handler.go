// Package ws serves the live login view over a websocket. Each connection
// mounts its own login view and tears it down on disconnect.
package ws

import (
	"net/http"
	"slices"
	"time"

	"horizonx-console/internal/adapters/http/middleware"
	"horizonx-console/internal/domain"
	"horizonx-console/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type LoginHandler struct {
	sessions domain.SessionRepository
	auth     domain.AuthClient
	upgrader websocket.Upgrader
	log      logger.Logger

	inflightTTL time.Duration
}

func NewLoginHandler(sessions domain.SessionRepository, auth domain.AuthClient, log logger.Logger, allowedOrigins []string, inflightTTL time.Duration) *LoginHandler {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host {
				return true
			}

			if !slices.Contains(allowedOrigins, origin) {
				log.Warn("ws: origin rejected", "origin", origin)
				return false
			}

			return true
		},
	}

	return &LoginHandler{
		sessions:    sessions,
		auth:        auth,
		upgrader:    upgrader,
		log:         log,
		inflightTTL: inflightTTL,
	}
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if sessionID == "" {
		http.Error(w, "Missing session", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("ws: upgrade failed", "error", err)
		return
	}

	log := h.log.With("session_id", sessionID, "conn_id", uuid.NewString())
	c := newClient(conn, h.sessions, h.auth, sessionID, h.inflightTTL, log)

	log.Debug("ws: login view mounted")
	if err := c.run(r.Context()); err != nil {
		log.Debug("ws: login view closed", "error", err)
	}
}
