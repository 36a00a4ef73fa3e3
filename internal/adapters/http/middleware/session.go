package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"horizonx-console/internal/config"
	"horizonx-console/internal/domain"
	"horizonx-console/internal/logger"

	"github.com/google/uuid"
)

const SessionCookieName = "console_session"

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	sessionKey   contextKey = "session"
	csrfTokenKey contextKey = "csrf_token"
)

// SessionID makes sure every browser carries a session id cookie.
func SessionID(cfg *config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				if id, err := uuid.Parse(cookie.Value); err == nil {
					sessionID = id.String()
				}
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
				SetSessionCookie(w, cfg, sessionID)
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetSessionCookie points the browser at sessionID, e.g. after a sign in
// rotated it.
func SetSessionCookie(w http.ResponseWriter, cfg *config.Config, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Expires:  time.Now().Add(cfg.SessionTTL),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// SessionReader is the part of the session store the middleware needs.
type SessionReader interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
}

// RequireSession sends visitors without a stored session to the login page.
func RequireSession(store SessionReader, log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Get(r.Context(), GetSessionID(r.Context()))
			if err != nil {
				if !errors.Is(err, domain.ErrSessionNotFound) {
					log.Error("session: lookup failed", "error", err)
				}
				http.Redirect(w, r, domain.DestinationLogin.Path(), http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetSession(ctx context.Context) (*domain.Session, bool) {
	session, ok := ctx.Value(sessionKey).(*domain.Session)
	return session, ok && session != nil
}

// ExpireSessionCookie drops the session id so the next request gets a new one.
func ExpireSessionCookie(w http.ResponseWriter, cfg *config.Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
