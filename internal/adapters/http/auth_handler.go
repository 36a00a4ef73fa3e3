package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"horizonx-console/internal/config"
	"horizonx-console/internal/domain"
	"horizonx-console/internal/logger"
	"horizonx-console/internal/validation"

	"github.com/go-chi/render"
)

// AuthHandler serves the development login endpoint.
type AuthHandler struct {
	svc domain.AuthService
	cfg *config.Config
	log logger.Logger
}

func NewAuthHandler(svc domain.AuthService, cfg *config.Config, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		svc: svc,
		cfg: cfg,
		log: log,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req domain.Credentials
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		JSONError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if errs := validation.Struct(&req); len(errs) > 0 {
		JSONValidationError(w, r, errs)
		return
	}

	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			JSONError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}

		h.log.Error("auth: login failed", "error", err)
		JSONError(w, r, http.StatusInternalServerError, "failed to sign in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    res.AccessToken,
		Path:     "/",
		Expires:  time.Now().Add(h.cfg.JWTExpiry),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	JSON(w, r, http.StatusOK, &Response{Data: res})
}

// Me answers who the access token belongs to. The token comes from a bearer
// header or the access_token cookie set by Login.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := ""
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token = strings.TrimPrefix(header, "Bearer ")
	} else if cookie, err := r.Cookie("access_token"); err == nil {
		token = cookie.Value
	}

	if token == "" {
		JSONError(w, r, http.StatusUnauthorized, "missing access token")
		return
	}

	user, err := h.svc.CurrentUser(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			JSONError(w, r, http.StatusUnauthorized, "invalid access token")
			return
		}

		h.log.Error("auth: current user lookup failed", "error", err)
		JSONError(w, r, http.StatusInternalServerError, "failed to load user")
		return
	}

	JSON(w, r, http.StatusOK, &Response{Data: user})
}
