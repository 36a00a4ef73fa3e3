package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"horizonx-console/internal/adapters/http/middleware"
	"horizonx-console/internal/application/login"
	"horizonx-console/internal/config"
	"horizonx-console/internal/domain"
	"horizonx-console/internal/logger"

	"github.com/go-chi/render"
	"github.com/google/uuid"
)

const liveLoginPath = "/ws/login"

type LoginHandler struct {
	sessions domain.SessionRepository
	auth     domain.AuthClient
	pages    *Pages
	cfg      *config.Config
	log      logger.Logger

	// inflightTTL bounds how long a crashed submit can block its session.
	inflightTTL time.Duration
}

func NewLoginHandler(sessions domain.SessionRepository, auth domain.AuthClient, pages *Pages, cfg *config.Config, log logger.Logger, inflightTTL time.Duration) *LoginHandler {
	return &LoginHandler{
		sessions:    sessions,
		auth:        auth,
		pages:       pages,
		cfg:         cfg,
		log:         log,
		inflightTTL: inflightTTL,
	}
}

type loginPage struct {
	Title     string
	CSRFToken string
	LiveURL   string
	View      login.Snapshot
	Email     login.FieldView
	Password  login.FieldView
}

func (h *LoginHandler) Show(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if _, err := h.sessions.Get(r.Context(), sessionID); err == nil {
		http.Redirect(w, r, domain.DestinationHome.Path(), http.StatusSeeOther)
		return
	} else if !errors.Is(err, domain.ErrSessionNotFound) {
		h.log.Warn("login: session lookup failed", "error", err)
	}

	view := login.NewView(login.Deps{Log: h.log})
	h.render(w, r, http.StatusOK, view.Snapshot())
}

// Submit handles the plain HTML form post. Every posted field is run through
// the view before the submit gate.
func (h *LoginHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)
	nav := &RedirectNavigator{}
	view := login.NewView(login.Deps{
		Auth:     h.auth,
		Sessions: h.sessions.For(sessionID),
		Nav:      nav,
		Log:      h.log.With("session_id", sessionID),
	})

	for _, id := range domain.LoginFields {
		_ = view.Change(id, r.PostForm.Get(string(id)))
	}

	creds, ok := view.Begin()
	if !ok {
		h.render(w, r, http.StatusUnprocessableEntity, view.Snapshot())
		return
	}

	acquired, err := h.sessions.Acquire(ctx, sessionID, h.inflightTTL)
	if err != nil {
		h.log.Error("login: failed to mark submit in flight", "error", err)
		view.Complete(ctx, nil, err)
		h.render(w, r, http.StatusInternalServerError, view.Snapshot())
		return
	}
	if !acquired {
		view.Complete(ctx, nil, domain.ErrSubmitInFlight)
		h.render(w, r, http.StatusConflict, view.Snapshot())
		return
	}
	defer func() {
		// The browser may be gone already; the mark must still be dropped.
		if err := h.sessions.Release(context.WithoutCancel(ctx), sessionID); err != nil {
			h.log.Warn("login: failed to release submit mark", "error", err)
		}
	}()

	session, callErr := view.Call(ctx, creds)
	if view.Complete(ctx, session, callErr) == domain.SubmitSuccess {
		if location, ok := nav.Location(); ok {
			if !h.rotate(w, r, sessionID) {
				http.Redirect(w, r, domain.DestinationLogin.Path(), http.StatusSeeOther)
				return
			}
			http.Redirect(w, r, location, http.StatusSeeOther)
			return
		}
	}

	h.render(w, r, failureStatus(callErr), view.Snapshot())
}

// rotate moves the signed in session to a fresh id so a pre-login id never
// carries the user. On failure the session is dropped.
func (h *LoginHandler) rotate(w http.ResponseWriter, r *http.Request, sessionID string) bool {
	ctx := context.WithoutCancel(r.Context())
	newID := uuid.NewString()

	if err := h.sessions.Rotate(ctx, sessionID, newID); err != nil {
		h.log.Error("login: failed to rotate session id", "error", err)
		if err := h.sessions.Delete(ctx, sessionID); err != nil {
			h.log.Error("login: failed to drop unrotated session", "error", err)
		}
		return false
	}

	middleware.SetSessionCookie(w, h.cfg, newID)
	return true
}

// Rebind finishes a live view sign in. The socket cannot set cookies, so it
// sends the browser here with a one-time token for the rotated id.
func (h *LoginHandler) Rebind(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	newID, err := h.sessions.RedeemRebind(r.Context(), r.URL.Query().Get("token"), sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			h.log.Error("login: rebind failed", "error", err)
		}
		http.Redirect(w, r, domain.DestinationLogin.Path(), http.StatusSeeOther)
		return
	}

	middleware.SetSessionCookie(w, h.cfg, newID)
	http.Redirect(w, r, domain.DestinationHome.Path(), http.StatusSeeOther)
}

type validateRequest struct {
	Field domain.FieldID `json:"field"`
	Value string         `json:"value"`
}

// Validate answers blur events from scripts that cannot hold a live socket.
func (h *LoginHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		JSONError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	form := login.NewForm()
	if err := form.Change(req.Field, req.Value); err != nil {
		JSONError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	_ = form.Blur(req.Field)

	state, _ := form.Field(req.Field)
	JSON(w, r, http.StatusOK, &Response{
		Data: login.FieldView{
			Name:    req.Field,
			Label:   req.Field.Label(),
			Error:   state.VisibleError(),
			Invalid: !state.IsValid,
			Touched: state.Touched,
		},
	})
}

func (h *LoginHandler) render(w http.ResponseWriter, r *http.Request, status int, snap login.Snapshot) {
	page := loginPage{
		Title:     "Sign in",
		CSRFToken: middleware.GetCSRFToken(r.Context()),
		LiveURL:   liveLoginPath,
		View:      snap,
		Email:     snap.Field(domain.FieldEmail),
		Password:  snap.Field(domain.FieldPassword),
	}

	if err := h.pages.Render(w, status, "login", page); err != nil {
		h.log.Error("login: render failed", "error", err)
	}
}

func failureStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			return apiErr.StatusCode
		}
		return http.StatusBadGateway
	}
}
