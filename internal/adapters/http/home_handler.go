package http

import (
	"net/http"

	"horizonx-console/internal/adapters/http/middleware"
	"horizonx-console/internal/config"
	"horizonx-console/internal/domain"
	"horizonx-console/internal/logger"
)

type HomeHandler struct {
	sessions domain.SessionRepository
	pages    *Pages
	cfg      *config.Config
	log      logger.Logger
}

func NewHomeHandler(sessions domain.SessionRepository, pages *Pages, cfg *config.Config, log logger.Logger) *HomeHandler {
	return &HomeHandler{
		sessions: sessions,
		pages:    pages,
		cfg:      cfg,
		log:      log,
	}
}

type homePage struct {
	Title     string
	CSRFToken string
	User      *domain.User
}

func (h *HomeHandler) Show(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		http.Redirect(w, r, domain.DestinationLogin.Path(), http.StatusSeeOther)
		return
	}

	page := homePage{
		Title:     "Home",
		CSRFToken: middleware.GetCSRFToken(r.Context()),
		User:      session.User,
	}
	if err := h.pages.Render(w, http.StatusOK, "home", page); err != nil {
		h.log.Error("home: render failed", "error", err)
	}
}

func (h *HomeHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
		h.log.Error("logout: failed to delete session", "error", err)
	}

	middleware.ExpireSessionCookie(w, h.cfg)
	http.Redirect(w, r, domain.DestinationLogin.Path(), http.StatusSeeOther)
}

type registerPage struct {
	Title    string
	LoginURL string
}

func (h *HomeHandler) Register(w http.ResponseWriter, r *http.Request) {
	page := registerPage{
		Title:    "Register",
		LoginURL: domain.DestinationLogin.Path(),
	}
	if err := h.pages.Render(w, http.StatusOK, "register", page); err != nil {
		h.log.Error("register: render failed", "error", err)
	}
}
