package http

import (
	"net/http"
	"time"

	"horizonx-console/internal/adapters/http/middleware"
	"horizonx-console/internal/config"
	"horizonx-console/internal/domain"
	"horizonx-console/internal/logger"
)

type ConsoleDeps struct {
	Login    *LoginHandler
	Home     *HomeHandler
	Live     http.Handler
	Sessions domain.SessionRepository
}

func NewConsoleRouter(cfg *config.Config, log logger.Logger, deps *ConsoleDeps) http.Handler {
	mux := http.NewServeMux()

	globalMw := middleware.New()
	globalMw.Use(middleware.RequestLogger(log))
	globalMw.Use(middleware.SessionID(cfg))
	globalMw.Use(middleware.CSRF(cfg))

	authMw := middleware.New()
	authMw.Use(middleware.RequireSession(deps.Sessions, log))

	mux.HandleFunc("GET /health", health)

	mux.HandleFunc("GET /login", deps.Login.Show)
	mux.HandleFunc("POST /login", deps.Login.Submit)
	mux.HandleFunc("POST /login/validate", deps.Login.Validate)
	mux.HandleFunc("GET "+domain.RebindPath, deps.Login.Rebind)
	mux.Handle("GET "+liveLoginPath, deps.Live)

	mux.HandleFunc("GET /register", deps.Home.Register)
	mux.HandleFunc("POST /logout", deps.Home.Logout)
	mux.Handle("GET /{$}", authMw.ThenFunc(deps.Home.Show))

	return globalMw.Then(mux)
}

func NewAuthAPIRouter(log logger.Logger, auth *AuthHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", health)
	mux.HandleFunc("POST /auth/login", auth.Login)
	mux.HandleFunc("GET /auth/me", auth.Me)

	return middleware.New(middleware.RequestLogger(log)).Then(mux)
}

func NewServer(handler http.Handler, addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func health(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("OK"))
}
