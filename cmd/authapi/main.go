package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "horizonx-console/internal/adapters/http"
	"horizonx-console/internal/adapters/postgres"
	"horizonx-console/internal/application/auth"
	"horizonx-console/internal/config"
	"horizonx-console/internal/logger"

	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := logger.New(cfg)

	if cfg.JWTSecret == "" {
		log.Error("FATAL: JWT_SECRET is mandatory for the auth API")
		os.Exit(1)
	}

	dbPool, err := postgres.InitDB(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to init DB", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	userRepo := postgres.NewUserRepository(dbPool)
	authService := auth.NewService(userRepo, cfg.JWTSecret, cfg.JWTExpiry)
	authHandler := httpadapter.NewAuthHandler(authService, cfg, log)

	srv := httpadapter.NewServer(httpadapter.NewAuthAPIRouter(log, authHandler), cfg.AuthAPIAddress)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http: starting auth api", "address", cfg.AuthAPIAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("http: auth api stopped with error", "error", err)
		os.Exit(1)
	}

	log.Info("auth api stopped")
}
