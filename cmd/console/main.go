package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horizonx-console/internal/adapters/authapi"
	httpadapter "horizonx-console/internal/adapters/http"
	redisstore "horizonx-console/internal/adapters/redis"
	"horizonx-console/internal/adapters/ws"
	"horizonx-console/internal/config"
	"horizonx-console/internal/logger"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := logger.New(cfg)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cancel()
		log.Error("redis: ping failed", "address", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	cancel()

	pages, err := httpadapter.NewPages()
	if err != nil {
		log.Error("http: failed to parse templates", "error", err)
		os.Exit(1)
	}

	sessions := redisstore.NewSessionStore(rdb, cfg.SessionPrefix, cfg.SessionTTL)
	authClient := authapi.NewClient(cfg.AuthAPIURL, cfg.AuthAPITimeout, log.With("component", "authapi"))

	// A submit mark outlives the auth call by a small margin.
	inflightTTL := cfg.AuthAPITimeout + 5*time.Second

	router := httpadapter.NewConsoleRouter(cfg, log, &httpadapter.ConsoleDeps{
		Login:    httpadapter.NewLoginHandler(sessions, authClient, pages, cfg, log, inflightTTL),
		Home:     httpadapter.NewHomeHandler(sessions, pages, cfg, log),
		Live:     ws.NewLoginHandler(sessions, authClient, log, cfg.AllowedOrigins, inflightTTL),
		Sessions: sessions,
	})

	srv := httpadapter.NewServer(router, cfg.Address)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http: starting console", "address", cfg.Address, "auth_api", cfg.AuthAPIURL)
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
		log.Error("http: console stopped with error", "error", err)
		os.Exit(1)
	}

	log.Info("console stopped")
}
