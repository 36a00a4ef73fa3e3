package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"horizonx-console/internal/adapters/authapi"
	"horizonx-console/internal/adapters/credfile"
	"horizonx-console/internal/adapters/terminal"
	"horizonx-console/internal/application/login"
	"horizonx-console/internal/config"
	"horizonx-console/internal/domain"
	"horizonx-console/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	attempts := flag.Int("attempts", 3, "sign in attempts before giving up")
	logout := flag.Bool("logout", false, "forget the stored session and exit")
	force := flag.Bool("force", false, "sign in again even when a session is stored")
	flag.Parse()

	// Prompts own stdout, so logs go to stderr.
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	store := credfile.NewStore(cfg.CredentialsFile, cfg.AuthAPIURL)
	driver := terminal.NewSurveyDriver()

	if *logout {
		if err := store.Clear(); err != nil {
			log.Error("login: failed to clear credentials", "path", store.Path(), "error", err)
			os.Exit(1)
		}
		_ = driver.Info(ctx, "Signed out.")
		return
	}

	if !*force {
		session, err := store.Load()
		if err == nil {
			_ = driver.Info(ctx, fmt.Sprintf("Already signed in as %s.", session.User.DisplayName()))
			return
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			log.Warn("login: stored credentials unreadable, signing in again", "path", store.Path(), "error", err)
		}
	}

	nav := &terminal.Navigator{}
	view := login.NewView(login.Deps{
		Auth:     authapi.NewClient(cfg.AuthAPIURL, cfg.AuthAPITimeout, log.With("component", "authapi")),
		Sessions: store,
		Nav:      nav,
		Log:      log,
	})

	if err := terminal.NewFlow(driver, view, *attempts).Run(ctx); err != nil {
		if errors.Is(err, terminal.ErrAborted) || errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		_ = driver.Info(ctx, err.Error())
		os.Exit(1)
	}

	dest, _ := nav.Destination()
	_ = driver.Info(ctx, fmt.Sprintf("Signed in. Session saved to %s, continue at %s.", store.Path(), dest.Path()))
}
