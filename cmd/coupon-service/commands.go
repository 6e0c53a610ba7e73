package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Cheertaboi/coupon-studio/internal/api"
	"github.com/Cheertaboi/coupon-studio/internal/auth"
	"github.com/Cheertaboi/coupon-studio/internal/generation"
	"github.com/Cheertaboi/coupon-studio/internal/inference"
	"github.com/Cheertaboi/coupon-studio/internal/nearby"
	"github.com/Cheertaboi/coupon-studio/internal/presence"
	"github.com/Cheertaboi/coupon-studio/internal/repository"
	"github.com/Cheertaboi/coupon-studio/internal/service"
)

func runServe(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	registry := generation.NewRegistry(inference.NewClient(cfg.ReplicateBaseURL, cfg.ReplicateToken))
	defer registry.Close()

	googleEnabled := auth.InitProviders(auth.GoogleConfig{
		ClientID:      cfg.GoogleClientID,
		ClientSecret:  cfg.GoogleClientSecret,
		CallbackURL:   cfg.GoogleCallbackURL,
		SessionSecret: cfg.SessionSecret,
		Secure:        cfg.IsProduction(),
	})

	if cfg.RedisURL != "" {
		stop, err := presence.StartScheduler(cfg.RedisURL, cfg.SweepInterval)
		if err != nil {
			return err
		}
		defer stop()
	} else {
		go presence.RunTicker(ctx, a.presence, cfg.SweepInterval)
	}

	handler := api.NewRouter(api.Deps{
		Coupons:     service.NewCouponService(repository.NewCouponRepo(repository.NewDocuments(a.store))),
		Permissions: service.NewPermissionService(repository.NewPermissionRepo(a.store)),
		Presence:    a.presence,
		Watcher: nearby.NewWatcher(a.presence, a.presence, a.feed, nearby.Config{
			RadiusKm: cfg.NearbyRadiusKm,
			Limit:    cfg.NearbyLimit,
			Workers:  cfg.ProfileFetchWorkers,
		}),
		Generations:   registry,
		Tokens:        auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		GoogleEnabled: googleEnabled,
	})

	// WriteTimeout stays zero: /nearby/stream holds its response open.
	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		select {
		case <-c:
		case <-ctx.Done():
		}
		// Ends SSE streams and polling jobs before the server drains.
		cancel()
		registry.Close()

		shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown")
		}
		close(idleConnsClosed)
	}()

	log.Info().Str("addr", srv.Addr).Msg("starting coupon-service")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-idleConnsClosed
	log.Info().Msg("server stopped")
	return nil
}

func runWorker(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.RedisURL == "" {
		return errors.New("worker requires REDIS_URL")
	}
	a, err := newApp(parent, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	srv, mux, err := presence.NewWorker(cfg.RedisURL, a.presence)
	if err != nil {
		return err
	}
	log.Info().Msg("starting presence sweep worker")
	// Run blocks until SIGTERM or SIGINT.
	return srv.Run(mux)
}

func runSeed(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = service.Seed(ctx, repository.NewCouponRepo(repository.NewDocuments(store)))
	return err
}
