// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Essence HTTP API server.
//
// It connects Postgres and Redis, applies migrations, wires every service by
// constructor injection and serves until SIGTERM or SIGINT.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/taibuivan/essence/internal/admin"
	"github.com/taibuivan/essence/internal/api"
	"github.com/taibuivan/essence/internal/catalog"
	"github.com/taibuivan/essence/internal/guard"
	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/notify"
	"github.com/taibuivan/essence/internal/platform/config"
	"github.com/taibuivan/essence/internal/platform/constants"
	"github.com/taibuivan/essence/internal/platform/httpclient"
	"github.com/taibuivan/essence/internal/platform/metrics"
	"github.com/taibuivan/essence/internal/platform/migration"
	pgstore "github.com/taibuivan/essence/internal/platform/postgres"
	redisstore "github.com/taibuivan/essence/internal/platform/redis"
	"github.com/taibuivan/essence/internal/platform/sec"
	"github.com/taibuivan/essence/internal/profile"
	"github.com/taibuivan/essence/internal/session"
	"github.com/taibuivan/essence/internal/status"
	"github.com/taibuivan/essence/internal/web"
)

func main() {
	logger := newLogger(false)
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("startup_failure", slog.Any("error", err))
		os.Exit(1)
	}
}

// newLogger returns the JSON logger tagged with the app name.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

func run(log *slog.Logger) error {
	log.Info("service_initializing")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Debug {
		log = newLogger(true)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Int("admin_emails", len(cfg.AdminEmails)),
		slog.Bool("discord_enabled", cfg.DiscordEnabled()),
	)

	// Background workers stop when rootCtx is cancelled.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	startupCtx, startupCancel := context.WithTimeout(rootCtx, constants.StartupTimeout)
	defer startupCancel()

	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error("redis_close_failed", slog.Any("error", err))
		}
	}()

	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// # Platform
	registry, recorder := metrics.NewRegistry()
	registry.MustRegister(pgstore.NewPoolCollector(pool))

	jwtSvc, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	if err != nil {
		return fmt.Errorf("initialize jwt service: %w", err)
	}

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	// # Sessions
	resolver := identity.NewResolver(cfg.AdminEmails)

	var providers []session.Provider
	if cfg.DiscordEnabled() {
		providers = append(providers, session.NewDiscordProvider(session.DiscordConfig{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURL,
		}, recorder))
	}

	sessionService := session.NewService(session.Dependencies{
		Users:     session.NewUserRepository(pool),
		Sessions:  session.NewSessionRepository(pool),
		Cache:     session.NewCache(rdb),
		Bus:       session.NewBus(rdb, log),
		States:    session.NewStateStore(rdb),
		Tokens:    jwtSvc,
		Providers: providers,
		Metrics:   recorder,
		Logger:    log,
	})
	go sessionService.RunJanitor(rootCtx, constants.SessionJanitorInterval)

	sessionHandler := session.NewHandler(sessionService, resolver, cfg.CookieSecure)

	routes := web.Routes()
	watchHandler := guard.NewWatchHandler(
		func(token string, meta session.ClientMeta) guard.Store {
			return sessionService.NewClient(token, meta)
		},
		resolver, routes, recorder, cfg.SessionLookupTimeout,
	)

	// # Domain Wiring
	profileService := profile.NewService(profile.NewAccountStore(sessionService), log)

	statusService := status.NewService(status.NewPostgresStore(pool))

	notifyService := notify.NewService(notify.NewPostgresStore(pool), notify.NewRedisPublisher(rdb, log), log)

	catalogService := catalog.NewService(
		catalog.NewRemoteSource(httpclient.New(cfg.CatalogBaseURL, "catalog", recorder)),
		rdb, cfg.CatalogCacheTTL, log,
	)

	adminService := admin.NewService(admin.Dependencies{
		Store:    admin.NewPostgresStore(pool),
		Accounts: sessionService,
		Statuses: statusService,
		Notifier: notifyService,
		Logger:   log,
	})

	pages := web.NewHandler(web.Dependencies{
		Providers: sessionService,
		Statuses:  statusService,
		Profiles:  profileService,
		Library:   catalogService,
		Inbox:     notifyService,
		Console:   adminService,
		Callback:  sessionHandler.Callback,
	})

	// # HTTP Server
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   metrics.Handler(registry),
		Session:   sessionHandler,
		Watch:     watchHandler,
		Profile:   profile.NewHandler(profileService),
		Notify:    notify.NewHandler(notifyService),
		Catalog:   catalog.NewHandler(catalogService),
		Status:    status.NewHandler(statusService),
		Admin:     admin.NewHandler(adminService),
		Pages:     pages.Routes(routes, recorder),
	}

	server := api.NewServer(rootCtx, cfg, log, recorder, api.Authentication{
		Sessions:      sessionService,
		Verifier:      jwtSvc,
		Resolver:      resolver,
		LookupTimeout: cfg.SessionLookupTimeout,
	}, handlers)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	signals, stop := signal.NotifyContext(rootCtx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	select {
	case <-signals.Done():
		log.Info("shutdown_signal_received")
	case err := <-serverErr:
		return fmt.Errorf("serve http: %w", err)
	}

	log.Info("server_shutting_down", slog.Duration("timeout", constants.ShutdownTimeout))
	rootCancel()
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server_stopped")
	return nil
}
