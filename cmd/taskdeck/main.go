package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/taskdeck/taskdeck/internal/app"
	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/companies"
	"github.com/taskdeck/taskdeck/internal/dashboard"
	"github.com/taskdeck/taskdeck/internal/notifications"
	"github.com/taskdeck/taskdeck/internal/platform/cache"
	"github.com/taskdeck/taskdeck/internal/session"
	"github.com/taskdeck/taskdeck/internal/tasks"
	"github.com/taskdeck/taskdeck/internal/upstream"
	"github.com/taskdeck/taskdeck/internal/users"
	"github.com/taskdeck/taskdeck/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	backend := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout)
	if err := backend.Ping(ctx); err != nil {
		logger.Warn("backend ping", slog.Any("error", err))
	}

	sessions := session.NewStore(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	notifier := jobs.NewNotifier(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := notifier.Close(); err != nil {
			logger.Warn("notifier close", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(backend, logger)
	authHandler := auth.NewHandler(logger, authService)

	tasksService := tasks.NewService(backend, notifier, logger)
	tasksHandler := tasks.NewHandler(logger, tasksService)

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	dashboardService := dashboard.NewService(backend, dashboardCache, logger)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	usersService := users.NewService(backend)
	usersHandler := users.NewHandler(logger, usersService)

	companiesHandler := companies.NewHandler(logger, backend)
	notificationsHandler := notifications.NewHandler(logger, backend)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		Sessions:             sessions,
		AuthHandler:          authHandler,
		TasksHandler:         tasksHandler,
		DashboardHandler:     dashboardHandler,
		UsersHandler:         usersHandler,
		CompaniesHandler:     companiesHandler,
		NotificationsHandler: notificationsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
