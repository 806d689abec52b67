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

	"github.com/relaydesk/relaydesk/internal/access"
	"github.com/relaydesk/relaydesk/internal/app"
	"github.com/relaydesk/relaydesk/internal/approvals"
	"github.com/relaydesk/relaydesk/internal/auth"
	"github.com/relaydesk/relaydesk/internal/contacts"
	"github.com/relaydesk/relaydesk/internal/inbox"
	"github.com/relaydesk/relaydesk/internal/insights"
	"github.com/relaydesk/relaydesk/internal/kb"
	"github.com/relaydesk/relaydesk/internal/optimistic"
	"github.com/relaydesk/relaydesk/internal/platform/cache"
	"github.com/relaydesk/relaydesk/internal/platform/db"
	"github.com/relaydesk/relaydesk/internal/shared"
	"github.com/relaydesk/relaydesk/internal/users"
	"github.com/relaydesk/relaydesk/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "relaydesk_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService)

	accessMiddleware := access.Middleware{Source: usersRepo, Logger: logger}

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, usersRepo)

	optimisticStore := optimistic.NewRedisStore(redisClient, time.Hour)
	coordinator := optimistic.NewCoordinator(optimistic.Config{
		Store:  optimisticStore,
		Logger: logger,
		Expiry: cfg.OptimisticExpiry,
	})

	inboxRepo := inbox.NewRepository(pool)
	inboxService := inbox.NewService(inboxRepo, coordinator, optimisticStore, logger)
	inboxHandler := inbox.NewHandler(logger, inboxService, idempotencyStore)

	contactsRepo := contacts.NewRepository(pool)
	contactsService := contacts.NewService(contactsRepo, coordinator, optimisticStore, logger)
	contactsHandler := contacts.NewHandler(logger, contactsService)

	kbRepo := kb.NewRepository(pool)
	kbService := kb.NewService(kbRepo, kb.NewCache(redisClient, cfg.KBCacheTTL), logger)
	kbHandler := kb.NewHandler(logger, kbService)

	insightsRepo := insights.NewRepository(pool)
	insightsService := insights.NewService(insightsRepo, insights.NewCache(redisClient, cfg.InsightsCacheTTL), logger)
	insightsHandler := insights.NewHandler(logger, insightsService)

	approvalsRepo := approvals.NewRepository(pool)
	approvalsService := approvals.NewService(approvalsRepo, logger)
	approvalsHandler := approvals.NewHandler(logger, approvalsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AccessMiddleware: accessMiddleware,
		AuthHandler:      authHandler,
		InboxHandler:     inboxHandler,
		ContactsHandler:  contactsHandler,
		KBHandler:        kbHandler,
		InsightsHandler:  insightsHandler,
		ApprovalsHandler: approvalsHandler,
		UsersHandler:     usersHandler,
		JobsHandler:      jobsHandler,
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
