package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/relaydesk/relaydesk/internal/app"
	"github.com/relaydesk/relaydesk/internal/approvals"
	"github.com/relaydesk/relaydesk/internal/insights"
	"github.com/relaydesk/relaydesk/internal/optimistic"
	"github.com/relaydesk/relaydesk/internal/platform/cache"
	"github.com/relaydesk/relaydesk/internal/platform/db"
	"github.com/relaydesk/relaydesk/internal/shared"
	"github.com/relaydesk/relaydesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	insightsRepo := insights.NewRepository(pool)
	insightsService := insights.NewService(insightsRepo, insights.NewCache(redisClient, cfg.InsightsCacheTTL), logger)
	warmupJob := jobs.NewInsightsWarmupJob(insightsService, logger)

	optimisticStore := optimistic.NewRedisStore(redisClient, time.Hour)
	sweepJob := jobs.NewOptimisticSweepJob(optimisticStore, time.Hour, logger)

	approvalsService := approvals.NewService(approvals.NewRepository(pool), logger)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	cleanupJob := jobs.NewRetentionCleanupJob(approvalsService, idempotencyStore, cfg.HistoryRetention, logger)

	warmupTask, err := jobs.NewInsightsWarmupTask()
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	sweepTask, err := jobs.NewOptimisticSweepTask()
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewRetentionCleanupTask()
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInsightsWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskOptimisticSweep, Handler: sweepJob.Handle},
			{Type: jobs.TaskRetentionCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/15 * * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 * * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 2 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
