package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/app"
	jobmetrics "github.com/fungus-mycelium/fungus-admin/internal/jobs"
	"github.com/fungus-mycelium/fungus-admin/internal/logs"
	"github.com/fungus-mycelium/fungus-admin/internal/platform/cache"
	"github.com/fungus-mycelium/fungus-admin/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	cleanupNow := flag.Bool("cleanup-now", false, "enqueue one log cleanup run and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "worker")
	if !cfg.WorkerEnabled() {
		logger.Error("SERVICE_TOKEN is required to run scheduled cleanup")
		os.Exit(1)
	}

	redisOpts := cfg.Redis()
	// asynq dials lazily; probe once so a bad address fails at startup.
	redisClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	if err := redisClient.Close(); err != nil {
		logger.Warn("redis close", slog.Any("error", err))
	}

	if *cleanupNow {
		client := jobs.NewClient(redisOpts.AsynqOpt())
		defer client.Close()
		info, err := client.EnqueueLogsCleanup(ctx, cfg.CleanupDays)
		if err != nil {
			logger.Error("enqueue logs cleanup", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("logs cleanup enqueued", slog.String("task_id", info.ID), slog.Int("days", cfg.CleanupDays))
		return
	}

	apiClient := api.NewClient(api.Options{
		BaseURL:         cfg.APIURL,
		Timeout:         cfg.APITimeout,
		Credentials:     api.StaticCredential(cfg.ServiceToken),
		Logger:          logger,
		BreakerFailures: cfg.APIBreakerFailures,
		BreakerCooldown: cfg.APIBreakerCooldown,
	})
	cleanupJob := jobs.NewLogsCleanupJob(logs.NewService(apiClient, cfg.ListIdleTTL), cfg.CleanupDays, logger, jobmetrics.NewMetrics(nil))

	cleanupTask, err := jobs.NewLogsCleanupTask(cfg.CleanupDays)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts.AsynqOpt(),
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLogsCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.CleanupSchedule, Task: cleanupTask, Options: []asynq.Option{asynq.Unique(time.Hour)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			_ = metricsServer.Close()
		}()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
