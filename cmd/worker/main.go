package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/tallercar/tallercar/internal/analytics"
	"github.com/tallercar/tallercar/internal/analytics/export"
	"github.com/tallercar/tallercar/internal/app"
	jobmetrics "github.com/tallercar/tallercar/internal/jobs"
	"github.com/tallercar/tallercar/internal/platform/db"
	"github.com/tallercar/tallercar/internal/workshop"
	"github.com/tallercar/tallercar/jobs"
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
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("resolve timezone", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	analyticsService := analytics.NewService(workshop.NewRepository(pool))
	archiveJob := jobs.NewExportArchiveJob(analyticsService, export.NewCSVWriter(), cfg.ExportArchiveDir, logger, jobmetrics.NewMetrics(nil))
	archiveJob.Location = loc

	archiveTask, err := jobs.NewExportArchiveTask(jobs.ExportArchivePayload{})
	if err != nil {
		logger.Error("build export archive task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		Logger:    logger,
		Location:  loc,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskExportArchive, Handler: archiveJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ExportArchiveCron, Task: archiveTask, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("export archive scheduled", slog.String("cron", cfg.ExportArchiveCron), slog.String("dir", cfg.ExportArchiveDir))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
