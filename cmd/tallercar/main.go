package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tallercar/tallercar/cmd/tallercar/cli"
	"github.com/tallercar/tallercar/internal/analytics"
	"github.com/tallercar/tallercar/internal/analytics/export"
	analytichttp "github.com/tallercar/tallercar/internal/analytics/http"
	"github.com/tallercar/tallercar/internal/app"
	"github.com/tallercar/tallercar/internal/auth"
	"github.com/tallercar/tallercar/internal/observability"
	"github.com/tallercar/tallercar/internal/platform/cache"
	"github.com/tallercar/tallercar/internal/platform/db"
	"github.com/tallercar/tallercar/internal/workshop"
	"github.com/tallercar/tallercar/jobs"
	"github.com/tallercar/tallercar/report"
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

	if len(os.Args) > 1 && os.Args[1] == "archive" {
		os.Exit(runArchive(ctx, cfg, os.Args[2:]))
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	tokens := auth.NewTokenStore(redisClient, cfg.AuthTokenTTL)
	authService := auth.NewService(auth.NewRepository(pool), tokens)
	authHandler := auth.NewHandler(logger, authService)

	workshopRepo := workshop.NewRepository(pool)
	workshopHandler := workshop.NewHandler(logger, workshop.NewService(workshopRepo),
		workshop.WithClients(workshop.NewClientService(workshopRepo)),
		workshop.WithVehicles(workshop.NewVehicleService(workshopRepo)),
		workshop.WithRepairs(workshop.NewRepairService(workshopRepo)),
	)

	reportClient := report.NewClient(cfg.GotenbergURL)
	analyticsService := analytics.NewService(workshopRepo)
	analyticsHandler := analytichttp.NewHandler(logger, analyticsService,
		analytichttp.WithWriter("csv", export.NewCSVWriter()),
		analytichttp.WithWriter("pdf", export.NewPDFWriter(reportClient)),
		analytichttp.WithRecorder(metrics),
		analytichttp.WithLocation(loc),
	)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          metrics,
		AuthHandler:      authHandler,
		AnalyticsHandler: analyticsHandler,
		WorkshopHandler:  workshopHandler,
		ReportHandler:    report.NewHandler(reportClient, logger),
		JobHandler:       jobs.NewHandler(inspector, logger),
		RequireAuth:      auth.RequireMechanic(tokens, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

func runArchive(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("archive", flag.ContinueOnError)
	month := fs.String("month", "", "month to archive as YYYY-MM (default: previous month)")
	jsonOut := fs.Bool("json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr, cfg.RedisDB)
	defer func() { _ = jobsCLI.Close() }()
	return jobsCLI.ArchiveCommand(ctx, cli.ArchiveOptions{Month: *month, JSONOutput: *jsonOut})
}
