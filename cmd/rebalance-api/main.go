package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fandance/rebalance-api/config"
	"github.com/fandance/rebalance-api/data"
	"github.com/fandance/rebalance-api/data/cache"
	"github.com/fandance/rebalance-api/data/repository/postgres"
	"github.com/fandance/rebalance-api/data/session"
	"github.com/fandance/rebalance-api/internal/externalApi/authApi"
	"github.com/fandance/rebalance-api/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/fandance/rebalance-api/internal/externalApi/newsApi"
	"github.com/fandance/rebalance-api/internal/externalApi/quoteApi"
	"github.com/fandance/rebalance-api/internal/reportGenerator/xlsxGenerator"
	"github.com/fandance/rebalance-api/internal/scheduler"
	"github.com/fandance/rebalance-api/internal/service/portfolioService"
	httpserver "github.com/fandance/rebalance-api/internal/transport/http"
	"github.com/fandance/rebalance-api/internal/writecoalescer"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)

	quoteApiClient := quoteApi.New(cfg)
	newsApiClient := newsApi.New(cfg)
	authApiClient := authApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	var cloudStorage portfolioService.CloudStorage
	var driveApi *googleDriveApi.GoogleDriveApi
	if cfg.GoogleDrive.Enabled {
		driveApi = googleDriveApi.New(ctx, cfg)
		cloudStorage = driveApi
	}

	coalescer := writecoalescer.New(cfg.WriteQuietWindow)
	defer coalescer.Flush()

	portfolioSrv := portfolioService.New(
		cfg,
		pgRepo,
		redisCache,
		redisSession,
		quoteApiClient,
		newsApiClient,
		reportGenerator,
		cloudStorage,
		coalescer,
	)

	sched := scheduler.New()
	sched.NewIntervalJob("fill quote cache", portfolioSrv.FillQuoteCache, cfg.Jobs.FillQuoteCacheInterval, true)
	if driveApi != nil {
		sched.NewCrontabJob("drive cleanup", driveApi.DeleteOldFiles, cfg.Jobs.DriveCleanupCrontab, false)
	}
	sched.Start()
	defer sched.Stop()

	controller := httpserver.NewController(portfolioSrv)
	authMiddleware := httpserver.NewAuthMiddleware(redisSession, authApiClient, portfolioSrv)

	server := httpserver.New(cfg, controller, authMiddleware)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", slog.String("err", err.Error()))
			cancel()
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-interrupt:
	case <-ctx.Done():
	}

	if err := server.Shutdown(); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
