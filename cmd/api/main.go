package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"videotube/api/internal/cache"
	"videotube/api/internal/config"
	"videotube/api/internal/database"
	"videotube/api/internal/handlers"
	"videotube/api/internal/jobs"
	"videotube/api/internal/log"
	"videotube/api/internal/server"
	"videotube/api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	if cfg.Postgres.Migrate {
		if err := database.Migrate(ctx, dbPool); err != nil {
			logger.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	backend, err := storage.NewBackend(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init media host")
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Str("bucket", backend.Bucket()).Msg("ensure bucket failed")
	}
	uploader := storage.NewMediaUploader(backend, cfg.Storage.Endpoint, cfg.Storage.PublicBaseURL)

	if err := os.MkdirAll(cfg.Uploads.TempDir, 0o750); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Uploads.TempDir).Msg("failed to create upload temp dir")
	}

	handlerSet := handlers.NewHandlerSet(logger, dbPool, redisClient, uploader, cfg)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(cfg.Uploads, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if scheduler != nil {
		wait := scheduler.Stop()
		wait()
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
