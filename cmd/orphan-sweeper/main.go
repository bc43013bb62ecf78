package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"prospect-tracker-api/internal/attachment"
	"prospect-tracker-api/internal/config"
	"prospect-tracker-api/internal/logger"
	"prospect-tracker-api/internal/queue"
	"prospect-tracker-api/internal/storage"
	"prospect-tracker-api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Str("queue", cfg.Cleanup.Queue).Msg("Starting orphan sweeper")

	// Initialize Redis client
	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Initialize S3 storage
	s3Storage, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize S3 storage")
	}

	// Sweeps never record new orphans; failures go to the DLQ instead
	attachments := attachment.NewManager(cfg, s3Storage, nil)
	sweeper := worker.NewOrphanSweeper(cfg, queue.NewConsumer(redisClient, cfg), attachments)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := sweeper.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal().Err(err).Msg("Orphan sweeper failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down orphan sweeper...")

	cancel()
	<-done
	sweeper.Stop()

	log.Info().Msg("Orphan sweeper exited")
}
