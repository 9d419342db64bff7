package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/reelfolio/reelfolio/internal/config"
	"github.com/reelfolio/reelfolio/internal/logger"
	"github.com/reelfolio/reelfolio/internal/server"
	"github.com/reelfolio/reelfolio/internal/tasks"
	"github.com/reelfolio/reelfolio/internal/workers"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	log.Info().Str("version", version).Msg("Starting Reelfolio Asynq worker")

	// Reuse the server's database and storage initialization
	srv, err := server.New(cfg, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server (needed for DB)")
	}
	db := srv.GetDB()
	objects := srv.GetStorage()

	// Used by the cleanup scheduler
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})
	defer asynqClient.Close()

	asynqServer := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr: cfg.Redis.Address,
		},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			Logger: &asynqLogger{log: log},
		},
	)

	mailer := workers.LogMailer{Logger: log}

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSendVerificationEmail, func(ctx context.Context, t *asynq.Task) error {
		return workers.HandleSendVerificationEmail(ctx, t, db, mailer, cfg.Storage.PublicURL, log)
	})
	mux.HandleFunc(tasks.TypeCleanupOrphanUploads, func(ctx context.Context, t *asynq.Task) error {
		return workers.HandleCleanupOrphanUploads(ctx, t, db, objects, log)
	})

	scheduler, err := workers.StartCleanupScheduler(asynqClient, cfg.Jobs.OrphanCleanupSchedule, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start cleanup scheduler")
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Starting Asynq worker server...")
		if err := asynqServer.Run(mux); err != nil {
			log.Fatal().Err(err).Msg("Asynq worker server failed")
		}
	}()

	<-sigChan
	log.Info().Msg("Received shutdown signal, shutting down gracefully...")

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	log.Info().Msg("Stopping Asynq worker - waiting for tasks to finish...")
	asynqServer.Shutdown()

	log.Info().Msg("Worker shutdown complete")
}

// asynqLogger is a wrapper to make zerolog compatible with Asynq's logger interface
type asynqLogger struct {
	log zerolog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.log.Debug().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.log.Info().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.log.Warn().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.log.Error().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.log.Fatal().Msg(fmt.Sprint(args...))
}
