package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"push-server/internal/bootstrap"
	"push-server/internal/config"
	"push-server/internal/jobs"
	"push-server/internal/jobs/scheduler"
	"push-server/internal/jobs/workers"
	"push-server/internal/observability"

	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if !cfg.Redis.Enabled {
		log.Fatal("REDIS_HOST must be set to run the worker")
	}

	logger := observability.NewLogger()
	defer logger.Sync()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info(ctx, "Starting background worker server...")

	deps, err := bootstrap.Initialize(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize dependencies: %v", err)
	}
	defer deps.Cleanup()

	// Events emitted while sending reach dashboards through the Redis bridge.
	campaignWorker := workers.NewCampaignWorker(&deps.NotificationProcessor, logger)

	srv := asynq.NewServer(
		bootstrap.RedisClientOpt(cfg.Redis),
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				jobs.QueueCampaigns: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error(ctx, fmt.Sprintf("task %s failed", task.Type()), err)
			}),
			RetryDelayFunc: asynq.DefaultRetryDelayFunc,
			Logger:         &asynqLogger{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(jobs.TypeCampaignSend, campaignWorker.ProcessCampaignSendTask)

	sweeper := scheduler.New(logger)
	sweeper.Register(scheduler.NewDueCampaignsJob(&deps.Store, &deps.NotificationProcessor, logger, time.Minute))
	go func() {
		_ = sweeper.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info(ctx, fmt.Sprintf("Worker server started on Redis: %s", cfg.Redis.Addr()))
		if err := srv.Run(mux); err != nil {
			log.Fatalf("Failed to run server: %v", err)
		}
	}()

	<-sigChan
	logger.Info(ctx, "Shutting down worker server...")

	cancel()
	srv.Shutdown()
	logger.Info(ctx, "Worker server stopped")
}

// asynqLogger adapts observability.Logger to the asynq.Logger interface
type asynqLogger struct {
	logger *observability.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.logger.Debug(context.Background(), fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.logger.Info(context.Background(), fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.logger.Warn(context.Background(), fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.logger.Error(context.Background(), fmt.Sprint(args...), nil)
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(context.Background(), fmt.Sprint(args...), nil)
	os.Exit(1)
}
