// Package scheduler runs periodic maintenance jobs inside the worker process.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"push-server/internal/observability"
)

// Job is a periodic unit of work
type Job interface {
	Name() string
	Run(ctx context.Context) error
	// Schedule returns the interval between runs
	Schedule() time.Duration
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	jobs   []Job
	logger *observability.Logger
}

func New(logger *observability.Logger) *Scheduler {
	return &Scheduler{
		jobs:   make([]Job, 0),
		logger: logger,
	}
}

// Register adds a job to the scheduler
func (s *Scheduler) Register(job Job) {
	s.jobs = append(s.jobs, job)
	s.logger.Info(context.Background(), fmt.Sprintf("registered scheduled job: %s (interval: %s)",
		job.Name(), job.Schedule()))
}

// Start runs every registered job on its interval until ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info(ctx, fmt.Sprintf("starting scheduler with %d jobs", len(s.jobs)))

	for _, job := range s.jobs {
		go s.runJob(ctx, job)
	}

	<-ctx.Done()
	s.logger.Info(ctx, "scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	jobCtx := observability.WithFields(ctx, observability.Field{Key: "scheduled_job", Value: job.Name()})

	// Run once on startup so work missed while the worker was down is picked up.
	s.executeJob(jobCtx, job)

	ticker := time.NewTicker(job.Schedule())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.executeJob(jobCtx, job)
		}
	}
}

func (s *Scheduler) executeJob(ctx context.Context, job Job) {
	start := time.Now()
	err := job.Run(ctx)
	ctx = observability.WithFields(ctx, observability.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})

	if err != nil {
		s.logger.Error(ctx, fmt.Sprintf("job %s failed", job.Name()), err)
		return
	}
	s.logger.Debug(ctx, fmt.Sprintf("job %s completed", job.Name()))
}
