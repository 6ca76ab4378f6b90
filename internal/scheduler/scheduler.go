package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler drives jobs on cron expressions. Every run gets its own
// timeout so one unresponsive cycle cannot stall the next.
type Scheduler struct {
	cron       *cron.Cron
	jobTimeout time.Duration
	logger     *slog.Logger
}

func New(jobTimeout time.Duration, logger *slog.Logger) *Scheduler {
	if jobTimeout == 0 {
		jobTimeout = 10 * time.Minute
	}
	return &Scheduler{
		cron:       cron.New(),
		jobTimeout: jobTimeout,
		logger:     logger,
	}
}

// Add registers job under the given cron spec.
func (s *Scheduler) Add(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.run(job)
	})
	if err != nil {
		return err
	}
	s.logger.Info("job scheduled", "job", job.Name(), "spec", spec)
	return nil
}

// Start runs the scheduler until ctx is canceled, then waits for any
// in-flight job to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started")
	s.cron.Start()

	<-ctx.Done()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) run(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	started := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("job failed", "job", job.Name(), "error", err)
		return
	}
	s.logger.Debug("job finished", "job", job.Name(), "duration", time.Since(started))
}

// JobFunc adapts a function to the Job interface.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string { return j.JobName }

func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }
