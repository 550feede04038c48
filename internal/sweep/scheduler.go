package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/slotline/slotline-api/internal/service"
	"github.com/slotline/slotline-api/pkg/config"
	"github.com/slotline/slotline-api/pkg/jobs"
)

const (
	jobTypeBackfill  = "sweep.backfill"
	jobTypeClosePast = "sweep.close_past"
)

// Scheduler runs the daily queue sweeps on cron schedules. Cron ticks
// only enqueue jobs; the actual work happens on the worker pool so a
// slow sweep never blocks the cron loop and failures get retried.
type Scheduler struct {
	lifecycle *service.LifecycleService
	cron      *cron.Cron
	queue     *jobs.Queue
	logger    *zap.Logger
	cfg       config.SweepConfig
}

// NewScheduler wires the cron entries and worker queue.
func NewScheduler(lifecycle *service.LifecycleService, cfg config.SweepConfig, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scheduler{
		lifecycle: lifecycle,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		logger:    logger,
		cfg:       cfg,
	}
	s.queue = jobs.NewQueue("sweeps", s.handle, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		RetryDelay: 30 * time.Second,
		Logger:     logger,
	})

	if _, err := s.cron.AddFunc(cfg.BackfillSpec, func() { s.enqueue(jobTypeBackfill) }); err != nil {
		return nil, fmt.Errorf("invalid backfill schedule %q: %w", cfg.BackfillSpec, err)
	}
	if _, err := s.cron.AddFunc(cfg.ClosePastSpec, func() { s.enqueue(jobTypeClosePast) }); err != nil {
		return nil, fmt.Errorf("invalid close-past schedule %q: %w", cfg.ClosePastSpec, err)
	}
	return s, nil
}

// Start launches the worker pool and the cron loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.queue.Start(ctx)
	s.cron.Start()
	s.logger.Info("sweep scheduler started",
		zap.String("backfill", s.cfg.BackfillSpec),
		zap.String("close_past", s.cfg.ClosePastSpec))
}

// Stop halts the cron loop and drains the workers.
func (s *Scheduler) Stop() {
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()
	s.queue.Stop()
	s.logger.Info("sweep scheduler stopped")
}

func (s *Scheduler) enqueue(jobType string) {
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobType}); err != nil {
		s.logger.Error("failed to enqueue sweep job", zap.String("type", jobType), zap.Error(err))
	}
}

func (s *Scheduler) handle(ctx context.Context, job jobs.Job) error {
	now := time.Now().UTC()
	switch job.Type {
	case jobTypeBackfill:
		report, err := s.lifecycle.CreateForAllProviders(ctx, now)
		if err != nil {
			return err
		}
		s.logger.Info("scheduled backfill sweep finished",
			zap.String("date", report.Date),
			zap.Int("providers", len(report.Providers)),
			zap.Int("queues", len(report.Queues)))
		return nil
	case jobTypeClosePast:
		closed, err := s.lifecycle.ClosePast(ctx, now)
		if err != nil {
			return err
		}
		s.logger.Info("scheduled close-past sweep finished", zap.Int64("closed", closed))
		return nil
	default:
		return fmt.Errorf("unknown sweep job type %q", job.Type)
	}
}
