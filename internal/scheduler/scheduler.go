package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast-etl/internal/credential"
	"github.com/i474232898/weather-forecast-etl/internal/forecast"
	"github.com/i474232898/weather-forecast-etl/internal/pipeline"
)

// DefaultCron runs the pipeline every six hours.
const DefaultCron = "0 */6 * * *"

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, logical time.Time, trigger pipeline.Trigger) (pipeline.RunRecord, error)
}

// Config controls when runs fire and how failed runs are retried.
type Config struct {
	Cron          string
	RetryAttempts int           // extra attempts after a failed run
	RetryDelay    time.Duration // wait between attempts
	RunTimeout    time.Duration // per-attempt deadline (0 = none)
}

// Scheduler triggers pipeline runs on a cron schedule.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	cfg       Config
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(cfg Config, runner Runner, logger *zap.Logger) *Scheduler {
	if cfg.Cron == "" {
		cfg.Cron = DefaultCron
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    runner,
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "scheduler")),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the pipeline job and starts the underlying scheduler.
// Singleton mode skips a firing while the previous run is still going.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Cron(s.cfg.Cron).SingletonMode().Do(func() {
		s.logger.Info("running forecast pipeline job")
		if _, err := s.RunOnce(s.ctx, time.Now(), pipeline.TriggerSchedule); err != nil {
			s.logger.Error("forecast pipeline job failed", zap.Error(err))
			return
		}
		s.logger.Info("completed forecast pipeline job")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", zap.String("cron", s.cfg.Cron))
	return nil
}

// Stop stops the scheduler and cancels any in-flight retry wait.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// RunOnce runs the pipeline, retrying failed runs up to RetryAttempts times.
// Failures that a rerun cannot fix are returned immediately.
func (s *Scheduler) RunOnce(ctx context.Context, logical time.Time, trigger pipeline.Trigger) (pipeline.RunRecord, error) {
	var (
		rec pipeline.RunRecord
		err error
	)

	for attempt := 0; ; attempt++ {
		rec, err = s.runAttempt(ctx, logical, trigger)
		if err == nil {
			return rec, nil
		}
		if !retryable(err) || attempt >= s.cfg.RetryAttempts {
			return rec, err
		}

		s.logger.Warn("run failed; retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", s.cfg.RetryDelay),
			zap.Error(err),
		)

		timer := time.NewTimer(s.cfg.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return rec, err
		case <-timer.C:
		}
	}
}

// retryable reports whether a failed run may succeed on a rerun. Missing
// credentials, response shape mismatches and unresolvable start time hints
// are permanent.
func retryable(err error) bool {
	var malformed *forecast.MalformedResponseError
	switch {
	case errors.Is(err, credential.ErrMissing),
		errors.As(err, &malformed),
		errors.Is(err, forecast.ErrUnparsableServerHint),
		errors.Is(err, forecast.ErrStartTimeRejected):
		return false
	}
	return true
}

func (s *Scheduler) runAttempt(ctx context.Context, logical time.Time, trigger pipeline.Trigger) (pipeline.RunRecord, error) {
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}
	return s.runner.Run(ctx, logical, trigger)
}
