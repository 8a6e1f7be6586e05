package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast-etl/internal/credential"
	"github.com/i474232898/weather-forecast-etl/internal/forecast"
	"github.com/i474232898/weather-forecast-etl/internal/output"
)

// Options fixes the per-deployment query selectors and artifact naming.
type Options struct {
	Domain    string
	Province  string
	Amphoe    string
	StartHour int

	// Location is the zone for the logical date and start hour; nil means UTC.
	Location *time.Location

	OutputDir    string
	OutputPrefix string
}

// Service runs the credential -> fetch -> flatten -> write pipeline and
// records every run.
type Service struct {
	credentials credential.Provider
	fetcher     forecast.Fetcher
	writer      forecast.Writer
	store       Store
	opts        Options
	logger      *zap.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewService creates a new Service.
func NewService(
	credentials credential.Provider,
	fetcher forecast.Fetcher,
	writer forecast.Writer,
	store Store,
	opts Options,
	logger *zap.Logger,
) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		credentials: credentials,
		fetcher:     fetcher,
		writer:      writer,
		store:       store,
		opts:        opts,
		logger:      logger.With(zap.String("component", "pipeline")),
		tracer:      otel.Tracer("github.com/i474232898/weather-forecast-etl/internal/pipeline"),
		now:         time.Now,
	}
}

// Run executes one run for the calendar date of logical (in the configured
// zone). Stages run strictly in sequence and the first error ends the run.
// The run is recorded in the store whether it succeeds or not.
func (s *Service) Run(ctx context.Context, logical time.Time, trigger Trigger) (RunRecord, error) {
	local := logical.In(s.opts.Location)

	rec := RunRecord{
		ID:          uuid.NewString(),
		Trigger:     trigger,
		LogicalDate: local.Format("2006-01-02"),
		StartTime:   forecast.StartAt(local, s.opts.StartHour),
		StartedAt:   s.now().UTC(),
	}

	ctx, span := s.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("run.id", rec.ID),
		attribute.String("run.trigger", string(trigger)),
		attribute.String("run.logical_date", rec.LogicalDate),
		attribute.String("forecast.provider", s.fetcher.Name()),
	))
	defer span.End()

	log := s.logger.With(zap.String("run_id", rec.ID), zap.String("logical_date", rec.LogicalDate))
	log.Info("run started", zap.String("trigger", string(trigger)), zap.String("starttime", rec.StartTime))

	artifact, summary, err := s.execute(ctx, log, local, rec.StartTime)

	rec.FinishedAt = s.now().UTC()
	rec.Summary = summary
	if err != nil {
		rec.Status = RunFailed
		rec.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		log.Error("run failed", zap.Error(err))
	} else {
		rec.Status = RunSucceeded
		rec.Artifact = artifact
		span.SetAttributes(attribute.Int("forecast.rows", summary.Rows))
		log.Info("run completed",
			zap.String("artifact", artifact),
			zap.Int("rows", summary.Rows),
			zap.Duration("took", rec.FinishedAt.Sub(rec.StartedAt)),
		)
	}

	if s.store != nil {
		s.store.Save(rec)
	}
	return rec, err
}

func (s *Service) execute(ctx context.Context, log *zap.Logger, local time.Time, startTime string) (string, forecast.Summary, error) {
	token, err := s.credentials.Load()
	if err != nil {
		return "", forecast.Summary{}, fmt.Errorf("load credential: %w", err)
	}
	log.Info("api token loaded", zap.Stringer("token", token))

	query := forecast.Query{
		Domain:    s.opts.Domain,
		Province:  s.opts.Province,
		Amphoe:    s.opts.Amphoe,
		StartTime: startTime,
	}

	resp, err := s.fetcher.Fetch(ctx, token, query)
	if err != nil {
		return "", forecast.Summary{}, fmt.Errorf("fetch %s: %w", s.fetcher.Name(), err)
	}

	table, err := forecast.Flatten(resp)
	if err != nil {
		return "", forecast.Summary{}, err
	}

	path := output.ArtifactPath(s.opts.OutputDir, s.opts.OutputPrefix, local)
	if err := s.writer.Write(table, path); err != nil {
		return "", forecast.Summary{}, err
	}

	return path, forecast.Summarize(table), nil
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest() (RunRecord, error) {
	return s.store.Latest()
}

// GetRun delegates to the underlying store.
func (s *Service) GetRun(id string) (RunRecord, error) {
	return s.store.Get(id)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(from, to time.Time) ([]RunRecord, error) {
	return s.store.Range(from, to)
}
