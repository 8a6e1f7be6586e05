package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-forecast-etl/internal/api/http"
	"github.com/i474232898/weather-forecast-etl/internal/config"
	"github.com/i474232898/weather-forecast-etl/internal/credential"
	"github.com/i474232898/weather-forecast-etl/internal/forecast/providers"
	"github.com/i474232898/weather-forecast-etl/internal/output"
	"github.com/i474232898/weather-forecast-etl/internal/pipeline"
	"github.com/i474232898/weather-forecast-etl/internal/scheduler"
	"github.com/i474232898/weather-forecast-etl/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	// Shared HTTP client for outbound forecast calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	fetcher := providers.NewTMDProvider(httpClient, providers.TMDOptions{
		BaseURL:        cfg.BaseURL,
		MaxAttempts:    cfg.MaxAttempts,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Logger:         zlog,
	})

	// In-memory run history with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	service := pipeline.NewService(
		credential.NewEnvProvider(cfg.TokenKey, cfg.DotenvPath),
		fetcher,
		output.NewCSVWriter(),
		memStore,
		pipeline.Options{
			Domain:       cfg.Domain,
			Province:     cfg.Province,
			Amphoe:       cfg.Amphoe,
			StartHour:    cfg.StartHour,
			Location:     cfg.Location,
			OutputDir:    cfg.OutputDir,
			OutputPrefix: cfg.OutputPrefix,
		},
		zlog,
	)

	sched := scheduler.New(scheduler.Config{
		Cron:          cfg.ScheduleCron,
		RetryAttempts: cfg.ScheduleRetries,
		RetryDelay:    cfg.RetryDelay,
		RunTimeout:    cfg.RunTimeout,
	}, service, zlog)

	// One-shot mode: run for today and exit.
	if cfg.RunOnce {
		rec, err := sched.RunOnce(context.Background(), time.Now(), pipeline.TriggerOnce)
		sched.Stop()
		if err != nil {
			zlog.Error("run failed", zap.String("run_id", rec.ID), zap.Error(err))
			zlog.Sync() //nolint:errcheck
			os.Exit(1)
		}
		zlog.Info("run succeeded", zap.String("artifact", rec.Artifact), zap.Int("rows", rec.Summary.Rows))
		return
	}

	if err := sched.Start(); err != nil {
		zlog.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-forecast-etl",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Manual runs wait for the full pipeline, retries included.
		WriteTimeout: cfg.RunTimeout + time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-forecast-etl",
		})
	})

	// API routes. Manual runs bypass scheduler retries.
	httpapi.RegisterRoutes(app, service, func(ctx context.Context, logical time.Time) (pipeline.RunRecord, error) {
		return service.Run(ctx, logical, pipeline.TriggerManual)
	}, cfg.Location)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Error("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Error("error during shutdown", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}
