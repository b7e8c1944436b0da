package main

import (
	"context"
	"errors"
	"os"
	"time"

	"suryasakshi/internal/backend"
	"suryasakshi/internal/cli"
	"suryasakshi/internal/config"
	"suryasakshi/internal/log"
	"suryasakshi/internal/services"
	"suryasakshi/internal/sheets"
	gsheet "suryasakshi/internal/sheets/google"
	mem "suryasakshi/internal/sheets/memory"
	"suryasakshi/internal/worker"
)

// spreadsheet is what the worker writes to: Google Sheets, or an in-process
// store when no spreadsheet is configured.
type spreadsheet interface {
	sheets.ActivityWriter
	sheets.SummaryWriter
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting suryasakshi-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// An unreachable broker is fatal here; without it the worker has nothing
	// to mirror.
	backendCfg.RequireAMQP = cfg.AMQPURL != ""

	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}

	var writer spreadsheet
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), gsheet.Options{
			SpreadsheetID: cfg.GoogleSpreadsheetID,
			ActivitySheet: cfg.GoogleActivitySheet,
			SummarySheet:  cfg.GoogleSummarySheet,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = mem.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, rows kept in memory")
	}

	scheduler, err := worker.NewSummaryScheduler(services.NewLoader(result.Repositories), writer, cfg.SummarySchedule)
	if err != nil {
		logger.Error("Failed to create summary scheduler", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Error("Summary scheduler stop failed", log.FieldError, err)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}
	})

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start summary scheduler", log.FieldError, err)
		os.Exit(1)
	}

	if result.AMQP != nil {
		mirror := worker.NewActivityMirror(writer)
		go func() {
			err := result.AMQP.ConsumeActivity(ctx, mirror.HandleActivity)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
