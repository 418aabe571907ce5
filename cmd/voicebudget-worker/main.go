package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"voicebudget/internal/amqp"
	"voicebudget/internal/config"
	"voicebudget/internal/export"
	"voicebudget/internal/log"
	"voicebudget/internal/storage"
	"voicebudget/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("starting voicebudget-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to initialize SQLite repository",
			log.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The audit sheet is optional; without a spreadsheet id the worker
	// only maintains rollups.
	var audit worker.AuditAppender
	if cfg.GoogleSpreadsheetID != "" {
		appender, err := export.NewSheetsAppender(context.Background(),
			cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
		if err != nil {
			logger.Error("failed to initialize Google Sheets appender", log.FieldError, err.Error())
			os.Exit(1)
		}
		audit = appender
		logger.Info("audit sheet enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("audit sheet disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rollupWorker := worker.NewRollupWorker(repo, audit, cfg.RollupInterval, logger)
	if err := rollupWorker.Run(ctx, amqpClient.ConsumeExpenseCreated); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker error", log.FieldError, err.Error())
		os.Exit(1)
	}

	logger.Info("worker stopped gracefully")
}
