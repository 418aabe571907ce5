package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"voicebudget/internal/amqp"
	"voicebudget/internal/cache"
	"voicebudget/internal/config"
	"voicebudget/internal/core"
	"voicebudget/internal/export"
	"voicebudget/internal/extract"
	apphttp "voicebudget/internal/http"
	"voicebudget/internal/log"
	"voicebudget/internal/pipeline"
	"voicebudget/internal/services"
	"voicebudget/internal/storage"
	"voicebudget/internal/transcribe"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

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

	// AMQP is optional: without a broker the server still works, the
	// rollup worker just never hears about new expenses.
	var publisher services.EventPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, expense events disabled", log.FieldError, err.Error())
	} else {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	summaryCache := cache.NewLRUCache[core.SpendingSummary](500, 5*time.Minute)
	summarySvc := services.NewSummaryService(repo, summaryCache, logger)
	expenseSvc := services.NewExpenseService(repo, publisher, summarySvc, logger)

	extractor, err := extract.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize extractor", log.FieldError, err.Error())
		os.Exit(1)
	}
	transcriber := transcribe.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.TranscribeModel, logger)

	voicePipeline := pipeline.New(transcriber, extractor, expenseSvc, logger)
	exporter := export.NewXLSXExporter(repo, logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Pipeline: voicePipeline,
		Expenses: expenseSvc,
		Reader:   repo,
		Budgets:  repo,
		Summary:  summarySvc,
		Exporter: exporter,
		Tokens:   repo,
	}, logger)

	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting voicebudget server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		cache.NewJanitor(summaryCache).Run(ctx, time.Minute)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}
