package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"dentalbudget/internal/amqp"
	"dentalbudget/internal/config"
	"dentalbudget/internal/log"
	"dentalbudget/internal/storage"
	"dentalbudget/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: "actuals-worker"})
	log.SetDefault(logger)

	logger.Info("Starting actuals-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the actuals worker")
		os.Exit(1)
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPActualsQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewActualsWorker(store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler := func(msg *amqp.ActualRecordedMessage) error {
		if err := w.HandleActualMessage(ctx, msg); err != nil {
			if worker.Permanent(err) {
				// Ack and drop: requeueing cannot fix a validation failure.
				slog.WarnContext(ctx, "Dropping invalid actuals message",
					log.FieldError, err.Error(),
					log.FieldOperation, log.OpConsume,
					log.FieldPeriodID, msg.PeriodID,
					log.FieldCategoryID, msg.CategoryID)
				return nil
			}
			return err
		}
		return nil
	}

	if err := amqpClient.ConsumeActualEntries(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete")
}

func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.DataBackend == "memory" {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewSQLiteRepository(cfg.SQLiteDBPath)
}
