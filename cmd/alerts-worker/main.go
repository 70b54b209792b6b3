package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"poupai/internal/amqp"
	"poupai/internal/cli"
	"poupai/internal/store"
	"poupai/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting alerts-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backendResult := cli.InitLedger(ctx, logger, cfg)
	defer func() {
		if backendResult.Cleanup != nil {
			if err := backendResult.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}
	}()

	// The alerts worker is pointless without a broker to consume from.
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient == nil {
		logger.Error("AMQP connection required for alerts-worker")
		os.Exit(1)
	}
	defer amqpClient.Close()

	alertsWorker := worker.NewAlertsWorker(backendResult.Ledger, store.SystemClock{})

	// Startup sweep covers events missed while the worker was down.
	if err := alertsWorker.CheckAllBudgets(ctx); err != nil {
		logger.Error("Startup budget sweep failed", "error", err)
	}

	go func() {
		err := amqpClient.ConsumeLedgerEvents(ctx, func(msg *amqp.LedgerEventMessage) error {
			return alertsWorker.HandleLedgerEvent(ctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Ledger event consumption failed", "error", err)
		}
		cancel()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	// Give the consumer a moment to ack in-flight deliveries.
	time.Sleep(2 * time.Second)
	logger.Info("Alerts-worker shutdown complete")
}
