package main

import (
	"context"
	"time"

	"poupai/internal/cli"
	"poupai/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting salary-worker")

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

	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	svc := services.NewLedgerService(backendResult.Ledger, amqpClient)
	processor := services.NewSalaryProcessor(backendResult.Ledger, svc)

	logger.Info("Salary processor configured",
		"interval", cfg.SalaryInterval,
		"backend", cfg.DataBackend)

	ticker := time.NewTicker(cfg.SalaryInterval)
	defer ticker.Stop()

	// Run once on startup so a late-starting worker still posts salaries
	// whose payment day already passed this month.
	logger.Info("Running initial salary pass...")
	if count, err := processor.ProcessAll(ctx, time.Now()); err != nil {
		logger.Error("Initial salary pass failed", "error", err)
	} else {
		logger.Info("Initial salary pass complete", "salaries_posted", count)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				count, err := processor.ProcessAll(ctx, now)
				if err != nil {
					logger.Error("Salary pass failed", "error", err)
					continue
				}
				logger.Info("Salary pass complete",
					"salaries_posted", count,
					"next_check", now.Add(cfg.SalaryInterval).Format("15:04:05"))
			}
		}
	}()

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, cancel)
	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Salary-worker stopped gracefully")
}
