package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"till/internal/amqp"
	"till/internal/categorizer"
	"till/internal/cli"
	"till/internal/export"
	gsheet "till/internal/export/google"
	"till/internal/llm"
	"till/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting till-categorizer")

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	// Mirror to Google Sheets only when configured.
	var mirror export.TransactionWriter
	if cfg.MirrorSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), cfg.MirrorSpreadsheetID, cfg.MirrorSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets mirror", "error", err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.MirrorSpreadsheetID)
	} else {
		logger.Info("Google Sheets mirror disabled - no MIRROR_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMModel)
	cat := categorizer.New(llmClient, cfg.CategorizeTimeout)
	categorizeWorker := worker.NewCategorizeWorker(sqliteRepo, cat, mirror, cfg.BatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// On startup, drain any backlog that accumulated while the worker was down.
	logger.Info("Performing startup backlog check...")
	if err := categorizeWorker.StartupCheck(ctx); err != nil {
		logger.Error("Failed startup backlog check", "error", err)
		// Don't exit - continue with normal operation
	}

	go func() {
		if err := amqpClient.ConsumeStaged(ctx, func(msg *amqp.StagedMessageEvent) error {
			return categorizeWorker.HandleStagedMessage(ctx, msg)
		}); err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	// Periodic scan for staged messages whose events were lost.
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := categorizeWorker.ProcessPending(ctx); err != nil {
					logger.Error("Periodic scan failed", "error", err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down categorizer...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(5 * time.Second):
		logger.Info("Categorizer shutdown complete")
	}
}
