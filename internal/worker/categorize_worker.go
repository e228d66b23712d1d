package worker

import (
	"context"
	"fmt"
	"log/slog"

	"till/internal/amqp"
	"till/internal/categorizer"
	"till/internal/core"
	"till/internal/export"
	"till/internal/storage"

	"github.com/google/uuid"
)

// CategorizeWorker drains staged messages into the ledger. Each message is
// categorized, posted, then marked processed, in that order, so a crash
// between the two steps is repaired by the ledger's dedupe on replay.
type CategorizeWorker struct {
	storage     *storage.SQLiteRepository
	categorizer *categorizer.Categorizer
	mirror      export.TransactionWriter
	batchSize   int
}

func NewCategorizeWorker(storage *storage.SQLiteRepository, categorizer *categorizer.Categorizer, mirror export.TransactionWriter, batchSize int) *CategorizeWorker {
	return &CategorizeWorker{
		storage:     storage,
		categorizer: categorizer,
		mirror:      mirror,
		batchSize:   batchSize,
	}
}

// HandleStagedMessage processes a single staged message event from AMQP.
func (w *CategorizeWorker) HandleStagedMessage(ctx context.Context, msg *amqp.StagedMessageEvent) error {
	slog.InfoContext(ctx, "Processing staged message event", "id", msg.ID)

	staged, err := w.storage.GetStagedMessage(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get staged message: %w", err)
	}

	if staged.Processed {
		slog.InfoContext(ctx, "Staged message already processed, acknowledging", "id", staged.ID)
		return nil
	}
	if !staged.Eligible() {
		slog.InfoContext(ctx, "Staged message not eligible for categorization, acknowledging",
			"id", staged.ID,
			"kind", staged.Kind)
		return nil
	}

	return w.processMessage(ctx, *staged)
}

// ProcessPending drains one batch of unprocessed staged messages. This is a
// backup mechanism in case AMQP messages are lost; a failing row is logged
// and skipped so the rest of the batch still lands.
func (w *CategorizeWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.FetchUnprocessed(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("fetch unprocessed messages: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	run := uuid.NewString()
	slog.InfoContext(ctx, "Processing pending staged messages",
		"run_id", run,
		"count", len(pending))

	for _, staged := range pending {
		if err := w.processMessage(ctx, staged); err != nil {
			slog.ErrorContext(ctx, "Failed to process staged message",
				"run_id", run,
				"id", staged.ID,
				"error", err)
			continue
		}
	}

	return nil
}

// StartupCheck drains a larger backlog once at worker startup to recover
// from missed events or worker downtime.
func (w *CategorizeWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.FetchUnprocessed(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("fetch unprocessed messages for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending staged messages found on startup")
		return nil
	}

	run := uuid.NewString()
	slog.InfoContext(ctx, "Found pending staged messages on startup, processing...",
		"run_id", run,
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, staged := range pending {
		if err := w.processMessage(ctx, staged); err != nil {
			slog.ErrorContext(ctx, "Failed to process staged message during startup",
				"run_id", run,
				"id", staged.ID,
				"error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup check completed",
		"run_id", run,
		"total", len(pending),
		"processed", successCount,
		"errors", errorCount)

	return nil
}

func (w *CategorizeWorker) processMessage(ctx context.Context, staged core.StagedMessage) error {
	if staged.Amount == nil {
		return fmt.Errorf("staged message %d has no amount", staged.ID)
	}

	isIncome := false
	if staged.IsIncome != nil {
		isIncome = *staged.IsIncome
	}

	description := staged.Description
	if description == "" {
		description = staged.RawText
	}

	category, err := w.categorizer.Categorize(ctx, description, *staged.Amount, isIncome)
	if err != nil {
		return fmt.Errorf("categorize staged message %d: %w", staged.ID, err)
	}

	tx := core.LedgerTransaction{
		StagedMessageID: staged.ID,
		Timestamp:       staged.CreatedAt,
		Amount:          *staged.Amount,
		Currency:        staged.Currency,
		Description:     description,
		Category:        category,
		IsIncome:        isIncome,
		RawText:         staged.RawText,
	}

	id, inserted, err := w.storage.InsertTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("insert transaction for staged message %d: %w", staged.ID, err)
	}

	if inserted && w.mirror != nil {
		tx.ID = id
		ref, err := w.mirror.AppendTransaction(ctx, tx)
		if err != nil {
			// Mirroring is best effort; the ledger row is the source of truth.
			slog.WarnContext(ctx, "Failed to mirror transaction",
				"id", id,
				"error", err)
		} else {
			slog.InfoContext(ctx, "Transaction mirrored",
				"id", id,
				"ref", ref)
		}
	}

	if _, err := w.storage.MarkProcessed(ctx, []int64{staged.ID}); err != nil {
		return fmt.Errorf("mark staged message %d processed: %w", staged.ID, err)
	}

	return nil
}
