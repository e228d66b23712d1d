// Package services holds the application services behind the HTTP handlers.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"till/internal/core"
	"till/internal/parse"
	"till/internal/storage"
)

// StagedPublisher announces freshly staged messages to the categorizer.
type StagedPublisher interface {
	PublishStaged(ctx context.Context, id, userID int64) error
}

// IngestService parses free-text messages and stages them. Publishing the
// categorization event is best effort; the categorizer's periodic scan picks
// up anything the queue misses.
type IngestService struct {
	storage   *storage.SQLiteRepository
	publisher StagedPublisher
}

func NewIngestService(storage *storage.SQLiteRepository, publisher StagedPublisher) *IngestService {
	return &IngestService{storage: storage, publisher: publisher}
}

// Ingest parses raw text from a user and appends the result to the staging
// store. Every message is staged, whatever its kind; unparseable text lands
// as an unclear row rather than an error.
func (s *IngestService) Ingest(ctx context.Context, userID int64, text string) (*core.StagedMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty message text")
	}

	if kind, ok := classifyDirective(text); ok {
		return s.stageDirective(ctx, userID, text, kind)
	}

	result := parse.Parse(text)

	kind := result.Kind
	if kind == core.KindTransaction && result.IsIncome != nil && *result.IsIncome {
		kind = core.KindIncome
	}

	staged := core.StagedMessage{
		UserID:      userID,
		RawText:     text,
		Kind:        kind,
		Amount:      result.Amount,
		Currency:    result.Currency,
		Description: result.Description,
		IsIncome:    result.IsIncome,
		Confidence:  result.Confidence,
		CreatedAt:   time.Now(),
	}

	if staged.Kind == core.KindCorrection {
		s.applyCorrectionContext(ctx, &staged)
	}

	id, err := s.storage.AppendStaged(ctx, staged)
	if err != nil {
		return nil, fmt.Errorf("stage message: %w", err)
	}
	staged.ID = id

	if staged.Eligible() && s.publisher != nil {
		if err := s.publisher.PublishStaged(ctx, id, userID); err != nil {
			slog.WarnContext(ctx, "Failed to publish staged message event, periodic scan will pick it up",
				"id", id,
				"error", err)
		}
	}

	return &staged, nil
}

// classifyDirective recognizes channel directives that bypass the parser:
// slash commands and undo requests. Both are staged for audit only.
func classifyDirective(text string) (core.MessageKind, bool) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "/") {
		return core.KindCommand, true
	}
	lower := strings.ToLower(trimmed)
	if lower == "undo" || strings.HasPrefix(lower, "undo ") {
		return core.KindUndo, true
	}
	return "", false
}

func (s *IngestService) stageDirective(ctx context.Context, userID int64, text string, kind core.MessageKind) (*core.StagedMessage, error) {
	staged := core.StagedMessage{
		UserID:    userID,
		RawText:   text,
		Kind:      kind,
		Currency:  parse.DefaultCurrency,
		CreatedAt: time.Now(),
	}

	id, err := s.storage.AppendStaged(ctx, staged)
	if err != nil {
		return nil, fmt.Errorf("stage directive: %w", err)
	}
	staged.ID = id

	return &staged, nil
}

// applyCorrectionContext fills a correction's polarity and description from
// the user's most recently staged transaction. A correction with no prior
// transaction is treated as an expense described by its raw text.
func (s *IngestService) applyCorrectionContext(ctx context.Context, staged *core.StagedMessage) {
	last, err := s.storage.LastTransactionForUser(ctx, staged.UserID)
	if err != nil {
		slog.WarnContext(ctx, "Could not load last transaction for correction context",
			"user_id", staged.UserID,
			"error", err)
	}

	if last != nil {
		staged.IsIncome = last.IsIncome
		if staged.Description == "" {
			staged.Description = last.Description
		}
		slog.InfoContext(ctx, "Correction inherits context from last transaction",
			"user_id", staged.UserID,
			"from_staged_id", last.ID)
		return
	}

	isIncome := false
	staged.IsIncome = &isIncome
	if staged.Description == "" {
		staged.Description = staged.RawText
	}
}
