package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"till/internal/core"

	"github.com/shopspring/decimal"
)

// AppendStaged stores a parsed message in the staging table and returns its id.
func (r *SQLiteRepository) AppendStaged(ctx context.Context, m core.StagedMessage) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, fmt.Errorf("validate staged message: %w", err)
	}

	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var amount sql.NullString
	if m.Amount != nil {
		amount = sql.NullString{String: core.FormatAmount(*m.Amount), Valid: true}
	}

	var isIncome sql.NullInt64
	if m.IsIncome != nil {
		isIncome = sql.NullInt64{Int64: boolToInt(*m.IsIncome), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO staged_messages (user_id, raw_text, kind, amount, currency, description, is_income, confidence, processed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		m.UserID, m.RawText, string(m.Kind), amount, m.Currency, m.Description, isIncome, m.Confidence, formatTime(createdAt))
	if err != nil {
		return 0, fmt.Errorf("insert staged message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("staged message insert id: %w", err)
	}

	slog.InfoContext(ctx, "Message staged",
		"id", id,
		"user_id", m.UserID,
		"kind", m.Kind,
		"confidence", m.Confidence)

	return id, nil
}

// FetchUnprocessed returns staged messages still awaiting categorization,
// oldest first. Rows without an amount and non-expense kinds are skipped
// since they carry nothing to post to the ledger.
func (r *SQLiteRepository) FetchUnprocessed(ctx context.Context, limit int) ([]core.StagedMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, raw_text, kind, amount, currency, description, is_income, confidence, processed, created_at
		FROM staged_messages
		WHERE processed = 0
		  AND amount IS NOT NULL
		  AND kind NOT IN (?, ?)
		ORDER BY created_at, id
		LIMIT ?`,
		string(core.KindCommand), string(core.KindUndo), limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed staged messages: %w", err)
	}
	defer rows.Close()

	var messages []core.StagedMessage
	for rows.Next() {
		m, err := scanStagedMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staged messages: %w", err)
	}

	return messages, nil
}

// MarkProcessed flags the given staged messages as handled. Rows already
// processed are left untouched, so replays after a crash are harmless.
// Returns the number of rows actually claimed.
func (r *SQLiteRepository) MarkProcessed(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("no staged message ids provided")
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE staged_messages SET processed = 1 WHERE id IN (%s) AND processed = 0`,
			strings.Join(placeholders, ", ")),
		args...)
	if err != nil {
		return 0, fmt.Errorf("mark staged messages processed: %w", err)
	}

	claimed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("staged messages rows affected: %w", err)
	}

	slog.InfoContext(ctx, "Staged messages marked processed",
		"requested", len(ids),
		"claimed", claimed)

	return claimed, nil
}

// GetStagedMessage retrieves a single staged message by id.
func (r *SQLiteRepository) GetStagedMessage(ctx context.Context, id int64) (*core.StagedMessage, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, raw_text, kind, amount, currency, description, is_income, confidence, processed, created_at
		FROM staged_messages
		WHERE id = ?`, id)

	m, err := scanStagedMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("staged message %d not found", id)
		}
		return nil, err
	}
	return &m, nil
}

// LastTransactionForUser returns the most recently staged transaction or
// income row for a user, or nil when the user has none. Corrections inherit
// their polarity and description from this row.
func (r *SQLiteRepository) LastTransactionForUser(ctx context.Context, userID int64) (*core.StagedMessage, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, raw_text, kind, amount, currency, description, is_income, confidence, processed, created_at
		FROM staged_messages
		WHERE user_id = ? AND kind IN (?, ?)
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		userID, string(core.KindTransaction), string(core.KindIncome))

	m, err := scanStagedMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStagedMessage(row rowScanner) (core.StagedMessage, error) {
	var (
		m         core.StagedMessage
		kind      string
		amount    sql.NullString
		isIncome  sql.NullInt64
		processed int64
		createdAt string
	)

	err := row.Scan(&m.ID, &m.UserID, &m.RawText, &kind, &amount, &m.Currency, &m.Description, &isIncome, &m.Confidence, &processed, &createdAt)
	if err != nil {
		return core.StagedMessage{}, fmt.Errorf("scan staged message: %w", err)
	}

	m.Kind = core.MessageKind(kind)
	m.Processed = processed != 0

	if amount.Valid {
		d, err := decimal.NewFromString(amount.String)
		if err != nil {
			return core.StagedMessage{}, fmt.Errorf("parse stored amount %q: %w", amount.String, err)
		}
		m.Amount = &d
	}
	if isIncome.Valid {
		v := isIncome.Int64 != 0
		m.IsIncome = &v
	}

	m.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return core.StagedMessage{}, err
	}

	return m, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
