package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"till/internal/core"

	"github.com/shopspring/decimal"
)

// InsertTransaction posts a categorized transaction to the ledger. Each
// staged message can produce at most one ledger row; redelivered messages
// report inserted=false and return the existing row's id.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.LedgerTransaction) (int64, bool, error) {
	if err := t.Validate(); err != nil {
		return 0, false, fmt.Errorf("validate transaction: %w", err)
	}

	createdAt := time.Now()
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO transactions (staged_message_id, timestamp, amount, currency, description, category, is_income, raw_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.StagedMessageID, formatTime(t.Timestamp), core.FormatAmount(t.Amount), t.Currency,
		t.Description, t.Category, boolToInt(t.IsIncome), t.RawText, formatTime(createdAt))
	if err != nil {
		return 0, false, fmt.Errorf("insert transaction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("transaction rows affected: %w", err)
	}

	if affected == 0 {
		var existingID int64
		err := r.db.QueryRowContext(ctx,
			`SELECT id FROM transactions WHERE staged_message_id = ?`,
			t.StagedMessageID).Scan(&existingID)
		if err != nil {
			return 0, false, fmt.Errorf("lookup existing transaction: %w", err)
		}
		slog.InfoContext(ctx, "Transaction already in ledger, skipping",
			"staged_message_id", t.StagedMessageID,
			"id", existingID)
		return existingID, false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("transaction insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction posted to ledger",
		"id", id,
		"staged_message_id", t.StagedMessageID,
		"category", t.Category,
		"amount", core.FormatAmount(t.Amount),
		"is_income", t.IsIncome)

	return id, true, nil
}

// ListByPeriod returns ledger transactions whose timestamp falls within the
// period, end date inclusive, ordered oldest first.
func (r *SQLiteRepository) ListByPeriod(ctx context.Context, period core.Period) ([]core.LedgerTransaction, error) {
	endExclusive := period.End.AddDate(0, 0, 1)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, staged_message_id, timestamp, amount, currency, description, category, is_income, raw_text
		FROM transactions
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp, id`,
		formatTime(period.Start), formatTime(endExclusive))
	if err != nil {
		return nil, fmt.Errorf("query transactions by period: %w", err)
	}
	defer rows.Close()

	var transactions []core.LedgerTransaction
	for rows.Next() {
		var (
			t         core.LedgerTransaction
			timestamp string
			amount    string
			isIncome  int64
		)
		if err := rows.Scan(&t.ID, &t.StagedMessageID, &timestamp, &amount, &t.Currency, &t.Description, &t.Category, &isIncome, &t.RawText); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		t.Timestamp, err = parseTime(timestamp)
		if err != nil {
			return nil, err
		}
		t.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse stored amount %q: %w", amount, err)
		}
		t.IsIncome = isIncome != 0

		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return transactions, nil
}
