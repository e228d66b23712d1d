package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"till/internal/core"

	"github.com/shopspring/decimal"
)

// ReplaceSummary stores a period summary, replacing any previous summary for
// the same period. Re-running a summary job refreshes the stored row.
func (r *SQLiteRepository) ReplaceSummary(ctx context.Context, s core.PeriodSummary) (int64, error) {
	breakdown, err := json.Marshal(s.Breakdown)
	if err != nil {
		return 0, fmt.Errorf("marshal summary breakdown: %w", err)
	}

	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO period_summaries
			(period_type, period_name, start_date, end_date, total_income, total_expenses, net_position,
			 transaction_count, top_category, top_category_amount, breakdown, insight, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(s.PeriodType), s.PeriodName, formatDate(s.Start), formatDate(s.End),
		core.FormatAmount(s.TotalIncome), core.FormatAmount(s.TotalExpenses), core.FormatAmount(s.NetPosition),
		s.TransactionCount, s.TopCategory, core.FormatAmount(s.TopCategoryAmount),
		string(breakdown), s.Insight, formatTime(createdAt))
	if err != nil {
		return 0, fmt.Errorf("replace period summary: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("period summary insert id: %w", err)
	}

	slog.InfoContext(ctx, "Period summary stored",
		"id", id,
		"period_type", s.PeriodType,
		"period_name", s.PeriodName,
		"transaction_count", s.TransactionCount)

	return id, nil
}

// GetSummary retrieves the stored summary for an exact period, or nil when
// none has been generated yet.
func (r *SQLiteRepository) GetSummary(ctx context.Context, periodType core.PeriodType, start, end time.Time) (*core.PeriodSummary, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, period_type, period_name, start_date, end_date, total_income, total_expenses, net_position,
		       transaction_count, top_category, top_category_amount, breakdown, insight, created_at
		FROM period_summaries
		WHERE period_type = ? AND start_date = ? AND end_date = ?`,
		string(periodType), formatDate(start), formatDate(end))

	s, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListSummaries returns stored summaries, newest period first. An empty
// periodType returns summaries of every type.
func (r *SQLiteRepository) ListSummaries(ctx context.Context, periodType core.PeriodType, limit int) ([]core.PeriodSummary, error) {
	query := `
		SELECT id, period_type, period_name, start_date, end_date, total_income, total_expenses, net_position,
		       transaction_count, top_category, top_category_amount, breakdown, insight, created_at
		FROM period_summaries`
	args := []any{}
	if periodType != "" {
		query += ` WHERE period_type = ?`
		args = append(args, string(periodType))
	}
	query += ` ORDER BY start_date DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query period summaries: %w", err)
	}
	defer rows.Close()

	var summaries []core.PeriodSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate period summaries: %w", err)
	}

	return summaries, nil
}

func scanSummary(row rowScanner) (*core.PeriodSummary, error) {
	var (
		s                 core.PeriodSummary
		periodType        string
		startDate         string
		endDate           string
		totalIncome       string
		totalExpenses     string
		netPosition       string
		topCategoryAmount string
		breakdown         string
		createdAt         string
	)

	err := row.Scan(&s.ID, &periodType, &s.PeriodName, &startDate, &endDate,
		&totalIncome, &totalExpenses, &netPosition,
		&s.TransactionCount, &s.TopCategory, &topCategoryAmount,
		&breakdown, &s.Insight, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan period summary: %w", err)
	}

	s.PeriodType = core.PeriodType(periodType)

	if s.Start, err = parseDate(startDate); err != nil {
		return nil, err
	}
	if s.End, err = parseDate(endDate); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	if s.TotalIncome, err = parseStoredDecimal("total_income", totalIncome); err != nil {
		return nil, err
	}
	if s.TotalExpenses, err = parseStoredDecimal("total_expenses", totalExpenses); err != nil {
		return nil, err
	}
	if s.NetPosition, err = parseStoredDecimal("net_position", netPosition); err != nil {
		return nil, err
	}
	if s.TopCategoryAmount, err = parseStoredDecimal("top_category_amount", topCategoryAmount); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(breakdown), &s.Breakdown); err != nil {
		return nil, fmt.Errorf("unmarshal summary breakdown: %w", err)
	}

	return &s, nil
}

func parseStoredDecimal(column, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse stored %s %q: %w", column, raw, err)
	}
	return d, nil
}
