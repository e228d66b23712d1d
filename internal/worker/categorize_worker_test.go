package worker

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"till/internal/amqp"
	"till/internal/categorizer"
	"till/internal/core"
	"till/internal/llm"
	"till/internal/storage"

	"github.com/shopspring/decimal"
)

type scriptedGenerator struct {
	label   string
	failOn  string
	failErr error
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string, _ llm.Options) (string, error) {
	if g.failOn != "" && strings.Contains(prompt, g.failOn) {
		return "", g.failErr
	}
	return g.label, nil
}

type recordingMirror struct {
	appended []core.LedgerTransaction
	err      error
}

func (m *recordingMirror) AppendTransaction(_ context.Context, t core.LedgerTransaction) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.appended = append(m.appended, t)
	return "row-1", nil
}

func newTestWorker(t *testing.T, gen llm.Generator) (*CategorizeWorker, *storage.SQLiteRepository) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "till.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	cat := categorizer.New(gen, time.Second)
	return NewCategorizeWorker(repo, cat, nil, 10), repo
}

func stage(t *testing.T, repo *storage.SQLiteRepository, desc, amount string, createdAt time.Time) int64 {
	t.Helper()

	d := decimal.RequireFromString(amount)
	isIncome := false
	id, err := repo.AppendStaged(context.Background(), core.StagedMessage{
		UserID:      1,
		RawText:     desc + " " + amount,
		Kind:        core.KindTransaction,
		Amount:      &d,
		Currency:    "USD",
		Description: desc,
		IsIncome:    &isIncome,
		Confidence:  2,
		CreatedAt:   createdAt,
	})
	if err != nil {
		t.Fatalf("AppendStaged() error = %v", err)
	}
	return id
}

func TestProcessPendingPostsToLedger(t *testing.T) {
	w, repo := newTestWorker(t, &scriptedGenerator{label: "Food & Dining"})
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	stage(t, repo, "coffee", "5.00", base)
	stage(t, repo, "lunch", "20.00", base.Add(time.Minute))

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}

	period, _ := core.CustomPeriod(base, base)
	transactions, err := repo.ListByPeriod(ctx, period)
	if err != nil {
		t.Fatalf("ListByPeriod() error = %v", err)
	}
	if len(transactions) != 2 {
		t.Fatalf("ledger has %d transactions, want 2", len(transactions))
	}
	if transactions[0].Category != "Food & Dining" {
		t.Errorf("category = %q, want %q", transactions[0].Category, "Food & Dining")
	}

	pending, err := repo.FetchUnprocessed(ctx, 10)
	if err != nil {
		t.Fatalf("FetchUnprocessed() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("%d staged messages still pending, want 0", len(pending))
	}
}

func TestProcessPendingSkipsFailingRow(t *testing.T) {
	gen := &scriptedGenerator{
		label:   "Food & Dining",
		failOn:  "flaky item",
		failErr: errors.New("model unavailable"),
	}
	w, repo := newTestWorker(t, gen)
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	stage(t, repo, "flaky item", "5.00", base)
	okID := stage(t, repo, "lunch", "20.00", base.Add(time.Minute))

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}

	pending, err := repo.FetchUnprocessed(ctx, 10)
	if err != nil {
		t.Fatalf("FetchUnprocessed() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("%d staged messages pending, want the failed row only", len(pending))
	}
	if pending[0].Description != "flaky item" {
		t.Errorf("pending row = %q, want the failed row", pending[0].Description)
	}
	if pending[0].ID == okID {
		t.Error("successful row still pending")
	}
}

func TestReplayAfterCrashDoesNotDuplicate(t *testing.T) {
	w, repo := newTestWorker(t, &scriptedGenerator{label: "Food & Dining"})
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	id := stage(t, repo, "coffee", "5.00", base)

	// Simulate a crash between the ledger insert and the processed flag:
	// the transaction exists, the staged row still reads unprocessed.
	_, _, err := repo.InsertTransaction(ctx, core.LedgerTransaction{
		StagedMessageID: id,
		Timestamp:       base,
		Amount:          decimal.RequireFromString("5.00"),
		Currency:        "USD",
		Description:     "coffee",
		Category:        "Food & Dining",
		RawText:         "coffee 5.00",
	})
	if err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}

	if err := w.HandleStagedMessage(ctx, &amqp.StagedMessageEvent{ID: id}); err != nil {
		t.Fatalf("HandleStagedMessage() replay error = %v", err)
	}

	period, _ := core.CustomPeriod(base, base)
	transactions, err := repo.ListByPeriod(ctx, period)
	if err != nil {
		t.Fatalf("ListByPeriod() error = %v", err)
	}
	if len(transactions) != 1 {
		t.Errorf("ledger has %d transactions after replay, want 1", len(transactions))
	}

	pending, err := repo.FetchUnprocessed(ctx, 10)
	if err != nil {
		t.Fatalf("FetchUnprocessed() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("%d staged messages still pending after replay, want 0", len(pending))
	}
}

func TestHandleStagedMessageAlreadyProcessed(t *testing.T) {
	w, repo := newTestWorker(t, &scriptedGenerator{label: "Food & Dining"})
	ctx := context.Background()

	id := stage(t, repo, "coffee", "5.00", time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	if _, err := repo.MarkProcessed(ctx, []int64{id}); err != nil {
		t.Fatalf("MarkProcessed() error = %v", err)
	}

	if err := w.HandleStagedMessage(ctx, &amqp.StagedMessageEvent{ID: id}); err != nil {
		t.Errorf("HandleStagedMessage() on processed row error = %v, want nil ack", err)
	}
}

func TestMirrorFailureIsBestEffort(t *testing.T) {
	w, repo := newTestWorker(t, &scriptedGenerator{label: "Food & Dining"})
	w.mirror = &recordingMirror{err: errors.New("sheets unavailable")}
	ctx := context.Background()

	stage(t, repo, "coffee", "5.00", time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}

	pending, err := repo.FetchUnprocessed(ctx, 10)
	if err != nil {
		t.Fatalf("FetchUnprocessed() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("%d staged messages pending despite mirror failure, want 0", len(pending))
	}
}

func TestMirrorReceivesInsertedTransaction(t *testing.T) {
	mirror := &recordingMirror{}
	w, repo := newTestWorker(t, &scriptedGenerator{label: "Food & Dining"})
	w.mirror = mirror
	ctx := context.Background()

	stage(t, repo, "coffee", "5.00", time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	// Replays must not mirror twice.
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending() second run error = %v", err)
	}

	if len(mirror.appended) != 1 {
		t.Fatalf("mirror received %d transactions, want 1", len(mirror.appended))
	}
	if mirror.appended[0].Category != "Food & Dining" {
		t.Errorf("mirrored category = %q, want %q", mirror.appended[0].Category, "Food & Dining")
	}
}
