package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"till/internal/core"
	"till/internal/storage"
)

type recordingPublisher struct {
	published []int64
	err       error
}

func (p *recordingPublisher) PublishStaged(_ context.Context, id, _ int64) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, id)
	return nil
}

func newTestService(t *testing.T, pub StagedPublisher) (*IngestService, *storage.SQLiteRepository) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "till.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return NewIngestService(repo, pub), repo
}

func TestIngestStagesTransaction(t *testing.T) {
	pub := &recordingPublisher{}
	svc, repo := newTestService(t, pub)
	ctx := context.Background()

	staged, err := svc.Ingest(ctx, 1, "Coffee 5 dollars")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if staged.Kind != core.KindTransaction {
		t.Errorf("Kind = %q, want transaction", staged.Kind)
	}
	if staged.Amount == nil || staged.Amount.StringFixed(2) != "5.00" {
		t.Errorf("Amount = %v, want 5.00", staged.Amount)
	}
	if staged.ID == 0 {
		t.Error("staged ID not set")
	}

	if len(pub.published) != 1 || pub.published[0] != staged.ID {
		t.Errorf("published = %v, want [%d]", pub.published, staged.ID)
	}

	pending, err := repo.FetchUnprocessed(ctx, 10)
	if err != nil {
		t.Fatalf("FetchUnprocessed() error = %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("%d messages pending, want 1", len(pending))
	}
}

func TestIngestStagesIncomeKind(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, pub)

	staged, err := svc.Ingest(context.Background(), 1, "Received salary 2500")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if staged.Kind != core.KindIncome {
		t.Errorf("Kind = %q, want income", staged.Kind)
	}
	if staged.IsIncome == nil || !*staged.IsIncome {
		t.Errorf("IsIncome = %v, want true", staged.IsIncome)
	}
	if len(pub.published) != 1 {
		t.Errorf("published = %v, want one message", pub.published)
	}
}

func TestIngestRejectsEmptyText(t *testing.T) {
	svc, _ := newTestService(t, nil)

	if _, err := svc.Ingest(context.Background(), 1, "   "); err == nil {
		t.Error("Ingest() expected error for blank text, got nil")
	}
}

func TestIngestStagesUnclearWithoutPublishing(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, pub)

	staged, err := svc.Ingest(context.Background(), 1, "asdf")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if staged.Kind != core.KindUnclear {
		t.Errorf("Kind = %q, want unclear", staged.Kind)
	}
	if staged.Amount != nil {
		t.Errorf("Amount = %v, want nil", staged.Amount)
	}
	if len(pub.published) != 0 {
		t.Errorf("unclear message published %v, want none", pub.published)
	}
}

func TestIngestPublishFailureIsBestEffort(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, repo := newTestService(t, pub)
	ctx := context.Background()

	staged, err := svc.Ingest(ctx, 1, "Coffee 5 dollars")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if staged.ID == 0 {
		t.Error("staged ID not set despite publish failure")
	}

	pending, err := repo.FetchUnprocessed(ctx, 10)
	if err != nil {
		t.Fatalf("FetchUnprocessed() error = %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("%d messages pending, want 1", len(pending))
	}
}

func TestIngestStagesDirectivesForAuditOnly(t *testing.T) {
	pub := &recordingPublisher{}
	svc, repo := newTestService(t, pub)
	ctx := context.Background()

	tests := []struct {
		text string
		kind core.MessageKind
	}{
		{"/summary weekly", core.KindCommand},
		{"undo", core.KindUndo},
		{"Undo last entry", core.KindUndo},
	}

	for _, tt := range tests {
		staged, err := svc.Ingest(ctx, 1, tt.text)
		if err != nil {
			t.Fatalf("Ingest(%q) error = %v", tt.text, err)
		}
		if staged.Kind != tt.kind {
			t.Errorf("Ingest(%q) kind = %q, want %q", tt.text, staged.Kind, tt.kind)
		}
	}

	if len(pub.published) != 0 {
		t.Errorf("directives published %v, want none", pub.published)
	}
	pending, err := repo.FetchUnprocessed(ctx, 10)
	if err != nil {
		t.Fatalf("FetchUnprocessed() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("%d directives reached the categorization queue, want 0", len(pending))
	}
}

func TestIngestCorrectionInheritsFromLastTransaction(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, 1, "Earned 200 from client"); err != nil {
		t.Fatalf("Ingest(income) error = %v", err)
	}

	staged, err := svc.Ingest(ctx, 1, "Actually 250")
	if err != nil {
		t.Fatalf("Ingest(correction) error = %v", err)
	}

	if staged.Kind != core.KindCorrection {
		t.Fatalf("Kind = %q, want correction", staged.Kind)
	}
	if staged.Amount == nil || staged.Amount.StringFixed(2) != "250.00" {
		t.Errorf("Amount = %v, want 250.00", staged.Amount)
	}
	if staged.IsIncome == nil || !*staged.IsIncome {
		t.Errorf("IsIncome = %v, want inherited true", staged.IsIncome)
	}
	if staged.Description != "client" {
		t.Errorf("Description = %q, want inherited %q", staged.Description, "client")
	}
}

func TestIngestCorrectionWithoutHistoryDefaultsToExpense(t *testing.T) {
	svc, _ := newTestService(t, nil)

	staged, err := svc.Ingest(context.Background(), 9, "Actually 12.50")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if staged.IsIncome == nil || *staged.IsIncome {
		t.Errorf("IsIncome = %v, want default false", staged.IsIncome)
	}
	if staged.Description != staged.RawText {
		t.Errorf("Description = %q, want raw text fallback", staged.Description)
	}
}
