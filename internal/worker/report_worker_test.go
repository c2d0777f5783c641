package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"financebuddy/internal/amqp"
	"financebuddy/internal/core"
	"financebuddy/internal/identity"
	"financebuddy/internal/ledger/memory"
	"financebuddy/internal/log"
	"financebuddy/internal/report"
	"financebuddy/internal/services"
	sheetsmem "financebuddy/internal/sheets/memory"
)

type failingExporter struct{ calls int }

func (f *failingExporter) Export(context.Context, report.Data) (string, error) {
	f.calls++
	return "", errors.New("quota exceeded")
}

func setup(t *testing.T) (*memory.Store, *services.TransactionService, *sheetsmem.Exporter, *ReportWorker) {
	t.Helper()
	logger := log.New(log.Config{Output: io.Discard})
	store := memory.New()
	svc := services.NewTransactionService(store, nil, services.Options{Logger: logger})
	exp := sheetsmem.New()
	w := NewReportWorker(svc, exp, DefaultConfig(), logger)
	return store, svc, exp, w
}

func add(t *testing.T, store *memory.Store, userID string, typ core.TransactionType, amount int64) string {
	t.Helper()
	raw, err := store.CreateTransaction(context.Background(), identity.Session{UserID: userID}, core.NewTransaction{
		Type:   typ,
		Amount: decimal.NewFromInt(amount),
		Date:   time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	return raw["id"].(string)
}

func TestHandleEvent_CreatedExports(t *testing.T) {
	store, _, exp, w := setup(t)
	id := add(t, store, "u1", core.Income, 500)

	err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(amqp.TransactionCreated, "u1", id))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	d, ok := exp.Latest("u1")
	if !ok {
		t.Fatal("expected an export for u1")
	}
	if d.Snapshot.TotalIncome.String() != "500" || len(d.Transactions) != 1 {
		t.Errorf("unexpected export %+v", d.Snapshot)
	}
	if got := w.Users(); len(got) != 1 || got[0] != "u1" {
		t.Errorf("Users() = %v", got)
	}
}

func TestHandleEvent_DeletedRemovesLocally(t *testing.T) {
	store, _, exp, w := setup(t)
	keep := add(t, store, "u1", core.Expense, 10)
	gone := add(t, store, "u1", core.Expense, 20)
	ctx := context.Background()

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.TransactionCreated, "u1", gone)); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteTransaction(ctx, identity.Session{UserID: "u1"}, gone); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.TransactionDeleted, "u1", gone)); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	d, _ := exp.Latest("u1")
	if len(d.Transactions) != 1 || d.Transactions[0].ID != keep {
		t.Errorf("unexpected transactions after delete %v", d.Transactions)
	}
	if exp.Count() != 2 {
		t.Errorf("expected 2 exports, got %d", exp.Count())
	}
}

func TestHandleEvent_DeleteForUnknownBookRefreshes(t *testing.T) {
	store, _, exp, w := setup(t)
	add(t, store, "u2", core.Income, 1)

	if err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(amqp.TransactionDeleted, "u2", "missing")); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if _, ok := exp.Latest("u2"); !ok {
		t.Error("expected an export after the initial refresh")
	}
}

func TestRefreshAll_SkipsUnchanged(t *testing.T) {
	store, _, exp, w := setup(t)
	id := add(t, store, "u1", core.Income, 5)
	ctx := context.Background()

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.TransactionCreated, "u1", id)); err != nil {
		t.Fatal(err)
	}
	w.RefreshAll(ctx)
	if exp.Count() != 1 {
		t.Errorf("unchanged book should not be exported again, got %d exports", exp.Count())
	}

	add(t, store, "u1", core.Expense, 2)
	w.RefreshAll(ctx)
	if exp.Count() != 2 {
		t.Errorf("changed book should be exported, got %d exports", exp.Count())
	}

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.ReportRequested, "u1", "")); err != nil {
		t.Fatal(err)
	}
	if exp.Count() != 3 {
		t.Errorf("report request should force an export, got %d exports", exp.Count())
	}
}

func TestHandleEvent_ExportFailureIsReturned(t *testing.T) {
	logger := log.New(log.Config{Output: io.Discard})
	store := memory.New()
	svc := services.NewTransactionService(store, nil, services.Options{Logger: logger})
	exp := &failingExporter{}
	w := NewReportWorker(svc, exp, Config{}, logger)
	id := add(t, store, "u1", core.Income, 5)

	if err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(amqp.TransactionCreated, "u1", id)); err == nil {
		t.Fatal("expected the export error so the message is requeued")
	}
	if exp.calls != 1 {
		t.Errorf("expected one export attempt, got %d", exp.calls)
	}
}

func TestReportWorker_StartStop(t *testing.T) {
	_, _, _, w := setup(t)
	ctx := context.Background()

	if w.IsRunning() {
		t.Fatal("worker should not run before Start")
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}
	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if w.IsRunning() {
		t.Error("worker should be stopped")
	}
}
