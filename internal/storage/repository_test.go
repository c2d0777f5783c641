package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"financebuddy/internal/core"
	"financebuddy/internal/identity"
	"financebuddy/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := identity.Session{UserID: "alice"}

	inputs := []core.NewTransaction{
		{Type: core.Income, Amount: decimal.RequireFromString("1000"), Date: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)},
		{Type: core.Expense, Amount: decimal.RequireFromString("0.10"), Description: "Tea", Date: time.Date(2024, 1, 20, 10, 0, 0, 0, core.ReferenceLocation)},
	}
	for _, in := range inputs {
		if _, err := repo.CreateTransaction(ctx, alice, in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	raws, err := repo.ListTransactions(ctx, alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	txs, rejected, err := core.NormalizeAll(raws)
	if err != nil || len(rejected) != 0 {
		t.Fatalf("normalize: %v %v", rejected, err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(txs))
	}
	if txs[0].Type != core.Income || txs[1].Description != "Tea" {
		t.Fatalf("records out of insertion order: %+v", txs)
	}
	if !txs[1].Amount.Equal(decimal.RequireFromString("0.1")) || !txs[1].Date.Equal(inputs[1].Date) {
		t.Fatalf("amount or date changed in storage: %+v", txs[1])
	}
	if txs[0].UserID != "alice" {
		t.Fatalf("expected owner alice, got %q", txs[0].UserID)
	}
}

func TestSQLiteScopesByUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := identity.Session{UserID: "alice"}
	bob := identity.Session{UserID: "bob"}

	rec, err := repo.CreateTransaction(ctx, alice, core.NewTransaction{Type: core.Expense, Amount: decimal.NewFromInt(5), Date: time.Now()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := rec["id"].(string)

	if list, _ := repo.ListTransactions(ctx, bob); len(list) != 0 {
		t.Fatalf("bob sees %d of alice's records", len(list))
	}
	if err := repo.DeleteTransaction(ctx, bob, id); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for bob, got %v", err)
	}
	if err := repo.DeleteTransaction(ctx, alice, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, alice, id); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestCreateRequiresUser(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.CreateTransaction(context.Background(), identity.Session{}, core.NewTransaction{Type: core.Income}); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
