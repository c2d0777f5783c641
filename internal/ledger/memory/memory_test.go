package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"financebuddy/internal/core"
	"financebuddy/internal/identity"
	"financebuddy/internal/ledger"
)

var _ ledger.Ledger = (*Store)(nil)

func TestStoreCreateListDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	alice := identity.Session{UserID: "alice"}
	bob := identity.Session{UserID: "bob"}

	rec, err := s.CreateTransaction(ctx, alice, core.NewTransaction{
		Type:   core.Expense,
		Amount: decimal.RequireFromString("99.90"),
		Date:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tx, err := core.Normalize(rec)
	if err != nil {
		t.Fatalf("created record should normalize: %v", err)
	}
	if tx.ID == "" || tx.UserID != "alice" {
		t.Fatalf("unexpected record %+v", tx)
	}

	list, _ := s.ListTransactions(ctx, alice)
	if len(list) != 1 {
		t.Fatalf("expected 1 record for alice, got %d", len(list))
	}
	if list, _ := s.ListTransactions(ctx, bob); len(list) != 0 {
		t.Fatalf("bob must not see alice's records")
	}

	if err := s.DeleteTransaction(ctx, bob, tx.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("bob deleting alice's record: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, alice, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if list, _ := s.ListTransactions(ctx, alice); len(list) != 0 {
		t.Fatalf("expected empty list after delete, got %d", len(list))
	}
}

func TestCreateRequiresUser(t *testing.T) {
	if _, err := New().CreateTransaction(context.Background(), identity.Session{}, core.NewTransaction{}); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	s, skipped, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil || skipped != 0 {
		t.Fatalf("missing file should give an empty store, got skipped=%d err=%v", skipped, err)
	}
	if list, _ := s.ListTransactions(context.Background(), identity.Session{UserID: "u1"}); len(list) != 0 {
		t.Fatalf("expected empty store")
	}

	path := filepath.Join(dir, "seed.json")
	seed := `[
		{"id":"1","userId":"u1","type":"income","amount":1000,"date":"2024-01-05T10:00:00Z"},
		{"id":"2","userId":"u1","type":"expense","amount":"300","date":"2024-01-20T10:00:00Z"},
		{"id":"3","userId":"u2","type":"expense","amount":20,"description":"Tea","date":"2024-01-21T10:00:00Z"}
	]`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, skipped, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if skipped != 1 {
		t.Fatalf("expected the string amount to be skipped, got %d", skipped)
	}
	if list, _ := s.ListTransactions(context.Background(), identity.Session{UserID: "u1"}); len(list) != 1 {
		t.Fatalf("expected 1 record for u1, got %d", len(list))
	}

	if err := os.WriteFile(path, []byte(`{"not":"a list"}`), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if _, _, err := NewFromFile(path); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
