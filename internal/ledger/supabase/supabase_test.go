package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"financebuddy/internal/core"
	"financebuddy/internal/identity"
	"financebuddy/internal/ledger"
)

func newTestRepo(t *testing.T, h http.HandlerFunc) *Repository {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	repo, err := New(srv.URL, "service-key", "")
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	return repo
}

var alice = identity.Session{UserID: "alice"}

func TestListTransactionsScopesByUser(t *testing.T) {
	repo := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/rest/v1/transactions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("user_id"); got != "eq.alice" {
			t.Errorf("expected user filter, got %q", got)
		}
		io.WriteString(w, `[{"id":"1","user_id":"alice","type":"expense","amount":12.5,"description":"Tea","date":"2024-01-05T10:00:00+00:00"}]`)
	})
	recs, err := repo.ListTransactions(context.Background(), alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	tx, err := core.Normalize(recs[0])
	if err != nil || tx.UserID != "alice" || tx.Amount.String() != "12.5" {
		t.Fatalf("unexpected record %+v (%v)", tx, err)
	}
}

func TestCreateTransactionSendsRow(t *testing.T) {
	repo := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var row map[string]any
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			t.Errorf("decode row: %v", err)
		}
		if row["user_id"] != "alice" || row["amount"] != 250.0 {
			t.Errorf("unexpected row %v", row)
		}
		row["id"] = "generated"
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]any{row})
	})
	rec, err := repo.CreateTransaction(context.Background(), alice, core.NewTransaction{
		Type:   core.Income,
		Amount: decimal.NewFromInt(250),
		Date:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tx, err := core.Normalize(rec); err != nil || tx.ID != "generated" {
		t.Fatalf("unexpected record %+v (%v)", tx, err)
	}
}

func TestDeleteTransactionNotFound(t *testing.T) {
	repo := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		io.WriteString(w, `[]`)
	})
	if err := repo.DeleteTransaction(context.Background(), alice, "missing"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRequiresUser(t *testing.T) {
	repo := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected")
	})
	if _, err := repo.ListTransactions(context.Background(), identity.Session{}); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
