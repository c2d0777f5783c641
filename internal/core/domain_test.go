package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in  string
		out TransactionType
		ok  bool
	}{
		{"income", Income, true},
		{"INCOME", Income, true},
		{" Expense ", Expense, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseTransactionType(tc.in)
		if ok != tc.ok || got != tc.out {
			t.Fatalf("%q expected (%q,%v), got (%q,%v)", tc.in, tc.out, tc.ok, got, ok)
		}
	}
}

func TestTransactionCategory(t *testing.T) {
	if got := (Transaction{Description: "Food"}).Category(); got != "Food" {
		t.Fatalf("expected Food, got %q", got)
	}
	if got := (Transaction{Description: "  "}).Category(); got != UncategorizedLabel {
		t.Fatalf("expected %q, got %q", UncategorizedLabel, got)
	}
}

func TestTransactionSigned(t *testing.T) {
	in := Transaction{Type: Income, Amount: decimal.NewFromInt(10)}
	out := Transaction{Type: Expense, Amount: decimal.NewFromInt(10)}
	if !in.Signed().Equal(decimal.NewFromInt(10)) {
		t.Fatalf("income should stay positive, got %s", in.Signed())
	}
	if !out.Signed().Equal(decimal.NewFromInt(-10)) {
		t.Fatalf("expense should be negative, got %s", out.Signed())
	}
	if !out.Amount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("Signed must not change the stored amount")
	}
}

func TestNewTransactionWithID(t *testing.T) {
	d := time.Date(2024, 3, 1, 12, 0, 0, 0, ReferenceLocation)
	n := NewTransaction{Type: Expense, Amount: decimal.RequireFromString("12.50"), Description: "Tea", Date: d}
	tx := n.WithID("abc", "u1")
	if tx.ID != "abc" || tx.UserID != "u1" || tx.Type != Expense || tx.Description != "Tea" {
		t.Fatalf("unexpected record %+v", tx)
	}
	if !tx.Date.Equal(d) || tx.Date.Location() != time.UTC {
		t.Fatalf("date should be the same instant in UTC, got %v", tx.Date)
	}
}
