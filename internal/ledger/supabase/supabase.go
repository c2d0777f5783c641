// Package supabase stores transactions in a Supabase (PostgREST) table:
//
//	create table transactions (
//	  id          uuid primary key default gen_random_uuid(),
//	  user_id     text not null,
//	  type        text not null check (type in ('income','expense')),
//	  amount      numeric not null check (amount >= 0),
//	  description text not null default '',
//	  date        timestamptz not null
//	);
package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/supabase-community/supabase-go"

	"financebuddy/internal/core"
	"financebuddy/internal/identity"
	"financebuddy/internal/ledger"
)

type Repository struct {
	client *supabase.Client
	table  string
}

var _ ledger.Ledger = (*Repository)(nil)

// New connects with a service key; rows are scoped by user_id on every query.
func New(url, key, table string) (*Repository, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	if table == "" {
		table = "transactions"
	}
	return &Repository{client: client, table: table}, nil
}

// ListTransactions implements ledger.TransactionLister
func (r *Repository) ListTransactions(ctx context.Context, s identity.Session) ([]core.RawRecord, error) {
	if s.UserID == "" {
		return nil, ledger.ErrUnauthorized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _, err := r.client.From(r.table).
		Select("*", "", false).
		Eq("user_id", s.UserID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	records, err := core.DecodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return records, nil
}

// CreateTransaction implements ledger.TransactionWriter
func (r *Repository) CreateTransaction(ctx context.Context, s identity.Session, n core.NewTransaction) (core.RawRecord, error) {
	if s.UserID == "" {
		return nil, ledger.ErrUnauthorized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := map[string]any{
		"user_id":     s.UserID,
		"type":        string(n.Type),
		"amount":      n.Raw()["amount"],
		"description": n.Description,
		"date":        n.Date.UTC().Format(time.RFC3339Nano),
	}
	data, _, err := r.client.From(r.table).Insert(row, false, "", "representation", "").Execute()
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	created, err := core.DecodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	if len(created) == 0 || created[0] == nil {
		return nil, fmt.Errorf("create transaction: empty response")
	}
	return created[0], nil
}

// DeleteTransaction implements ledger.TransactionDeleter
func (r *Repository) DeleteTransaction(ctx context.Context, s identity.Session, id string) error {
	if s.UserID == "" {
		return ledger.ErrUnauthorized
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, _, err := r.client.From(r.table).
		Delete("representation", "").
		Eq("id", id).
		Eq("user_id", s.UserID).
		Execute()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	deleted, err := core.DecodeRecords(data)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if len(deleted) == 0 {
		return ledger.ErrNotFound
	}
	return nil
}
