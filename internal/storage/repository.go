package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"financebuddy/internal/core"
	"financebuddy/internal/identity"
	"financebuddy/internal/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteRepository lets the service act as its own transaction service.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	newID   func() string
}

var _ ledger.Ledger = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		newID:   uuid.NewString,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable; used by readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListTransactions implements ledger.TransactionLister
func (r *SQLiteRepository) ListTransactions(ctx context.Context, s identity.Session) ([]core.RawRecord, error) {
	rows, err := r.queries.ListTransactionsByUser(ctx, s.UserID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.RawRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.raw())
	}
	return out, nil
}

// CreateTransaction implements ledger.TransactionWriter
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, s identity.Session, n core.NewTransaction) (core.RawRecord, error) {
	if s.UserID == "" {
		return nil, ledger.ErrUnauthorized
	}
	row, err := r.queries.InsertTransaction(ctx, InsertTransactionParams{
		ID:          r.newID(),
		UserID:      s.UserID,
		Type:        string(n.Type),
		Amount:      n.Amount.String(),
		Description: n.Description,
		OccurredAt:  n.Date.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"user_id", row.UserID,
		"type", row.Type,
		"amount", row.Amount)

	return row.raw(), nil
}

// DeleteTransaction implements ledger.TransactionDeleter
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, s identity.Session, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id, s.UserID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id, "user_id", s.UserID)
	return nil
}

func (row TransactionRow) raw() core.RawRecord {
	return core.RawRecord{
		"id":          row.ID,
		"userId":      row.UserID,
		"type":        row.Type,
		"amount":      json.Number(row.Amount),
		"description": row.Description,
		"date":        row.OccurredAt,
	}
}
