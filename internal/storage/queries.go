package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// TransactionRow mirrors one row of the transactions table.
type TransactionRow struct {
	ID          string
	UserID      string
	Type        string
	Amount      string
	Description string
	OccurredAt  string
}

const insertTransaction = `
INSERT INTO transactions (id, user_id, type, amount, description, occurred_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, user_id, type, amount, description, occurred_at
`

type InsertTransactionParams struct {
	ID          string
	UserID      string
	Type        string
	Amount      string
	Description string
	OccurredAt  string
}

func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, insertTransaction,
		arg.ID,
		arg.UserID,
		arg.Type,
		arg.Amount,
		arg.Description,
		arg.OccurredAt,
	)
	var i TransactionRow
	err := row.Scan(&i.ID, &i.UserID, &i.Type, &i.Amount, &i.Description, &i.OccurredAt)
	return i, err
}

const listTransactionsByUser = `
SELECT id, user_id, type, amount, description, occurred_at
FROM transactions
WHERE user_id = ?
ORDER BY rowid
`

func (q *Queries) ListTransactionsByUser(ctx context.Context, userID string) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(&i.ID, &i.UserID, &i.Type, &i.Amount, &i.Description, &i.OccurredAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteTransaction = `
DELETE FROM transactions
WHERE id = ? AND user_id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id, userID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countTransactions = `
SELECT COUNT(*) FROM transactions
`

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countTransactions)
	var count int64
	err := row.Scan(&count)
	return count, err
}
