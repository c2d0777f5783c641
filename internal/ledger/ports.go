// Package ledger defines the ports to the transaction service: the system
// of record that assigns ids and stores transactions. Adapters return raw
// records; validation happens in core.
package ledger

import (
	"context"
	"errors"

	"financebuddy/internal/core"
	"financebuddy/internal/identity"
)

var (
	// ErrNotFound means the id does not exist for the session's user.
	ErrNotFound = errors.New("transaction not found")
	// ErrUnauthorized means the service refused the session's credentials.
	ErrUnauthorized = errors.New("transaction service refused credentials")
)

// Ports for outbound adapters.
type (
	TransactionLister interface {
		ListTransactions(ctx context.Context, s identity.Session) ([]core.RawRecord, error)
	}

	TransactionWriter interface {
		// CreateTransaction stores n and returns the record as the service
		// now holds it, id included.
		CreateTransaction(ctx context.Context, s identity.Session, n core.NewTransaction) (core.RawRecord, error)
	}

	TransactionDeleter interface {
		// DeleteTransaction returns nil only once the service confirmed the
		// deletion.
		DeleteTransaction(ctx context.Context, s identity.Session, id string) error
	}

	Ledger interface {
		TransactionLister
		TransactionWriter
		TransactionDeleter
	}
)
