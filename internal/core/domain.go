package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// UncategorizedLabel is the bucket used for expenses without a description.
const UncategorizedLabel = "Uncategorized"

// ReferenceLocation is the zone used for calendar bucketing and display.
// Asia/Kolkata has had a fixed +05:30 offset since 1945.
var ReferenceLocation = time.FixedZone("IST", 5*60*60+30*60)

type (
	TransactionType string

	// RawRecord is a transaction as returned by the transaction service,
	// before any validation.
	RawRecord = map[string]any

	// Transaction is a canonical, validated record. Values are never mutated
	// after normalization.
	Transaction struct {
		ID          string
		Type        TransactionType
		Amount      decimal.Decimal
		Description string
		Date        time.Time
		UserID      string
	}

	// NewTransaction is a validated create request; the service assigns the id.
	NewTransaction struct {
		Type        TransactionType
		Amount      decimal.Decimal
		Description string
		Date        time.Time
	}
)

var (
	ErrInvalidInput    = errors.New("invalid input: expected a list of records")
	ErrInvalidPageSize = errors.New("page size must be at least 1")
	ErrDuplicateID     = errors.New("duplicate transaction id")
)

// ParseTransactionType accepts "income" or "expense" in any case.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, true
	case Expense:
		return Expense, true
	}
	return "", false
}

func (t TransactionType) String() string { return string(t) }

// Category returns the aggregation label for the transaction.
func (t Transaction) Category() string {
	if strings.TrimSpace(t.Description) == "" {
		return UncategorizedLabel
	}
	return t.Description
}

// Signed returns the amount with the sign implied by the type.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Equal reports whether two records carry the same values.
func (t Transaction) Equal(o Transaction) bool {
	return t.ID == o.ID &&
		t.Type == o.Type &&
		t.Amount.Equal(o.Amount) &&
		t.Description == o.Description &&
		t.Date.Equal(o.Date) &&
		t.UserID == o.UserID
}

// Raw re-serializes the record in the shape the transaction service uses.
// Normalize(t.Raw()) yields a record equal to t.
func (t Transaction) Raw() RawRecord {
	r := RawRecord{
		"id":          t.ID,
		"type":        string(t.Type),
		"amount":      amountNumber(t.Amount),
		"description": t.Description,
		"date":        t.Date.UTC().Format(time.RFC3339Nano),
	}
	if t.UserID != "" {
		r["userId"] = t.UserID
	}
	return r
}

// Raw returns the request body sent to the transaction service.
func (n NewTransaction) Raw() RawRecord {
	return RawRecord{
		"type":        string(n.Type),
		"amount":      amountNumber(n.Amount),
		"description": n.Description,
		"date":        n.Date.UTC().Format(time.RFC3339Nano),
	}
}

// WithID turns a create request into a canonical record.
func (n NewTransaction) WithID(id, userID string) Transaction {
	return Transaction{
		ID:          id,
		Type:        n.Type,
		Amount:      n.Amount,
		Description: n.Description,
		Date:        n.Date.UTC(),
		UserID:      userID,
	}
}
