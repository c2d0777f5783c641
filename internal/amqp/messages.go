package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// EventKind names what happened to a user's transactions.
type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionDeleted EventKind = "transaction.deleted"
	ReportRequested    EventKind = "report.requested"
)

// TransactionEvent is a lightweight notification. It carries ids only; the
// consumer re-reads whatever it needs from the transaction service.
type TransactionEvent struct {
	Kind          EventKind `json:"kind"`
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(kind EventKind, userID, transactionID string) *TransactionEvent {
	return &TransactionEvent{
		Kind:          kind,
		UserID:        userID,
		TransactionID: transactionID,
		Timestamp:     time.Now().UTC(),
	}
}

// Validate rejects events a consumer could not act on.
func (e *TransactionEvent) Validate() error {
	switch e.Kind {
	case TransactionCreated, TransactionDeleted:
		if e.TransactionID == "" {
			return errors.New("transaction event without transaction id")
		}
	case ReportRequested:
	default:
		return errors.New("unknown event kind " + string(e.Kind))
	}
	if e.UserID == "" {
		return errors.New("event without user id")
	}
	return nil
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
