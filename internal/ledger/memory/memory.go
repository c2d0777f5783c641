package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"financebuddy/internal/core"
	"financebuddy/internal/identity"
	"financebuddy/internal/ledger"
)

// Store keeps canonical records per user in process memory.
type Store struct {
	mu     sync.Mutex
	byUser map[string][]core.Transaction
	newID  func() string
}

func New() *Store {
	return &Store{
		byUser: make(map[string][]core.Transaction),
		newID:  func() string { return uuid.NewString() },
	}
}

// NewFromFile seeds the store from a JSON array of raw records, each
// carrying its owner in "userId". A missing file yields an empty store;
// records that fail normalization are skipped and counted.
func NewFromFile(path string) (*Store, int, error) {
	s := New()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read seed file: %w", err)
	}
	records, err := core.DecodeRecords(data)
	if err != nil {
		return nil, 0, fmt.Errorf("decode seed file: %w", err)
	}
	txs, rejected, err := core.NormalizeAll(records)
	if err != nil {
		return nil, 0, err
	}
	for _, tx := range txs {
		s.byUser[tx.UserID] = append(s.byUser[tx.UserID], tx)
	}
	return s, len(rejected), nil
}

// ListTransactions implements ledger.TransactionLister
func (s *Store) ListTransactions(_ context.Context, sess identity.Session) ([]core.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := s.byUser[sess.UserID]
	out := make([]core.RawRecord, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.Raw())
	}
	return out, nil
}

// CreateTransaction implements ledger.TransactionWriter
func (s *Store) CreateTransaction(_ context.Context, sess identity.Session, n core.NewTransaction) (core.RawRecord, error) {
	if sess.UserID == "" {
		return nil, ledger.ErrUnauthorized
	}
	tx := n.WithID(s.newID(), sess.UserID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[sess.UserID] = append(s.byUser[sess.UserID], tx)
	return tx.Raw(), nil
}

// DeleteTransaction implements ledger.TransactionDeleter
func (s *Store) DeleteTransaction(_ context.Context, sess identity.Session, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := s.byUser[sess.UserID]
	for i, tx := range txs {
		if tx.ID == id {
			s.byUser[sess.UserID] = append(txs[:i:i], txs[i+1:]...)
			return nil
		}
	}
	return ledger.ErrNotFound
}
