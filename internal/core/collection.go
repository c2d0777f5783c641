package core

import (
	"fmt"
	"time"
)

// Collection is an immutable, ordered set of canonical records keyed by id.
// Every change returns a new Collection; readers holding the old value are
// unaffected.
type Collection struct {
	items []Transaction
	index map[string]int
}

// NewCollection builds a collection, rejecting duplicate ids.
func NewCollection(txs []Transaction) (Collection, error) {
	items := make([]Transaction, len(txs))
	copy(items, txs)
	index := make(map[string]int, len(items))
	for i, tx := range items {
		if _, dup := index[tx.ID]; dup {
			return Collection{}, fmt.Errorf("%w: %s", ErrDuplicateID, tx.ID)
		}
		index[tx.ID] = i
	}
	return Collection{items: items, index: index}, nil
}

// Len returns the number of records.
func (c Collection) Len() int { return len(c.items) }

// Items returns a copy of the records in order.
func (c Collection) Items() []Transaction {
	out := make([]Transaction, len(c.items))
	copy(out, c.items)
	return out
}

// Get looks up a record by id.
func (c Collection) Get(id string) (Transaction, bool) {
	i, ok := c.index[id]
	if !ok {
		return Transaction{}, false
	}
	return c.items[i], true
}

// Without returns a collection lacking id. Call it only once the transaction
// service has confirmed the deletion. The bool is false when id was absent.
func (c Collection) Without(id string) (Collection, bool) {
	i, ok := c.index[id]
	if !ok {
		return c, false
	}
	items := make([]Transaction, 0, len(c.items)-1)
	items = append(items, c.items[:i]...)
	items = append(items, c.items[i+1:]...)
	next, _ := NewCollection(items)
	return next, true
}

// With returns a collection that also holds tx, appended at the end.
func (c Collection) With(tx Transaction) (Collection, error) {
	if _, dup := c.index[tx.ID]; dup {
		return c, fmt.Errorf("%w: %s", ErrDuplicateID, tx.ID)
	}
	items := make([]Transaction, 0, len(c.items)+1)
	items = append(items, c.items...)
	items = append(items, tx)
	return NewCollection(items)
}

// Snapshot aggregates the collection in loc.
func (c Collection) Snapshot(loc *time.Location) AggregateSnapshot {
	return Aggregate(c.items, loc)
}

// Filter applies criteria to the collection.
func (c Collection) Filter(criteria Criteria) []Transaction {
	return ApplyFilters(c.items, criteria)
}
