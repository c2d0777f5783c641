package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"financebuddy/internal/core"
	"financebuddy/internal/identity"
)

type slowLoader struct {
	calls   atomic.Int32
	release chan struct{}
	records []core.RawRecord
	err     error
}

func (l *slowLoader) Load(ctx context.Context, s identity.Session) (Loaded, error) {
	l.calls.Add(1)
	if l.release != nil {
		<-l.release
	}
	if l.err != nil {
		return Loaded{}, l.err
	}
	txs, _, err := core.NormalizeAll(l.records)
	if err != nil {
		return Loaded{}, err
	}
	coll, err := core.NewCollection(txs)
	return Loaded{Collection: coll}, err
}

func TestBook_CurrentBeforeRefresh(t *testing.T) {
	b := NewBook(&slowLoader{}, session)
	if _, ok := b.Current(); ok {
		t.Error("a new book has no collection")
	}
	if !b.RefreshedAt().IsZero() {
		t.Error("a new book was never refreshed")
	}
	if b.Remove("1") {
		t.Error("Remove on an empty book should report false")
	}
}

func TestBook_RefreshAndRemove(t *testing.T) {
	loader := &slowLoader{records: []core.RawRecord{
		rec("1", "income", 10, "A", "2024-01-01T00:00:00Z"),
		rec("2", "expense", 4, "B", "2024-01-02T00:00:00Z"),
	}}
	b := NewBook(loader, session)

	coll, err := b.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if coll.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", coll.Len())
	}

	if !b.Remove("2") {
		t.Fatal("Remove(2) should succeed")
	}
	if b.Remove("2") {
		t.Error("second Remove(2) should report false")
	}
	cur, _ := b.Current()
	if cur.Len() != 1 {
		t.Errorf("expected 1 record after remove, got %d", cur.Len())
	}
	if coll.Len() != 2 {
		t.Error("earlier snapshots must not change")
	}
}

func TestBook_RefreshFailureKeepsPrevious(t *testing.T) {
	loader := &slowLoader{records: []core.RawRecord{rec("1", "income", 10, "A", "2024-01-01T00:00:00Z")}}
	b := NewBook(loader, session)
	if _, err := b.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	loader.err = errors.New("upstream down")
	if _, err := b.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	cur, ok := b.Current()
	if !ok || cur.Len() != 1 {
		t.Error("previous collection should survive a failed refresh")
	}
}

func TestBook_ConcurrentRefreshesShareOneFetch(t *testing.T) {
	loader := &slowLoader{
		release: make(chan struct{}),
		records: []core.RawRecord{rec("1", "income", 10, "A", "2024-01-01T00:00:00Z")},
	}
	b := NewBook(loader, session)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := b.Refresh(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	// Let the goroutines pile up on the in-flight call.
	for loader.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(loader.release)
	wg.Wait()

	if n := loader.calls.Load(); n != 1 {
		t.Errorf("expected a single fetch, got %d", n)
	}
}

func TestBook_Add(t *testing.T) {
	b := NewBook(&slowLoader{}, session)
	tx, err := core.Normalize(rec("9", "expense", 3, "C", "2024-01-01T00:00:00Z"))
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Add(tx); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := b.Add(tx); !errors.Is(err, core.ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
	cur, ok := b.Current()
	if !ok || cur.Len() != 1 {
		t.Errorf("expected one record, got %v", cur.Items())
	}
}

func TestBook_SetSession(t *testing.T) {
	b := NewBook(&slowLoader{}, session)
	b.SetSession(identity.Session{UserID: "user-1", Token: "fresh"})
	if b.Session().Token != "fresh" {
		t.Error("session not replaced")
	}
}
