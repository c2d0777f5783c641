package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"financebuddy/internal/core"
	"financebuddy/internal/identity"
)

// Loader fetches a fresh collection for a session.
type Loader interface {
	Load(ctx context.Context, session identity.Session) (Loaded, error)
}

// Book holds the current collection of one user. Readers never block:
// Refresh swaps in a whole new collection and concurrent refreshes share a
// single fetch.
type Book struct {
	loader Loader

	mu      sync.RWMutex
	session identity.Session

	current   atomic.Pointer[core.Collection]
	refreshed atomic.Int64
	group     singleflight.Group
}

func NewBook(loader Loader, session identity.Session) *Book {
	return &Book{loader: loader, session: session}
}

// Session returns the session the book fetches with.
func (b *Book) Session() identity.Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.session
}

// SetSession replaces the credentials used by later refreshes.
func (b *Book) SetSession(s identity.Session) {
	b.mu.Lock()
	b.session = s
	b.mu.Unlock()
}

// Refresh re-fetches the collection. On error the previous collection stays.
func (b *Book) Refresh(ctx context.Context) (core.Collection, error) {
	v, err, _ := b.group.Do("refresh", func() (any, error) {
		loaded, err := b.loader.Load(ctx, b.Session())
		if err != nil {
			return nil, err
		}
		coll := loaded.Collection
		b.current.Store(&coll)
		b.refreshed.Store(time.Now().UnixNano())
		return coll, nil
	})
	if err != nil {
		return core.Collection{}, err
	}
	return v.(core.Collection), nil
}

// Current returns the last loaded collection; false before the first
// successful refresh.
func (b *Book) Current() (core.Collection, bool) {
	p := b.current.Load()
	if p == nil {
		return core.Collection{}, false
	}
	return *p, true
}

// RefreshedAt is the time of the last successful refresh.
func (b *Book) RefreshedAt() time.Time {
	ns := b.refreshed.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Remove drops id from the current collection. Call it only after the
// transaction service confirmed the deletion.
func (b *Book) Remove(id string) bool {
	for {
		old := b.current.Load()
		if old == nil {
			return false
		}
		next, ok := old.Without(id)
		if !ok {
			return false
		}
		if b.current.CompareAndSwap(old, &next) {
			return true
		}
	}
}

// Add appends a confirmed record to the current collection.
func (b *Book) Add(tx core.Transaction) error {
	for {
		old := b.current.Load()
		base := core.Collection{}
		if old != nil {
			base = *old
		}
		next, err := base.With(tx)
		if err != nil {
			return err
		}
		if b.current.CompareAndSwap(old, &next) {
			return nil
		}
	}
}
