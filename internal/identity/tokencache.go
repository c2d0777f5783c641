package identity

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// TokenCache is a size-bounded LRU of verified sessions. An entry lives for
// the configured TTL or until the session itself expires, whichever is
// sooner.
type TokenCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	items   map[string]*list.Element
	lru     *list.List
}

type cachedSession struct {
	token     string
	session   Session
	expiresAt time.Time
}

func NewTokenCache(maxSize int, ttl time.Duration) *TokenCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &TokenCache{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

func (c *TokenCache) Get(token string) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[token]
	if !ok {
		return Session{}, false
	}
	item := elem.Value.(*cachedSession)
	if !c.now().Before(item.expiresAt) {
		c.remove(elem)
		return Session{}, false
	}
	c.lru.MoveToFront(elem)
	return item.session, true
}

func (c *TokenCache) Set(token string, s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(expiresAt) {
		expiresAt = s.ExpiresAt
	}
	item := &cachedSession{token: token, session: s, expiresAt: expiresAt}

	if elem, ok := c.items[token]; ok {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}
	c.items[token] = c.lru.PushFront(item)
	if c.lru.Len() > c.maxSize {
		c.remove(c.lru.Back())
	}
}

func (c *TokenCache) Delete(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[token]; ok {
		c.remove(elem)
	}
}

func (c *TokenCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanExpired drops expired entries and returns how many were removed.
func (c *TokenCache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		if !now.Before(elem.Value.(*cachedSession).expiresAt) {
			c.remove(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// RunJanitor cleans expired entries every interval until ctx is done.
func (c *TokenCache) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CleanExpired()
		}
	}
}

func (c *TokenCache) remove(elem *list.Element) {
	delete(c.items, elem.Value.(*cachedSession).token)
	c.lru.Remove(elem)
}
