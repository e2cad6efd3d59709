// Package cache keeps recent price quotes so repeated lookups of the same
// product page do not hit the marketplace again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/pokebim/pricewatch/models"
)

// DefaultTTL matches the s-maxage the API advertises to shared caches.
const DefaultTTL = time.Hour

// Store is a quote cache. Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (*models.Quote, bool)
	Set(ctx context.Context, key string, quote *models.Quote)
	Close() error
}

// Key generates a cache key from the strategy and the product URL.
func Key(strategy, url string) string {
	h := sha256.New()
	h.Write([]byte(strategy))
	h.Write([]byte("|"))
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}

// entry holds a cached quote with its creation timestamp.
type entry struct {
	quote     *models.Quote
	createdAt time.Time
}

// Memory is a bounded in-process Store.
type Memory struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

// NewMemory creates a Memory cache holding at most maxEntries quotes for ttl.
// A background goroutine evicts expired entries every ttl/12 (5 minutes for
// the default hour).
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Memory{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		done:       make(chan struct{}),
	}

	go c.cleanupLoop()
	return c
}

// Get returns the cached quote when it is younger than the TTL.
func (c *Memory) Get(_ context.Context, key string) (*models.Quote, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || time.Since(e.createdAt) > c.ttl {
		return nil, false
	}
	return e.quote, true
}

// Set stores a quote. If the cache is at capacity, a random entry is evicted
// to make room.
func (c *Memory) Set(_ context.Context, key string, quote *models.Quote) {
	if quote == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// Map iteration order is random in Go.
	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		quote:     quote,
		createdAt: time.Now(),
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the cleanup goroutine.
func (c *Memory) Close() error {
	c.stopOnce.Do(func() { close(c.done) })
	return nil
}

func (c *Memory) cleanupLoop() {
	interval := c.ttl / 12
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Memory) evictExpired() {
	cutoff := time.Now().Add(-c.ttl)
	c.mu.Lock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}

// Nop is a Store that never hits.
type Nop struct{}

func (Nop) Get(context.Context, string) (*models.Quote, bool) { return nil, false }
func (Nop) Set(context.Context, string, *models.Quote)        {}
func (Nop) Close() error                                      { return nil }
