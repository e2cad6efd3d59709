package engine

import (
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultMemoryEntries bounds a StrategyMemory built with maxEntries <= 0.
const DefaultMemoryEntries = 1000

type winner struct {
	strategy string
	expires  time.Time
}

// StrategyMemory remembers which strategy last produced prices for each
// product page so the chain can try it first next time. It holds at most
// maxEntries pages; when full, the entry closest to expiry makes room.
type StrategyMemory struct {
	mu      sync.Mutex
	winners map[string]winner
	max     int
	ttl     time.Duration
	now     func() time.Time

	done chan struct{}
	stop sync.Once
}

// NewStrategyMemory creates a StrategyMemory and starts its sweeper.
func NewStrategyMemory(ttl time.Duration, maxEntries int) *StrategyMemory {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	m := &StrategyMemory{
		winners: make(map[string]winner),
		max:     maxEntries,
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// memoryKey folds URLs that address the same page: the host is
// case-insensitive and the fragment never reaches the server.
func memoryKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// Get returns the remembered strategy for rawURL, or "".
func (m *StrategyMemory) Get(rawURL string) string {
	key := memoryKey(rawURL)
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.winners[key]
	if !ok {
		return ""
	}
	if !m.now().Before(w.expires) {
		delete(m.winners, key)
		return ""
	}
	return w.strategy
}

// Set records that strategy produced prices for rawURL.
func (m *StrategyMemory) Set(rawURL, strategy string) {
	key := memoryKey(rawURL)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.winners[key]; !exists && len(m.winners) >= m.max {
		m.evictExpired(now)
		if len(m.winners) >= m.max {
			m.evictOldest()
		}
	}
	m.winners[key] = winner{strategy: strategy, expires: now.Add(m.ttl)}
}

// Delete forgets rawURL, used once its remembered strategy failed.
func (m *StrategyMemory) Delete(rawURL string) {
	key := memoryKey(rawURL)
	m.mu.Lock()
	delete(m.winners, key)
	m.mu.Unlock()
}

// Len returns the number of remembered pages, expired ones included.
func (m *StrategyMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.winners)
}

// Stop terminates the sweeper. Safe to call more than once.
func (m *StrategyMemory) Stop() {
	m.stop.Do(func() { close(m.done) })
}

// evictExpired drops stale entries. Caller holds mu.
func (m *StrategyMemory) evictExpired(now time.Time) {
	for key, w := range m.winners {
		if !now.Before(w.expires) {
			delete(m.winners, key)
		}
	}
}

// evictOldest drops the entry written longest ago. Caller holds mu.
func (m *StrategyMemory) evictOldest() {
	var (
		oldest  string
		expires time.Time
	)
	for key, w := range m.winners {
		if oldest == "" || w.expires.Before(expires) {
			oldest, expires = key, w.expires
		}
	}
	delete(m.winners, oldest)
}

func (m *StrategyMemory) sweepLoop() {
	interval := min(max(m.ttl/4, time.Second), time.Hour)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			m.evictExpired(m.now())
			m.mu.Unlock()
		}
	}
}
