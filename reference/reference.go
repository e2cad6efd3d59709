// Package reference keeps the reference-price table: the last known lowest
// price of every tracked product, keyed by product name.
package reference

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pokebim/pricewatch/models"
)

// Store persists reference prices.
type Store interface {
	// Upsert sets the price of one product.
	Upsert(ctx context.Context, name string, price float64, at time.Time) error

	// Replace swaps the whole table for prices.
	Replace(ctx context.Context, prices map[string]float64, at time.Time) error

	// Get returns one entry, or NOT_FOUND.
	Get(ctx context.Context, name string) (*models.ReferencePrice, error)

	// List returns every entry sorted by name.
	List(ctx context.Context) (Table, error)

	Close() error
}

// Table is a snapshot of the reference prices.
type Table []models.ReferencePrice

// Lowest returns the cheapest reference price.
func (t Table) Lowest() (float64, bool) {
	if len(t) == 0 {
		return 0, false
	}
	low := math.Inf(1)
	for _, e := range t {
		low = math.Min(low, e.Price)
	}
	return low, true
}

// Highest returns the most expensive reference price.
func (t Table) Highest() (float64, bool) {
	if len(t) == 0 {
		return 0, false
	}
	high := math.Inf(-1)
	for _, e := range t {
		high = math.Max(high, e.Price)
	}
	return high, true
}

// Average returns the mean reference price.
func (t Table) Average() (float64, bool) {
	if len(t) == 0 {
		return 0, false
	}
	var sum float64
	for _, e := range t {
		sum += e.Price
	}
	return sum / float64(len(t)), true
}

// SortedByPrice returns a copy ordered from cheapest to most expensive.
// Equal prices are ordered by name.
func (t Table) SortedByPrice() Table {
	out := make(Table, len(t))
	copy(out, t)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			return out[i].Price < out[j].Price
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// InRange returns the entries priced within [minPrice, maxPrice].
func (t Table) InRange(minPrice, maxPrice float64) Table {
	out := Table{}
	for _, e := range t {
		if e.Price >= minPrice && e.Price <= maxPrice {
			out = append(out, e)
		}
	}
	return out
}

// Search returns the entries whose name contains q, ignoring case.
func (t Table) Search(q string) Table {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return t
	}
	out := Table{}
	for _, e := range t {
		if strings.Contains(strings.ToLower(e.Name), q) {
			out = append(out, e)
		}
	}
	return out
}

// Stats summarizes the table.
func (t Table) Stats() models.ReferenceStats {
	s := models.ReferenceStats{Count: len(t)}
	s.Lowest, _ = t.Lowest()
	s.Highest, _ = t.Highest()
	s.Average, _ = t.Average()
	return s
}

// MemoryStore is an in-process Store. Its contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]models.ReferencePrice
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]models.ReferencePrice)}
}

func (m *MemoryStore) Upsert(_ context.Context, name string, price float64, at time.Time) error {
	if err := validEntry(name, price); err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[name] = models.ReferencePrice{Name: name, Price: price, UpdatedAt: at}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Replace(_ context.Context, prices map[string]float64, at time.Time) error {
	next := make(map[string]models.ReferencePrice, len(prices))
	for name, price := range prices {
		if err := validEntry(name, price); err != nil {
			return err
		}
		next[name] = models.ReferencePrice{Name: name, Price: price, UpdatedAt: at}
	}
	m.mu.Lock()
	m.entries = next
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, name string) (*models.ReferencePrice, error) {
	m.mu.RLock()
	e, ok := m.entries[name]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound(name)
	}
	return &e, nil
}

func (m *MemoryStore) List(context.Context) (Table, error) {
	m.mu.RLock()
	out := make(Table, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

func validEntry(name string, price float64) error {
	if strings.TrimSpace(name) == "" {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "product name is required", nil)
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "price must be a positive number: "+name, nil)
	}
	return nil
}

func notFound(name string) error {
	return models.NewScrapeError(models.ErrCodeNotFound, "no reference price for "+name, nil)
}
