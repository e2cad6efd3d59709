package reference

import (
	"context"
	"time"

	"github.com/pokebim/pricewatch/models"
)

// Notifier is told about table changes.
type Notifier interface {
	Notify(eventType string, data any)
}

// EventUpdated is the event type sent after every successful update.
const EventUpdated = "reference.updated"

// Service applies updates to a Store, records bulk updates in the audit log
// and notifies listeners.
type Service struct {
	store  Store
	audit  *AuditLog
	notify Notifier
	now    func() time.Time
}

// NewService creates a Service. audit and notify may be nil.
func NewService(store Store, audit *AuditLog, notify Notifier) *Service {
	return &Service{store: store, audit: audit, notify: notify, now: time.Now}
}

// ReplaceAll swaps the whole table for prices. timestamp is the caller's run
// time and is stored as given in the audit log.
func (s *Service) ReplaceAll(ctx context.Context, prices map[string]float64, timestamp string) error {
	if len(prices) == 0 {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "no prices provided", nil)
	}
	if err := s.store.Replace(ctx, prices, s.now().UTC()); err != nil {
		return err
	}
	s.audit.Record(timestamp, prices)
	s.emit(map[string]any{"mode": "replace", "count": len(prices), "prices": prices})
	return nil
}

// Set updates the price of one product.
func (s *Service) Set(ctx context.Context, name string, price float64) (*models.ReferencePrice, error) {
	at := s.now().UTC()
	if err := s.store.Upsert(ctx, name, price, at); err != nil {
		return nil, err
	}
	entry := &models.ReferencePrice{Name: name, Price: price, UpdatedAt: at}
	s.emit(map[string]any{"mode": "upsert", "count": 1, "prices": map[string]float64{name: price}})
	return entry, nil
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, name string) (*models.ReferencePrice, error) {
	return s.store.Get(ctx, name)
}

// Filter selects entries from the table.
type Filter struct {
	Min, Max float64
	Query    string
	ByPrice  bool
}

// List returns the filtered table and statistics over the whole table.
func (s *Service) List(ctx context.Context, f Filter) (Table, models.ReferenceStats, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, models.ReferenceStats{}, err
	}
	out := all.Search(f.Query)
	if f.Min > 0 || f.Max > 0 {
		maxPrice := f.Max
		if maxPrice <= 0 {
			maxPrice = 1e18
		}
		out = out.InRange(f.Min, maxPrice)
	}
	if f.ByPrice {
		out = out.SortedByPrice()
	}
	return out, all.Stats(), nil
}

func (s *Service) emit(data map[string]any) {
	if s.notify == nil {
		return
	}
	s.notify.Notify(EventUpdated, data)
}
