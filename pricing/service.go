package pricing

import (
	"context"
	"log/slog"
	"time"

	"github.com/pokebim/pricewatch/cache"
	"github.com/pokebim/pricewatch/engine"
	"github.com/pokebim/pricewatch/models"
)

// Service answers price questions for product URLs.
type Service struct {
	strategies map[string]engine.Strategy
	chain      *engine.Chain
	cache      cache.Store
}

// NewService creates a Service. chain serves the "auto" strategy; every other
// strategy is looked up by its Name. A nil store disables caching.
func NewService(chain *engine.Chain, store cache.Store, strategies ...engine.Strategy) *Service {
	if store == nil {
		store = cache.Nop{}
	}
	byName := make(map[string]engine.Strategy, len(strategies))
	for _, s := range strategies {
		byName[s.Name()] = s
	}
	return &Service{strategies: byName, chain: chain, cache: store}
}

// Extract runs one strategy (or the chain for "auto") and returns everything
// it read from the page. Extractions are never cached.
func (s *Service) Extract(ctx context.Context, rawURL, strategy string) (*models.Extraction, []models.Attempt, error) {
	if strategy == "" || strategy == models.StrategyAuto {
		if s.chain == nil {
			return nil, nil, models.NewScrapeError(models.ErrCodeInternal, "fallback chain not configured", nil)
		}
		return s.chain.Run(ctx, rawURL)
	}

	st, ok := s.strategies[strategy]
	if !ok {
		return nil, nil, models.NewScrapeError(models.ErrCodeInvalidInput, "unknown strategy: "+strategy, nil)
	}

	start := time.Now()
	ext, err := st.Scrape(ctx, rawURL)
	attempts := []models.Attempt{attemptOf(st.Name(), start, err)}
	if err != nil {
		return nil, attempts, err
	}
	return ext, attempts, nil
}

// Quote returns the price strategy reports for rawURL under policy. Quotes
// are served from the cache while fresh; a cache hit carries no attempts.
func (s *Service) Quote(ctx context.Context, rawURL, strategy string, policy Policy) (*models.Quote, []models.Attempt, error) {
	if strategy == "" {
		strategy = models.StrategyAuto
	}
	key := cache.Key(strategy+"/"+policy.String(), rawURL)
	if q, ok := s.cache.Get(ctx, key); ok {
		slog.Debug("quote cache hit", "url", rawURL, "strategy", strategy)
		return q, nil, nil
	}

	ext, attempts, err := s.Extract(ctx, rawURL, strategy)
	if err != nil {
		return nil, attempts, err
	}
	q, err := Lowest(ext, policy)
	if err != nil {
		return nil, attempts, err
	}
	q.URL = rawURL

	s.cache.Set(detach(ctx), key, q)
	return q, attempts, nil
}

// Resolve returns the cheapest listing for rawURL using the fallback chain.
func (s *Service) Resolve(ctx context.Context, rawURL string) (*models.Quote, []models.Attempt, error) {
	return s.Quote(ctx, rawURL, models.StrategyAuto, ListingMinimum)
}

// Strategies lists the configured strategy names, the chain excluded.
func (s *Service) Strategies() []string {
	names := make([]string, 0, len(s.strategies))
	for name := range s.strategies {
		names = append(names, name)
	}
	return names
}
