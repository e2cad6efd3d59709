package engine

import (
	"context"
	"fmt"

	"github.com/pokebim/pricewatch/models"
)

// FetchStrategy pairs a Fetcher with an Extractor: fetch the page, then
// read the prices out of its HTML.
type FetchStrategy struct {
	name      string
	fetcher   Fetcher
	extractor Extractor
}

// NewFetchStrategy creates a FetchStrategy reporting itself as name.
func NewFetchStrategy(name string, fetcher Fetcher, extractor Extractor) *FetchStrategy {
	return &FetchStrategy{name: name, fetcher: fetcher, extractor: extractor}
}

func (s *FetchStrategy) Name() string { return s.name }

func (s *FetchStrategy) Scrape(ctx context.Context, rawURL string) (*models.Extraction, error) {
	page, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	ext, err := s.extractor.Extract(page.HTML, page.URL)
	if err != nil {
		return nil, err
	}
	return ext, nil
}

// ScrapeFunc is the callback type behind StrategyFunc.
type ScrapeFunc func(ctx context.Context, rawURL string) (*models.Extraction, error)

// StrategyFunc adapts a plain function to the Strategy interface. It lets
// callers plug in a strategy that lives outside this package (the browser
// scraper) or a stub in tests.
type StrategyFunc struct {
	name string
	fn   ScrapeFunc
}

// NewStrategyFunc creates a StrategyFunc.
func NewStrategyFunc(name string, fn ScrapeFunc) *StrategyFunc {
	return &StrategyFunc{name: name, fn: fn}
}

func (s *StrategyFunc) Name() string { return s.name }

func (s *StrategyFunc) Scrape(ctx context.Context, rawURL string) (*models.Extraction, error) {
	if s.fn == nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, fmt.Sprintf("%s: scrape func not configured", s.name), nil)
	}
	return s.fn(ctx, rawURL)
}
