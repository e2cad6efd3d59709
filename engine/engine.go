// Package engine fetches marketplace pages and turns them into price
// extractions. Each Strategy is independently usable; Chain composes them
// into an explicit fallback policy.
package engine

import (
	"context"

	"github.com/pokebim/pricewatch/models"
)

// Fetcher retrieves the HTML of a product page.
type Fetcher interface {
	// Name returns the fetcher identifier (e.g. "direct", "proxy").
	Name() string

	// Fetch retrieves the page at rawURL. The URL is checked against the
	// marketplace guard before any network activity.
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// Page is the output of a successful fetch.
type Page struct {
	URL        string
	FinalURL   string
	HTML       string
	StatusCode int
	Fetcher    string
}

// Extractor reads prices out of an HTML document.
type Extractor interface {
	Extract(doc, sourceURL string) (*models.Extraction, error)
}

// Strategy produces a price extraction for a product URL.
type Strategy interface {
	// Name returns the strategy identifier (e.g. "direct", "proxy", "browser").
	Name() string

	// Scrape returns the prices found on the page at rawURL.
	Scrape(ctx context.Context, rawURL string) (*models.Extraction, error)
}
