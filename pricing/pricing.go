// Package pricing turns extractions into the single price each endpoint
// reports and coordinates strategies, the fallback chain and the quote cache.
package pricing

import (
	"context"
	"time"

	"github.com/pokebim/pricewatch/models"
)

// Policy selects which number of an extraction is "the" price.
type Policy int

const (
	// ListingMinimum reports the cheapest listing on the page.
	ListingMinimum Policy = iota

	// PreferPriceFrom reports the page's "From" price when it shows one and
	// falls back to the cheapest listing otherwise.
	PreferPriceFrom
)

func (p Policy) String() string {
	switch p {
	case PreferPriceFrom:
		return "price_from"
	default:
		return "listing_minimum"
	}
}

// Lowest picks the reported price out of ext according to policy. It fails
// with PRICE_NOT_FOUND when the extraction carries no positive value.
func Lowest(ext *models.Extraction, policy Policy) (*models.Quote, error) {
	if ext == nil {
		return nil, models.NewScrapeError(models.ErrCodePriceNotFound, "no price on page", nil)
	}

	q := &models.Quote{
		Currency:  models.Currency,
		Strategy:  ext.Method,
		URL:       ext.URL,
		FetchedAt: time.Now().UTC(),
	}

	if policy == PreferPriceFrom && ext.PriceFrom > 0 {
		q.Price = ext.PriceFrom
		q.Source = models.SourcePriceFrom
		return q, nil
	}

	minPrice, ok := ext.Min()
	if !ok || minPrice <= 0 {
		return nil, models.NewScrapeError(models.ErrCodePriceNotFound, "no price on page", nil)
	}
	q.Price = minPrice
	q.Source = models.SourceListing
	return q, nil
}

// attemptOf records a single strategy run.
func attemptOf(strategy string, start time.Time, err error) models.Attempt {
	a := models.Attempt{
		Strategy:   strategy,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		se := models.AsScrapeError(err)
		a.Code = se.Code
		a.Message = se.Message
	}
	return a
}

// detach keeps request values but not the request's cancellation.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
