package pricing

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pokebim/pricewatch/cache"
	"github.com/pokebim/pricewatch/engine"
	"github.com/pokebim/pricewatch/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productURL = "https://www.cardmarket.com/en/Pokemon/Products/Singles/Base-Set/Charizard"

func extraction(priceFrom float64, prices ...float64) *models.Extraction {
	ext := &models.Extraction{URL: productURL, Method: models.MethodBrowser, PriceFrom: priceFrom}
	for _, p := range prices {
		ext.Samples = append(ext.Samples, models.Sample{Value: p})
	}
	models.SortSamples(ext.Samples)
	return ext
}

func TestLowest_PriceFromAndListingAreIndependent(t *testing.T) {
	ext := extraction(9.99, 12, 8)

	listing, err := Lowest(ext, ListingMinimum)
	require.NoError(t, err)
	assert.Equal(t, 8.0, listing.Price)
	assert.Equal(t, models.SourceListing, listing.Source)

	from, err := Lowest(ext, PreferPriceFrom)
	require.NoError(t, err)
	assert.Equal(t, 9.99, from.Price)
	assert.Equal(t, models.SourcePriceFrom, from.Source)
	assert.Equal(t, models.Currency, from.Currency)
}

func TestLowest_PreferPriceFromFallsBack(t *testing.T) {
	q, err := Lowest(extraction(0, 5, 3.5), PreferPriceFrom)
	require.NoError(t, err)
	assert.Equal(t, 3.5, q.Price)
	assert.Equal(t, models.SourceListing, q.Source)
}

func TestLowest_NotFound(t *testing.T) {
	for _, ext := range []*models.Extraction{nil, extraction(0)} {
		_, err := Lowest(ext, PreferPriceFrom)
		assert.Equal(t, models.ErrCodePriceNotFound, models.CodeOf(err))
	}
}

type countingStrategy struct {
	name  string
	ext   *models.Extraction
	err   error
	calls int
}

func (s *countingStrategy) Name() string { return s.name }

func (s *countingStrategy) Scrape(context.Context, string) (*models.Extraction, error) {
	s.calls++
	return s.ext, s.err
}

func TestService_QuoteUsesCache(t *testing.T) {
	direct := &countingStrategy{name: models.StrategyDirect, ext: extraction(0, 5, 3.5)}
	store := cache.NewMemory(10, time.Hour)
	defer store.Close()
	svc := NewService(nil, store, direct)

	q, attempts, err := svc.Quote(context.Background(), productURL, models.StrategyDirect, ListingMinimum)
	require.NoError(t, err)
	assert.Equal(t, 3.5, q.Price)
	assert.Len(t, attempts, 1)

	q, attempts, err = svc.Quote(context.Background(), productURL, models.StrategyDirect, ListingMinimum)
	require.NoError(t, err)
	assert.Equal(t, 3.5, q.Price)
	assert.Empty(t, attempts)
	assert.Equal(t, 1, direct.calls)

	// A different policy is a different cache entry.
	_, _, err = svc.Quote(context.Background(), productURL, models.StrategyDirect, PreferPriceFrom)
	require.NoError(t, err)
	assert.Equal(t, 2, direct.calls)
}

func TestService_ErrorsAreNotCached(t *testing.T) {
	direct := &countingStrategy{name: models.StrategyDirect, err: models.NewUpstreamError(http.StatusForbidden, "refused")}
	svc := NewService(nil, cache.NewMemory(10, time.Hour), direct)

	for i := 0; i < 2; i++ {
		_, attempts, err := svc.Quote(context.Background(), productURL, models.StrategyDirect, ListingMinimum)
		require.Error(t, err)
		require.Len(t, attempts, 1)
		assert.Equal(t, models.ErrCodeUpstreamHTTP, attempts[0].Code)
	}
	assert.Equal(t, 2, direct.calls)
}

func TestService_ResolveUsesChain(t *testing.T) {
	direct := &countingStrategy{name: models.StrategyDirect, err: models.NewScrapeError(models.ErrCodeEmptyResponse, "short", nil)}
	proxy := &countingStrategy{name: models.StrategyProxy, ext: extraction(0, 4.2)}
	browser := &countingStrategy{name: models.StrategyBrowser}
	chain := engine.DefaultChain(nil, direct, proxy, browser)

	svc := NewService(chain, nil, direct, proxy, browser)
	q, attempts, err := svc.Resolve(context.Background(), productURL)

	require.NoError(t, err)
	assert.Equal(t, 4.2, q.Price)
	assert.Equal(t, productURL, q.URL)
	assert.Len(t, attempts, 2)
	assert.Zero(t, browser.calls)
}

func TestService_UnknownStrategy(t *testing.T) {
	svc := NewService(nil, nil)

	_, _, err := svc.Extract(context.Background(), productURL, "carrier-pigeon")
	assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))

	_, _, err = svc.Extract(context.Background(), productURL, models.StrategyAuto)
	assert.Equal(t, models.ErrCodeInternal, models.CodeOf(err))
}
