package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pokebim/pricewatch/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalog(t, `
strategy: browser
products:
  - name: Crown-Zenith-Booster-Box
    url: https://www.cardmarket.com/es/Pokemon/Products/Booster-Boxes/Crown-Zenith-Booster-Box?language=10
  - name: Pokemon-151-Booster-Box
    url: https://www.cardmarket.com/es/Pokemon/Products/Booster-Boxes/Pokemon-151-Booster-Box?language=10
    strategy: proxy
`)
	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "browser", c.Strategy)
	require.Len(t, c.Products, 2)
	assert.Equal(t, "proxy", c.Products[1].Strategy)
}

func TestLoadCatalog_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":     "products: []\n",
		"no url":    "products:\n  - name: A\n",
		"duplicate": "products:\n  - {name: A, url: u}\n  - {name: A, url: v}\n",
		"bad yaml":  "products: [\n",
	}
	for name, body := range tests {
		_, err := LoadCatalog(writeCatalog(t, body))
		assert.Error(t, err, name)
	}
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

type fakePricer struct {
	mu        sync.Mutex
	prices    map[string]float64
	failing   map[string]bool
	strategy  map[string]string
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

func (f *fakePricer) Price(_ context.Context, productURL, strategy string) (*models.PriceResponse, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxFlight.Load()
		if n <= m || f.maxFlight.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)

	f.mu.Lock()
	f.strategy[productURL] = strategy
	f.mu.Unlock()
	if f.failing[productURL] {
		return nil, models.NewScrapeError(models.ErrCodeNoPriceFound, "none", nil)
	}
	return &models.PriceResponse{Price: f.prices[productURL]}, nil
}

func TestCollect(t *testing.T) {
	c := &Catalog{
		Strategy: "auto",
		Products: []Product{
			{Name: "A", URL: "u/a"},
			{Name: "B", URL: "u/b", Strategy: "browser"},
			{Name: "C", URL: "u/c"},
			{Name: "D", URL: "u/d"},
		},
	}
	p := &fakePricer{
		prices:   map[string]float64{"u/a": 1, "u/b": 2, "u/c": 3, "u/d": 4},
		failing:  map[string]bool{"u/c": true},
		strategy: map[string]string{},
	}

	prices, failures, err := Collect(context.Background(), p, c, 2)

	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"A": 1, "B": 2, "D": 4}, prices)
	require.Len(t, failures, 1)
	assert.Equal(t, "C", failures[0].Name)
	assert.Equal(t, models.ErrCodeNoPriceFound, models.CodeOf(failures[0].Err))
	assert.LessOrEqual(t, p.maxFlight.Load(), int32(2))
	assert.Equal(t, "browser", p.strategy["u/b"])
	assert.Equal(t, "auto", p.strategy["u/a"])
}

func TestCollect_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &fakePricer{strategy: map[string]string{}}
	_, _, err := Collect(ctx, p, &Catalog{Products: []Product{{Name: "A", URL: "u/a"}}}, 1)

	assert.True(t, errors.Is(err, context.Canceled))
}
