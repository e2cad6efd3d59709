package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pokebim/pricewatch/extractor"
	"github.com/pokebim/pricewatch/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chainURL = "https://www.cardmarket.com/en/Pokemon/Products/Singles/Base-Set/Charizard"

// stub is a Strategy that returns a fixed result and counts calls.
type stub struct {
	name  string
	err   error
	price float64
	calls int
}

func (s *stub) Name() string { return s.name }

func (s *stub) Scrape(ctx context.Context, rawURL string) (*models.Extraction, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.Extraction{
		URL:     rawURL,
		Method:  s.name,
		Samples: []models.Sample{{Value: s.price}},
	}, nil
}

func TestDefaultChain_Escalation(t *testing.T) {
	forbidden := models.NewUpstreamError(http.StatusForbidden, "refused")
	empty := models.NewScrapeError(models.ErrCodeEmptyResponse, "short", nil)
	noPrice := models.NewScrapeError(models.ErrCodeNoPriceFound, "none", nil)
	serverErr := models.NewUpstreamError(http.StatusBadGateway, "bad gateway")
	invalid := models.NewScrapeError(models.ErrCodeInvalidURL, "off-domain", nil)

	tests := []struct {
		name         string
		directErr    error
		proxyErr     error
		browserErr   error
		wantStrategy string
		wantCalls    [3]int
		wantCode     string
	}{
		{"direct wins", nil, nil, nil, "direct", [3]int{1, 0, 0}, ""},
		{"403 goes to proxy", forbidden, nil, nil, "proxy", [3]int{1, 1, 0}, ""},
		{"empty goes to proxy", empty, nil, nil, "proxy", [3]int{1, 1, 0}, ""},
		{"proxy failure goes to browser", forbidden, noPrice, nil, "browser", [3]int{1, 1, 1}, ""},
		{"no price skips proxy", noPrice, nil, nil, "browser", [3]int{1, 0, 1}, ""},
		{"502 skips proxy", serverErr, nil, nil, "browser", [3]int{1, 0, 1}, ""},
		{"invalid url stops", invalid, nil, nil, "", [3]int{1, 0, 0}, models.ErrCodeInvalidURL},
		{"all fail", forbidden, empty, models.NewScrapeError(models.ErrCodeNavigationTimeout, "nav", nil), "", [3]int{1, 1, 1}, models.ErrCodeNavigationTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			direct := &stub{name: "direct", err: tt.directErr, price: 1}
			proxy := &stub{name: "proxy", err: tt.proxyErr, price: 2}
			browser := &stub{name: "browser", err: tt.browserErr, price: 3}

			ext, attempts, err := DefaultChain(nil, direct, proxy, browser).Run(context.Background(), chainURL)

			assert.Equal(t, tt.wantCalls, [3]int{direct.calls, proxy.calls, browser.calls})
			assert.Len(t, attempts, direct.calls+proxy.calls+browser.calls)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, models.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStrategy, ext.Method)
			assert.Empty(t, attempts[len(attempts)-1].Code)
		})
	}
}

func TestChain_RemembersWinner(t *testing.T) {
	memory := NewStrategyMemory(time.Hour, 0)
	defer memory.Stop()

	direct := &stub{name: "direct", err: models.NewUpstreamError(http.StatusForbidden, "refused")}
	proxy := &stub{name: "proxy", price: 2}
	browser := &stub{name: "browser", price: 3}
	chain := DefaultChain(memory, direct, proxy, browser)

	_, _, err := chain.Run(context.Background(), chainURL)
	require.NoError(t, err)
	assert.Equal(t, "proxy", memory.Get(chainURL))

	_, attempts, err := chain.Run(context.Background(), chainURL)
	require.NoError(t, err)
	assert.Equal(t, 1, direct.calls, "second run should start with the remembered strategy")
	require.Len(t, attempts, 1)
	assert.Equal(t, "proxy", attempts[0].Strategy)
}

func TestChain_ForgetsFailedMemory(t *testing.T) {
	memory := NewStrategyMemory(time.Hour, 0)
	defer memory.Stop()
	memory.Set(chainURL, "direct")

	direct := &stub{name: "direct", err: models.NewUpstreamError(http.StatusForbidden, "refused")}
	proxy := &stub{name: "proxy", price: 2}
	browser := &stub{name: "browser", price: 3}

	ext, attempts, err := DefaultChain(memory, direct, proxy, browser).Run(context.Background(), chainURL)

	require.NoError(t, err)
	assert.Equal(t, "proxy", ext.Method)
	assert.Equal(t, 1, direct.calls, "remembered strategy must not run twice")
	assert.Len(t, attempts, 2)
	assert.Equal(t, "proxy", memory.Get(chainURL))
}

func TestChain_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	direct := &stub{name: "direct"}
	_, _, err := NewChain(nil, Step{Strategy: direct}).Run(ctx, chainURL)

	require.Error(t, err)
	assert.Equal(t, models.ErrCodeTimeout, models.CodeOf(err))
	assert.Zero(t, direct.calls)
}

func TestChain_CanceledMidChainReportsTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	direct := NewStrategyFunc("direct", func(ctx context.Context, rawURL string) (*models.Extraction, error) {
		cancel()
		return nil, models.NewScrapeError(models.ErrCodeScrapeFailed, "connection reset", nil)
	})
	proxy := &stub{name: "proxy"}
	browser := &stub{name: "browser", price: 5}

	_, attempts, err := DefaultChain(nil, direct, proxy, browser).Run(ctx, chainURL)

	require.Error(t, err)
	assert.Equal(t, models.ErrCodeTimeout, models.CodeOf(err))
	assert.Zero(t, proxy.calls)
	assert.Zero(t, browser.calls)
	assert.Len(t, attempts, 1)
}

func TestFetchStrategy_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(productHTML("5,00 €", "3,50 €")))
	}))
	defer srv.Close()

	s := NewFetchStrategy("direct", NewDirectFetcher(localOptions()), extractor.NewMarkupExtractor(0))
	ext, err := s.Scrape(context.Background(), srv.URL+productPath)

	require.NoError(t, err)
	assert.Equal(t, []float64{3.5, 5}, ext.Prices())
	assert.Equal(t, "Charizard | Cardmarket", ext.Title)
}

func TestStrategyFunc(t *testing.T) {
	s := NewStrategyFunc("browser", func(ctx context.Context, rawURL string) (*models.Extraction, error) {
		return &models.Extraction{URL: rawURL}, nil
	})
	ext, err := s.Scrape(context.Background(), chainURL)
	require.NoError(t, err)
	assert.Equal(t, chainURL, ext.URL)
	assert.Equal(t, "browser", s.Name())

	_, err = NewStrategyFunc("empty", nil).Scrape(context.Background(), chainURL)
	assert.Equal(t, models.ErrCodeInternal, models.CodeOf(err))
}

func TestStrategyMemory_Expiry(t *testing.T) {
	m := NewStrategyMemory(10*time.Millisecond, 0)
	defer m.Stop()

	m.Set(chainURL, "proxy")
	assert.Equal(t, "proxy", m.Get(chainURL))

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, m.Get(chainURL))

	m.Stop() // idempotent
}
