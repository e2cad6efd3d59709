package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pokebim/pricewatch/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productURL = "https://www.cardmarket.com/en/Pokemon/Products/Booster-Boxes/Crown-Zenith-Booster-Box"

func TestPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/price", r.URL.Path)
		assert.Equal(t, productURL, r.URL.Query().Get("url"))
		assert.Equal(t, "browser", r.URL.Query().Get("strategy"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"price":179.95,"strategy":"browser"}`))
	}))
	defer srv.Close()

	got, err := New(Options{BaseURL: srv.URL}).Price(context.Background(), productURL, "browser")
	require.NoError(t, err)
	assert.Equal(t, 179.95, got.Price)
}

func TestAPIErrorCarriesCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"upstream refused","code":"UPSTREAM_HTTP","status":403}`))
	}))
	defer srv.Close()

	_, err := New(Options{BaseURL: srv.URL}).Price(context.Background(), productURL, "")
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeUpstreamHTTP, models.CodeOf(err))
	assert.Equal(t, 403, models.UpstreamStatus(err))
}

func TestErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(Options{BaseURL: srv.URL}).References(context.Background(), "")
	assert.Equal(t, models.ErrCodeRateLimited, models.CodeOf(err))
}

func TestUpdatePrices_SendsToken(t *testing.T) {
	var gotAuth string
	var gotBody models.UpdatePricesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"ok","count":2}`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Token: "tok"})
	at := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	out, err := c.UpdatePrices(context.Background(), map[string]float64{"A": 1, "B": 2}, at)

	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Len(t, gotBody.Prices, 2)
	assert.Equal(t, "2024-03-05T12:00:00Z", gotBody.Timestamp)
}

func TestBrowserPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"title":"Crown Zenith","url":"u","priceFrom":170,"prices":[{"text":"175,00 €","price":175}]}}`))
	}))
	defer srv.Close()

	data, err := New(Options{BaseURL: srv.URL}).BrowserPrices(context.Background(), productURL)
	require.NoError(t, err)
	assert.Equal(t, 170.0, data.PriceFrom)
	require.Len(t, data.Prices, 1)
	assert.Equal(t, 175.0, data.Prices[0].Value)
}
