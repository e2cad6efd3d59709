package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pokebim/pricewatch/market"
	"github.com/pokebim/pricewatch/models"
	"github.com/pokebim/pricewatch/pricing"
)

// Price returns a handler for GET /price.
//
// Flow:
//  1. Bind and validate ?url= (marketplace guard) and ?strategy=
//  2. Quote via the fallback chain ("auto") or the named strategy
//  3. Return { "price": <lowest listing> }
func Price(svc PriceService, guard market.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, err := bindPriceQuery(c, guard)
		if err != nil {
			respondError(c, err, nil)
			return
		}

		quote, attempts, err := svc.Quote(c.Request.Context(), q.URL, q.Strategy, pricing.ListingMinimum)
		if err != nil {
			respondError(c, err, attempts)
			return
		}

		setCacheHeaders(c)
		c.JSON(http.StatusOK, models.PriceResponse{
			Price:    quote.Price,
			Strategy: quote.Strategy,
			Attempts: attempts,
		})
	}
}

// ListingPrice returns a handler for the single-strategy endpoints
// (GET /proxy-price, GET /scraper-price).
func ListingPrice(svc PriceService, guard market.Guard, strategy string) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, err := bindPriceQuery(c, guard)
		if err != nil {
			respondError(c, err, nil)
			return
		}

		quote, attempts, err := svc.Quote(c.Request.Context(), q.URL, strategy, pricing.ListingMinimum)
		if err != nil {
			respondError(c, err, attempts)
			return
		}

		setCacheHeaders(c)
		c.JSON(http.StatusOK, models.ListingPriceResponse{
			Success:   true,
			Price:     quote.Price,
			URL:       q.URL,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// BrowserPrice returns a handler for GET /browser-price. It reports every
// listing price the rendered page shows plus its "From" price.
func BrowserPrice(svc PriceService, guard market.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, err := bindPriceQuery(c, guard)
		if err != nil {
			respondError(c, err, nil)
			return
		}

		ext, attempts, err := svc.Extract(c.Request.Context(), q.URL, models.StrategyBrowser)
		if err != nil {
			respondError(c, err, attempts)
			return
		}

		prices := ext.Samples
		if prices == nil {
			prices = []models.Sample{}
		}
		setCacheHeaders(c)
		c.JSON(http.StatusOK, models.BrowserPriceResponse{
			Success: true,
			Data: models.BrowserPriceData{
				Title:     ext.Title,
				URL:       ext.URL,
				PriceFrom: ext.PriceFrom,
				Prices:    prices,
			},
		})
	}
}

// TestPrice returns a handler for GET /test-price: the browser strategy
// normalized to one number, preferring the page's "From" price.
func TestPrice(svc PriceService, guard market.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, err := bindPriceQuery(c, guard)
		if err != nil {
			respondError(c, err, nil)
			return
		}

		quote, attempts, err := svc.Quote(c.Request.Context(), q.URL, models.StrategyBrowser, pricing.PreferPriceFrom)
		if err != nil {
			respondError(c, err, attempts)
			return
		}

		setCacheHeaders(c)
		c.JSON(http.StatusOK, models.TestPriceResponse{
			Success:  true,
			Price:    quote.Price,
			Currency: models.Currency,
			Method:   quote.Source,
		})
	}
}
