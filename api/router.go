// Package api wires the HTTP surface of the price service.
package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pokebim/pricewatch/api/handler"
	"github.com/pokebim/pricewatch/api/middleware"
	"github.com/pokebim/pricewatch/api/validation"
	"github.com/pokebim/pricewatch/config"
	"github.com/pokebim/pricewatch/market"
	"github.com/pokebim/pricewatch/models"
)

// Deps are the services the routes call into.
type Deps struct {
	Prices     handler.PriceService
	References handler.ReferenceService
	Browser    handler.BrowserStatser
	Guard      market.Guard
	StartTime  time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestID → Logger
//	Prices:  RateLimit → Timeout
//	Updates: BearerToken
//
// Health endpoint is intentionally outside rate limiting so monitoring
// probes always work.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	if err := validation.RegisterGin(deps.Guard); err != nil {
		slog.Error("failed to register validators", "error", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(gin.Logger())

	// Health: no rate limit.
	r.GET("/health", handler.Health(deps.Browser, deps.StartTime))

	// Price lookups: rate limit + overall deadline.
	prices := r.Group("")
	prices.Use(middleware.RateLimit(cfg.RateLimit))
	prices.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	prices.GET("/price", handler.Price(deps.Prices, deps.Guard))
	prices.GET("/proxy-price", handler.ListingPrice(deps.Prices, deps.Guard, models.StrategyProxy))
	prices.GET("/scraper-price", handler.ListingPrice(deps.Prices, deps.Guard, models.StrategyScraper))
	prices.GET("/browser-price", handler.BrowserPrice(deps.Prices, deps.Guard))
	prices.GET("/test-price", handler.TestPrice(deps.Prices, deps.Guard))

	// Reference table: reads are public.
	r.GET("/reference-prices", handler.ListReferences(deps.References))
	r.GET("/reference-prices/:name", handler.GetReference(deps.References))

	// Updates: bearer token.
	updates := r.Group("")
	updates.Use(middleware.BearerToken(cfg.Reference.UpdateToken))
	updates.POST("/update-prices", handler.UpdatePrices(deps.References))
	updates.POST("/update-reference-table", handler.UpdateReference(deps.References))

	return r
}
