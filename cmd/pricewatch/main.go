package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pokebim/pricewatch/api"
	"github.com/pokebim/pricewatch/cache"
	"github.com/pokebim/pricewatch/config"
	"github.com/pokebim/pricewatch/engine"
	"github.com/pokebim/pricewatch/extractor"
	"github.com/pokebim/pricewatch/market"
	"github.com/pokebim/pricewatch/pricing"
	"github.com/pokebim/pricewatch/reference"
	"github.com/pokebim/pricewatch/scraper"
	"github.com/pokebim/pricewatch/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("pricewatch starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"market", cfg.Market.Domain,
	)

	ctx := context.Background()
	guard := market.NewGuard(cfg.Market.Domain)

	// ── 3. Shared browser session (launched lazily) ─────────────────
	session := scraper.NewSession(cfg.Browser)
	defer session.Close()

	// ── 4. Strategies ───────────────────────────────────────────────
	fetchOpts := engine.FetcherOptions{
		Guard:     guard,
		Timeout:   cfg.Fetch.Timeout,
		MinLength: cfg.Market.MinHTMLLength,
		UserAgent: cfg.Fetch.UserAgent,
	}
	direct := engine.NewDirectFetcher(fetchOpts)
	proxy := engine.NewProxyFetcher(cfg.Market.ProxyBase, fetchOpts)
	markup := extractor.NewMarkupExtractor(cfg.Market.MinHTMLLength)

	directStrategy := engine.NewFetchStrategy("direct", direct, markup)
	proxyStrategy := engine.NewFetchStrategy("proxy", proxy, markup)
	scraperStrategy := engine.NewFetchStrategy("scraper", direct, extractor.NewDOMExtractor(cfg.Market.MinHTMLLength))
	browserStrategy := scraper.NewPriceScraper(session, scraper.Options{
		Guard:                guard,
		NavigationTimeout:    cfg.Browser.NavigationTimeout,
		BlockedResourceTypes: cfg.Browser.BlockedResourceTypes,
		MinLength:            cfg.Market.MinHTMLLength,
	})

	// ── 4b. Fallback chain with per-URL strategy memory ─────────────
	memory := engine.NewStrategyMemory(24*time.Hour, cfg.Cache.MaxEntries)
	defer memory.Stop()
	chain := engine.DefaultChain(memory, directStrategy, proxyStrategy, browserStrategy)

	// ── 5. Quote cache ──────────────────────────────────────────────
	quotes := openCache(ctx, cfg.Cache)
	defer quotes.Close()

	prices := pricing.NewService(chain, quotes, directStrategy, proxyStrategy, scraperStrategy, browserStrategy)

	// ── 6. Reference table ──────────────────────────────────────────
	store, err := openReferenceStore(ctx, cfg.Reference)
	if err != nil {
		slog.Error("failed to open reference store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	notifier := webhook.New(cfg.Webhook.URL, cfg.Webhook.Secret)
	refs := reference.NewService(store, reference.NewAuditLog(cfg.Reference.AuditDir), notifier)
	if cfg.Reference.UpdateToken == "" {
		slog.Warn("PRICE_UPDATE_TOKEN is not set, update endpoints are disabled")
	}

	// ── 7. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(cfg, api.Deps{
		Prices:     prices,
		References: refs,
		Browser:    session,
		Guard:      guard,
		StartTime:  time.Now(),
	})

	// ── 8. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 9. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// session.Close() runs via defer and kills Chrome.
	slog.Info("pricewatch stopped")
}

// openCache selects the quote cache backend. A Redis outage at startup
// falls back to the in-memory cache.
func openCache(ctx context.Context, cfg config.CacheConfig) cache.Store {
	switch cfg.Backend {
	case "none":
		return cache.Nop{}
	case "redis":
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rc, err := cache.NewRedis(pingCtx, cfg.RedisURL, cfg.TTL)
		if err == nil {
			slog.Info("quote cache: redis", "ttl", cfg.TTL)
			return rc
		}
		slog.Warn("redis unavailable, using in-memory quote cache", "error", err)
	}
	return cache.NewMemory(cfg.MaxEntries, cfg.TTL)
}

func openReferenceStore(ctx context.Context, cfg config.ReferenceConfig) (reference.Store, error) {
	if cfg.Backend != "postgres" {
		return reference.NewMemoryStore(), nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return reference.NewPostgresStore(connectCtx, cfg.DatabaseURL)
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
