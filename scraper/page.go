package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/pokebim/pricewatch/extractor"
	"github.com/pokebim/pricewatch/market"
	"github.com/pokebim/pricewatch/models"
	"github.com/ysmood/gson"
)

// DefaultNavigationTimeout bounds navigation and the waits that follow it.
const DefaultNavigationTimeout = 20 * time.Second

// selectorWait is how long to wait for a price element after the DOM settles.
const selectorWait = 5 * time.Second

// Options configures a PriceScraper.
type Options struct {
	Guard                market.Guard
	NavigationTimeout    time.Duration
	BlockedResourceTypes []string

	// MinLength is passed to the markup fallback.
	MinLength int
}

// PriceScraper renders product pages in the shared browser and reads the
// listing prices from the live DOM.
type PriceScraper struct {
	session *Session
	opts    Options
	markup  *extractor.MarkupExtractor
}

// NewPriceScraper creates a PriceScraper on top of session.
func NewPriceScraper(session *Session, opts Options) *PriceScraper {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = DefaultNavigationTimeout
	}
	if opts.Guard.Domain == "" {
		opts.Guard = market.NewGuard("")
	}
	return &PriceScraper{
		session: session,
		opts:    opts,
		markup:  extractor.NewMarkupExtractor(opts.MinLength),
	}
}

func (s *PriceScraper) Name() string { return models.StrategyBrowser }

// Session exposes the shared browser session for health reporting.
func (s *PriceScraper) Session() *Session { return s.session }

// Scrape renders rawURL and returns its prices.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. URL guard             – rejects before the browser is touched
//  2. Acquire browser       – launches it on first use
//  3. New page + DEFER      – page is closed on every exit path
//  4. Stealth + identity    – stealth.JS, desktop UA, 1920x1080 viewport
//  5. Hijack mount          – block images/CSS/fonts/media and trackers
//  6. Navigate              – bounded by the navigation timeout
//  7. Wait                  – DOM stable, then best-effort price element
//  8. Evaluate              – prioritized selectors inside the page
//  9. Fallback              – markup cascade over the rendered HTML
//
// Steps 4-5 MUST happen before step 6: stealth JS and resource blocking only
// take effect for navigations that happen after they are installed.
func (s *PriceScraper) Scrape(ctx context.Context, rawURL string) (*models.Extraction, error) {
	// ── 1. URL guard ──────────────────────────────────────────────────
	u, err := s.opts.Guard.Check(rawURL)
	if err != nil {
		return nil, err
	}

	// ── 2. Acquire browser ────────────────────────────────────────────
	browser, release, err := s.session.Acquire()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeScrapeFailed, "browser unavailable", err)
	}
	defer release()

	// ── 3. New page, always closed ────────────────────────────────────
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.session.Reset(browser)
		return nil, models.NewScrapeError(models.ErrCodeScrapeFailed, "failed to open browser page", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Debug("cleanup: failed to close page", "error", closeErr)
		}
	}()

	// ── 4. Stealth and identity ───────────────────────────────────────
	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	}
	_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      market.RandomUserAgent(),
		AcceptLanguage: market.AcceptLanguage,
	})
	_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	})
	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{
			"Referer":         "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
			"Accept-Language": market.AcceptLanguage,
		}),
	}.Call(page)

	// ── 5. Mount hijack router ────────────────────────────────────────
	router := setupHijack(page, s.opts.BlockedResourceTypes)
	defer func() { _ = router.Stop() }()

	// ── 6. Navigate ───────────────────────────────────────────────────
	navCtx, cancel := context.WithTimeout(ctx, s.opts.NavigationTimeout)
	defer cancel()
	p := page.Context(navCtx)

	if err := p.Navigate(u.String()); err != nil {
		return nil, categorizeError(err, "navigation to product page failed")
	}

	// ── 7. Wait strategy ──────────────────────────────────────────────
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, categorizeError(err, "product page did not settle")
		}
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}
	if _, err := p.Timeout(selectorWait).Element(".color-primary"); err != nil {
		slog.Debug("price element did not appear, continuing", "url", rawURL, "error", err)
	}

	// ── 8. Evaluate in page ───────────────────────────────────────────
	live := page.Context(ctx)
	res, err := live.Eval(priceScript)
	if err != nil {
		return nil, categorizeError(err, "price evaluation failed")
	}
	var out evalResult
	if err := res.Value.Unmarshal(&out); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeScrapeFailed, "unexpected evaluation result", err)
	}

	ext := buildExtraction(out, rawURL)
	if len(ext.Samples) > 0 {
		return ext, nil
	}

	// ── 9. Markup fallback ────────────────────────────────────────────
	rawHTML, err := live.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to read rendered HTML")
	}
	fallback, err := s.markup.Extract(rawHTML, rawURL)
	if err != nil {
		return nil, err
	}
	fallback.Method = models.MethodBrowser
	if fallback.PriceFrom == 0 {
		fallback.PriceFrom = ext.PriceFrom
	}
	if ext.Title != "" {
		fallback.Title = ext.Title
	}
	return fallback, nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ScrapeErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeNavigationTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeScrapeFailed, msg, err)
	}
}
