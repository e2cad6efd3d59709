// Package scraper reads prices from product pages rendered in a headless
// browser. One browser process is shared by the whole service; every request
// gets its own page, which is closed when the request ends.
package scraper

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/pokebim/pricewatch/config"
	"github.com/pokebim/pricewatch/models"
	"golang.org/x/sync/singleflight"
)

// LaunchFunc starts a browser and returns a connected handle.
type LaunchFunc func() (*rod.Browser, error)

// SessionOptions configures a Session.
type SessionOptions struct {
	// Launch starts the browser. Required.
	Launch LaunchFunc

	// Close shuts a browser down. Defaults to (*rod.Browser).Close.
	Close func(*rod.Browser) error

	// IdleTimeout closes the browser after this long without open pages.
	// Zero keeps it for the life of the process.
	IdleTimeout time.Duration
}

// Session owns the process-wide browser. The browser is launched on first
// use; concurrent first callers wait for the same launch. A failed launch is
// not remembered, so the next caller tries again.
type Session struct {
	mu      sync.Mutex
	browser *rod.Browser
	opts    SessionOptions

	// launch runs outside mu so Stats and release never wait on Chromium.
	launch singleflight.Group

	launched  atomic.Bool
	lastUsed  atomic.Int64 // unix nanos
	openPages atomic.Int32
	launches  atomic.Int64
	failures  atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
}

// NewSession creates a Session that launches Chromium per cfg.
func NewSession(cfg config.BrowserConfig) *Session {
	return NewSessionWithOptions(SessionOptions{
		Launch:      Launcher(cfg),
		IdleTimeout: cfg.IdleTimeout,
	})
}

// NewSessionWithOptions creates a Session with a custom launcher.
func NewSessionWithOptions(opts SessionOptions) *Session {
	if opts.Close == nil {
		opts.Close = (*rod.Browser).Close
	}
	s := &Session{
		opts: opts,
		done: make(chan struct{}),
	}
	if opts.IdleTimeout > 0 {
		go s.idleLoop()
	}
	return s
}

// Launcher returns a LaunchFunc that starts a local headless Chromium with
// automation fingerprints removed.
func Launcher(cfg config.BrowserConfig) LaunchFunc {
	return func() (*rod.Browser, error) {
		l := launcher.New().
			Headless(cfg.Headless).
			NoSandbox(cfg.NoSandbox)

		if cfg.BrowserBin != "" {
			l = l.Bin(cfg.BrowserBin)
		}
		if cfg.Proxy != "" {
			l = l.Proxy(cfg.Proxy)
		}

		// ── Stealth flags ────────────────────────────────────────────────
		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))
		l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
		l.Set(flags.Flag("disable-dev-shm-usage"))
		l.Set(flags.Flag("disable-extensions"))
		l.Set(flags.Flag("disable-default-apps"))
		l.Set(flags.Flag("disable-component-update"))
		l.Set(flags.Flag("disable-background-timer-throttling"))
		l.Set(flags.Flag("disable-renderer-backgrounding"))
		l.Set(flags.Flag("hide-scrollbars"))
		l.Set(flags.Flag("no-first-run"))
		l.Set(flags.Flag("window-size"), "1920,1080")

		controlURL, err := l.Launch()
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeScrapeFailed, "failed to launch browser", err)
		}
		slog.Info("browser launched", "controlURL", controlURL)

		browser := rod.New().ControlURL(controlURL)
		if err := browser.Connect(); err != nil {
			return nil, models.NewScrapeError(models.ErrCodeScrapeFailed, "failed to connect to browser", err)
		}
		return browser, nil
	}
}

// Acquire returns the shared browser, launching it if needed, and marks a
// page as open. The returned release func must be called once the page is
// closed.
func (s *Session) Acquire() (*rod.Browser, func(), error) {
	for {
		if s.closed() {
			return nil, nil, errSessionClosed()
		}

		s.mu.Lock()
		browser := s.browser
		if browser != nil {
			s.openPages.Add(1)
			s.touch()
			s.mu.Unlock()
			return browser, s.releaseFunc(), nil
		}
		s.mu.Unlock()

		if _, err, _ := s.launch.Do("browser", s.launchShared); err != nil {
			return nil, nil, err
		}
		// The new browser may already be gone (Reset or idle close); go round.
	}
}

// launchShared starts the browser unless a previous flight already did.
func (s *Session) launchShared() (any, error) {
	s.mu.Lock()
	ready := s.browser != nil
	s.mu.Unlock()
	if ready {
		return nil, nil
	}

	browser, err := s.opts.Launch()
	if err != nil {
		s.failures.Add(1)
		return nil, err
	}
	s.launches.Add(1)

	s.mu.Lock()
	if s.closed() {
		s.mu.Unlock()
		if err := s.opts.Close(browser); err != nil {
			slog.Debug("closing browser launched during shutdown failed", "error", err)
		}
		return nil, errSessionClosed()
	}
	s.browser = browser
	s.launched.Store(true)
	s.touch()
	s.mu.Unlock()
	return nil, nil
}

func (s *Session) releaseFunc() func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.openPages.Add(-1)
			s.touch()
		})
	}
}

func (s *Session) touch() { s.lastUsed.Store(time.Now().UnixNano()) }

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// detach clears the shared browser. Caller holds mu.
func (s *Session) detach() {
	s.browser = nil
	s.launched.Store(false)
}

func errSessionClosed() error {
	return models.NewScrapeError(models.ErrCodeScrapeFailed, "browser session is closed", nil)
}

// Reset drops browser if it is still the shared one, so the next Acquire
// launches a fresh process. Used when the browser stopped answering.
func (s *Session) Reset(browser *rod.Browser) {
	s.mu.Lock()
	if s.browser != browser || browser == nil {
		s.mu.Unlock()
		return
	}
	s.detach()
	s.mu.Unlock()

	slog.Warn("browser session reset, next request relaunches")
	go func() {
		if err := s.opts.Close(browser); err != nil {
			slog.Debug("closing dead browser failed", "error", err)
		}
	}()
}

// Stats returns a snapshot of the session state.
func (s *Session) Stats() models.BrowserStats {
	return models.BrowserStats{
		Launched:   s.launched.Load(),
		Launches:   s.launches.Load(),
		OpenPages:  s.openPages.Load(),
		LaunchFail: s.failures.Load(),
	}
}

// Close kills the browser process. Call this on graceful shutdown to
// prevent zombie Chrome processes. Acquire fails afterwards.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		browser := s.browser
		s.detach()
		s.mu.Unlock()

		if browser == nil {
			return
		}
		slog.Info("browser session shutting down: closing browser")
		if err := s.opts.Close(browser); err != nil {
			slog.Warn("failed to close browser", "error", err)
		}
	})
}

// idleLoop closes the browser once no page has been open for IdleTimeout.
func (s *Session) idleLoop() {
	interval := s.opts.IdleTimeout / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.closeIfIdle()
		}
	}
}

func (s *Session) closeIfIdle() {
	s.mu.Lock()
	browser := s.browser
	idle := time.Since(time.Unix(0, s.lastUsed.Load()))
	if browser == nil || s.openPages.Load() > 0 || idle < s.opts.IdleTimeout {
		s.mu.Unlock()
		return
	}
	s.detach()
	s.mu.Unlock()

	slog.Info("closing idle browser", "idle", s.opts.IdleTimeout)
	if err := s.opts.Close(browser); err != nil {
		slog.Warn("failed to close idle browser", "error", err)
	}
}
