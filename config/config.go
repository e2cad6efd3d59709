package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Market    MarketConfig
	Fetch     FetchConfig
	Browser   BrowserConfig
	Cache     CacheConfig
	Reference ReferenceConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// RequestTimeout caps every request end to end.
	RequestTimeout time.Duration // default: 60s
}

// Debug reports whether stack traces may be returned to clients.
func (s ServerConfig) Debug() bool {
	return s.Mode == "debug"
}

// MarketConfig describes the marketplace being scraped.
type MarketConfig struct {
	// Domain is the only host (and its subdomains) price URLs may point at.
	Domain string // default: "cardmarket.com"

	// ProxyBase is prepended to the URL-encoded target by the proxy fetcher.
	ProxyBase string // default: "https://corsproxy.io/?"

	// MinHTMLLength is the shortest document treated as a real page.
	MinHTMLLength int // default: 1000
}

// FetchConfig controls the direct and proxy HTML fetchers.
type FetchConfig struct {
	// Timeout bounds each fetch.
	Timeout time.Duration // default: 8s

	// UserAgent overrides the rotating desktop user agents when set.
	UserAgent string
}

// BrowserConfig controls the shared Rod browser session.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is an optional upstream proxy for the browser.
	Proxy string

	// NavigationTimeout is the max time for page navigation alone.
	NavigationTimeout time.Duration // default: 20s

	// IdleTimeout closes the browser after this long without use. 0 keeps it forever.
	IdleTimeout time.Duration // default: 0

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// CacheConfig controls the price quote cache.
type CacheConfig struct {
	// Backend is "memory", "redis" or "none".
	Backend string // default: "memory"

	// RedisURL is used when Backend is "redis".
	RedisURL string

	// TTL is how long a quote is served from cache.
	TTL time.Duration // default: 1h

	// MaxEntries bounds the in-memory cache.
	MaxEntries int // default: 1000
}

// ReferenceConfig controls the reference-price table.
type ReferenceConfig struct {
	// Backend is "memory" or "postgres".
	Backend string // default: "memory"

	// DatabaseURL is used when Backend is "postgres".
	DatabaseURL string

	// UpdateToken is the bearer token for the update endpoints.
	// Empty disables them.
	UpdateToken string

	// AuditDir receives the daily price_updates_YYYY-MM-DD.json files.
	// Empty disables the audit log.
	AuditDir string
}

// RateLimitConfig controls per-client rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per client.
	Burst int // default: 10
}

// WebhookConfig controls reference-update notifications.
type WebhookConfig struct {
	URL    string
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		Server: ServerConfig{
			Host:           envOr("POKEBIM_HOST", "0.0.0.0"),
			Port:           envIntOr("POKEBIM_PORT", 8080),
			Mode:           envOr("POKEBIM_MODE", "release"),
			RequestTimeout: envDurationOr("POKEBIM_REQUEST_TIMEOUT", 60*time.Second),
		},
		Market: MarketConfig{
			Domain:        envOr("POKEBIM_MARKET_DOMAIN", "cardmarket.com"),
			ProxyBase:     envOr("POKEBIM_PROXY_BASE", "https://corsproxy.io/?"),
			MinHTMLLength: envIntOr("POKEBIM_MIN_HTML_LENGTH", 1000),
		},
		Fetch: FetchConfig{
			Timeout:   envDurationOr("POKEBIM_FETCH_TIMEOUT", 8*time.Second),
			UserAgent: os.Getenv("POKEBIM_USER_AGENT"),
		},
		Browser: BrowserConfig{
			Headless:          envBoolOr("POKEBIM_HEADLESS", true),
			NoSandbox:         envBoolOr("POKEBIM_NO_SANDBOX", false),
			BrowserBin:        os.Getenv("POKEBIM_BROWSER_BIN"),
			Proxy:             os.Getenv("POKEBIM_BROWSER_PROXY"),
			NavigationTimeout: envDurationOr("POKEBIM_NAV_TIMEOUT", 20*time.Second),
			IdleTimeout:       envDurationOr("POKEBIM_BROWSER_IDLE_TIMEOUT", 0),
			BlockedResourceTypes: envSliceOr("POKEBIM_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
		},
		Cache: CacheConfig{
			Backend:    envOr("POKEBIM_CACHE_BACKEND", "memory"),
			RedisURL:   os.Getenv("POKEBIM_REDIS_URL"),
			TTL:        envDurationOr("POKEBIM_CACHE_TTL", time.Hour),
			MaxEntries: envIntOr("POKEBIM_CACHE_MAX_ENTRIES", 1000),
		},
		Reference: ReferenceConfig{
			Backend:     envOr("POKEBIM_REFERENCE_BACKEND", "memory"),
			DatabaseURL: os.Getenv("POKEBIM_DATABASE_URL"),
			UpdateToken: os.Getenv("PRICE_UPDATE_TOKEN"),
			AuditDir:    os.Getenv("POKEBIM_AUDIT_DIR"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("POKEBIM_RATE_RPS", 5.0),
			Burst:             envIntOr("POKEBIM_RATE_BURST", 10),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("POKEBIM_WEBHOOK_URL"),
			Secret: os.Getenv("POKEBIM_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("POKEBIM_LOG_LEVEL", "info"),
			Format: envOr("POKEBIM_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
