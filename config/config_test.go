package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Server.Debug())
	assert.Equal(t, "cardmarket.com", cfg.Market.Domain)
	assert.Equal(t, "https://corsproxy.io/?", cfg.Market.ProxyBase)
	assert.Equal(t, 1000, cfg.Market.MinHTMLLength)
	assert.Equal(t, 8*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 20*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, time.Duration(0), cfg.Browser.IdleTimeout)
	assert.Equal(t, []string{"Image", "Stylesheet", "Font", "Media"}, cfg.Browser.BlockedResourceTypes)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "memory", cfg.Reference.Backend)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("POKEBIM_MODE", "debug")
	t.Setenv("POKEBIM_PORT", "9090")
	t.Setenv("POKEBIM_FETCH_TIMEOUT", "3s")
	t.Setenv("POKEBIM_BLOCKED_RESOURCES", " Image , Font ,")
	t.Setenv("POKEBIM_RATE_RPS", "0.5")
	t.Setenv("POKEBIM_HEADLESS", "false")
	t.Setenv("PRICE_UPDATE_TOKEN", "s3cret")

	cfg := Load()

	assert.True(t, cfg.Server.Debug())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, []string{"Image", "Font"}, cfg.Browser.BlockedResourceTypes)
	assert.Equal(t, 0.5, cfg.RateLimit.RequestsPerSecond)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "s3cret", cfg.Reference.UpdateToken)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("POKEBIM_PORT", "eighty")
	t.Setenv("POKEBIM_NAV_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 20*time.Second, cfg.Browser.NavigationTimeout)
}
