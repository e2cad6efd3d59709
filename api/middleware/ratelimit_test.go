package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pokebim/pricewatch/config"
	"github.com/stretchr/testify/assert"
)

func TestVisitors_Wait(t *testing.T) {
	v := newVisitors(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 2})
	now := time.Now()

	assert.Zero(t, v.wait("1.2.3.4", now))
	assert.Zero(t, v.wait("1.2.3.4", now))
	assert.Greater(t, v.wait("1.2.3.4", now), time.Duration(0))

	// Buckets are per IP.
	assert.Zero(t, v.wait("5.6.7.8", now))

	// A rejected request does not consume a token.
	assert.Zero(t, v.wait("1.2.3.4", now.Add(time.Second)))
}

func TestVisitors_Sweep(t *testing.T) {
	v := newVisitors(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	now := time.Now()
	v.wait("old", now.Add(-2*visitorIdle))
	v.wait("new", now)

	v.sweep(now)

	assert.NotContains(t, v.byIP, "old")
	assert.Contains(t, v.byIP, "new")
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(config.RateLimitConfig{RequestsPerSecond: 0.5, Burst: 1}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
}

func TestRateLimit_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(config.RateLimitConfig{}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for range 10 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
