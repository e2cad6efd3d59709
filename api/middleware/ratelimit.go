package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pokebim/pricewatch/config"
	"github.com/pokebim/pricewatch/models"
	"golang.org/x/time/rate"
)

const (
	visitorIdle  = time.Hour
	sweepEvery   = 5 * time.Minute
	retryCeiling = 60 * time.Second
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors holds one token bucket per client IP.
type visitors struct {
	mu    sync.Mutex
	byIP  map[string]*visitor
	limit rate.Limit
	burst int
}

func newVisitors(cfg config.RateLimitConfig) *visitors {
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &visitors{
		byIP:  make(map[string]*visitor),
		limit: rate.Limit(cfg.RequestsPerSecond),
		burst: burst,
	}
}

// wait reports how long ip must wait before its next request is allowed.
// Zero means the request may proceed now and a token was consumed.
func (v *visitors) wait(ip string, now time.Time) time.Duration {
	v.mu.Lock()
	vis, ok := v.byIP[ip]
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.byIP[ip] = vis
	}
	vis.lastSeen = now
	v.mu.Unlock()

	r := vis.limiter.ReserveN(now, 1)
	if !r.OK() {
		return retryCeiling
	}
	d := r.DelayFrom(now)
	if d > 0 {
		r.CancelAt(now)
	}
	return d
}

func (v *visitors) sweep(now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for ip, vis := range v.byIP {
		if now.Sub(vis.lastSeen) > visitorIdle {
			delete(v.byIP, ip)
		}
	}
}

// RateLimit throttles price lookups per client IP with a token bucket.
// Every lookup may open a browser page, so clients are turned away before
// any work starts. A non-positive rate disables the limiter.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	v := newVisitors(cfg)
	go func() {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for now := range ticker.C {
			v.sweep(now)
		}
	}()

	return func(c *gin.Context) {
		d := v.wait(c.ClientIP(), time.Now())
		if d <= 0 {
			c.Next()
			return
		}

		secs := int(math.Ceil(min(d, retryCeiling).Seconds()))
		c.Header("Retry-After", strconv.Itoa(secs))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
			Success: false,
			Error:   "rate limit exceeded, retry in " + strconv.Itoa(secs) + "s",
			Code:    models.ErrCodeRateLimited,
		})
	}
}
