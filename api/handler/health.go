package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pokebim/pricewatch/models"
)

// Version is reported by /health. Overridden at build time with -ldflags.
var Version = "0.1.0"

// BrowserStatser reports the shared browser session state.
type BrowserStatser interface {
	Stats() models.BrowserStats
}

// Health returns a handler for GET /health.
//
// Reports "degraded" when the browser has failed to launch and is not
// running: browser-backed endpoints will keep failing until a launch works.
func Health(browser BrowserStatser, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		var stats models.BrowserStats
		if browser != nil {
			stats = browser.Stats()
		}

		status := "healthy"
		if !stats.Launched && stats.LaunchFail > 0 {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Browser: stats,
			Version: Version,
		})
	}
}
