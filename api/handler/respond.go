// Package handler implements the HTTP endpoints of the price service.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pokebim/pricewatch/market"
	"github.com/pokebim/pricewatch/models"
	"github.com/pokebim/pricewatch/pricing"
	"github.com/pokebim/pricewatch/reference"
)

// CacheControl is sent with every successful price response so CDNs can
// serve repeated lookups.
const CacheControl = "s-maxage=3600, stale-while-revalidate=1800"

// PriceService is what the price endpoints need from pricing.Service.
type PriceService interface {
	Quote(ctx context.Context, rawURL, strategy string, policy pricing.Policy) (*models.Quote, []models.Attempt, error)
	Extract(ctx context.Context, rawURL, strategy string) (*models.Extraction, []models.Attempt, error)
}

// ReferenceService is what the reference endpoints need from reference.Service.
type ReferenceService interface {
	ReplaceAll(ctx context.Context, prices map[string]float64, timestamp string) error
	Set(ctx context.Context, name string, price float64) (*models.ReferencePrice, error)
	Get(ctx context.Context, name string) (*models.ReferencePrice, error)
	List(ctx context.Context, f reference.Filter) (reference.Table, models.ReferenceStats, error)
}

// respondError writes the error body and logs the failure.
func respondError(c *gin.Context, err error, attempts []models.Attempt) {
	se := models.AsScrapeError(err)
	status := mapErrorToStatus(se)

	body := models.ErrorResponse{
		Success:  false,
		Error:    se.Message,
		Code:     se.Code,
		Status:   se.Status,
		Attempts: attempts,
	}
	if gin.IsDebugging() {
		body.Stack = models.StackOf(err)
	}

	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	slog.Log(c.Request.Context(), level, "request failed",
		"path", c.FullPath(),
		"request_id", c.GetString("request_id"),
		"code", se.Code,
		"error", err,
	)

	c.JSON(status, body)
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeInvalidURL, models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeNoPriceFound, models.ErrCodePriceNotFound, models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	default:
		return http.StatusInternalServerError // 500
	}
}

// bindPriceQuery reads ?url=&strategy=. URL failures are reported with the
// guard's own message.
func bindPriceQuery(c *gin.Context, guard market.Guard) (*models.PriceQuery, error) {
	var q models.PriceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() != "URL" {
					continue
				}
				if _, gerr := guard.Check(q.URL); gerr != nil {
					return nil, gerr
				}
				return nil, models.NewScrapeError(models.ErrCodeInvalidURL, "invalid url", err)
			}
		}
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "invalid query: "+err.Error(), err)
	}
	q.Defaults()
	return &q, nil
}

func setCacheHeaders(c *gin.Context) {
	c.Header("Cache-Control", CacheControl)
}
