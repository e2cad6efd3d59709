package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pokebim/pricewatch/models"
	"github.com/pokebim/pricewatch/reference"
)

// ListReferences returns a handler for GET /reference-prices.
func ListReferences(svc ReferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q models.ReferenceQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "invalid query: "+err.Error(), err), nil)
			return
		}
		if q.Max > 0 && q.Min > q.Max {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "min must not exceed max", nil), nil)
			return
		}

		table, stats, err := svc.List(c.Request.Context(), reference.Filter{
			Min:     q.Min,
			Max:     q.Max,
			Query:   q.Query,
			ByPrice: q.Sort == "price",
		})
		if err != nil {
			respondError(c, err, nil)
			return
		}

		prices := []models.ReferencePrice(table)
		if prices == nil {
			prices = []models.ReferencePrice{}
		}
		c.JSON(http.StatusOK, models.ReferenceListResponse{
			Success: true,
			Prices:  prices,
			Stats:   stats,
		})
	}
}

// GetReference returns a handler for GET /reference-prices/:name.
func GetReference(svc ReferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, err := svc.Get(c.Request.Context(), c.Param("name"))
		if err != nil {
			respondError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, models.ReferenceEntryResponse{Success: true, ReferencePrice: *entry})
	}
}

// UpdatePrices returns a handler for POST /update-prices. The posted prices
// replace the whole reference table.
func UpdatePrices(svc ReferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.UpdatePricesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "invalid request body: "+err.Error(), err), nil)
			return
		}
		if len(req.Prices) == 0 {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "no prices provided", nil), nil)
			return
		}

		if err := svc.ReplaceAll(c.Request.Context(), req.Prices, req.Timestamp); err != nil {
			respondError(c, err, nil)
			return
		}

		c.JSON(http.StatusOK, models.UpdatePricesResponse{
			Success: true,
			Message: fmt.Sprintf("prices updated: %d products", len(req.Prices)),
			Count:   len(req.Prices),
		})
	}
}

// UpdateReference returns a handler for POST /update-reference-table.
func UpdateReference(svc ReferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.UpdateReferenceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "productId and a positive price are required", err), nil)
			return
		}

		entry, err := svc.Set(c.Request.Context(), req.ProductID, req.Price)
		if err != nil {
			respondError(c, err, nil)
			return
		}

		c.JSON(http.StatusOK, models.UpdateReferenceResponse{
			Success:   true,
			Message:   fmt.Sprintf("price updated for %s: %.2f%s", entry.Name, entry.Price, models.Currency),
			ProductID: entry.Name,
			Price:     entry.Price,
		})
	}
}
