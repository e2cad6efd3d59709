package models

// Strategy names accepted by the price endpoints.
const (
	StrategyAuto    = "auto"
	StrategyDirect  = "direct"
	StrategyProxy   = "proxy"
	StrategyScraper = "scraper"
	StrategyBrowser = "browser"
)

// PriceQuery is the query string of every GET price endpoint.
type PriceQuery struct {
	// URL is the marketplace product page. Required.
	URL string `form:"url" binding:"required,marketplace"`

	// Strategy selects how the page is read. Only /price honours it.
	// Allowed: "auto" (default), "direct", "proxy", "scraper", "browser".
	Strategy string `form:"strategy" binding:"omitempty,oneof=auto direct proxy scraper browser"`
}

// Defaults applies default values to unset fields.
func (q *PriceQuery) Defaults() {
	if q.Strategy == "" {
		q.Strategy = StrategyAuto
	}
}

// ReferenceQuery filters GET /reference-prices.
type ReferenceQuery struct {
	Min   float64 `form:"min" binding:"omitempty,gte=0"`
	Max   float64 `form:"max" binding:"omitempty,gte=0"`
	Query string  `form:"q"`
	Sort  string  `form:"sort" binding:"omitempty,oneof=name price"`
}

// UpdatePricesRequest is the payload for POST /update-prices.
type UpdatePricesRequest struct {
	// Prices maps product names to their current lowest price.
	Prices map[string]float64 `json:"prices" binding:"required"`

	// Timestamp is the client's run time, stored as-is in the audit log.
	Timestamp string `json:"timestamp"`
}

// UpdateReferenceRequest is the payload for POST /update-reference-table.
type UpdateReferenceRequest struct {
	ProductID string  `json:"productId" binding:"required"`
	Price     float64 `json:"price" binding:"required,gt=0"`
}
