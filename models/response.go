package models

import "time"

// ErrorDetail is the structured error carried by ScrapeError.ToDetail.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`

	// Status is the upstream HTTP status for UPSTREAM_HTTP errors.
	Status int `json:"status,omitempty"`

	// Attempts lists the fallback chain steps that were tried.
	Attempts []Attempt `json:"attempts,omitempty"`

	// Stack is only populated in debug mode.
	Stack string `json:"stack,omitempty"`
}

// PriceResponse is the response for GET /price.
type PriceResponse struct {
	Price    float64   `json:"price"`
	Strategy string    `json:"strategy,omitempty"`
	Attempts []Attempt `json:"attempts,omitempty"`
}

// ListingPriceResponse is the response for GET /proxy-price and GET /scraper-price.
type ListingPriceResponse struct {
	Success   bool    `json:"success"`
	Price     float64 `json:"price"`
	URL       string  `json:"url"`
	Timestamp string  `json:"timestamp"`
}

// BrowserPriceResponse is the response for GET /browser-price.
type BrowserPriceResponse struct {
	Success bool             `json:"success"`
	Data    BrowserPriceData `json:"data"`
}

// BrowserPriceData is the full browser extraction, with the "starting from"
// price kept apart from the listing prices.
type BrowserPriceData struct {
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	PriceFrom float64  `json:"priceFrom"`
	Prices    []Sample `json:"prices"`
}

// TestPriceResponse is the response for GET /test-price.
type TestPriceResponse struct {
	Success  bool    `json:"success"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Method   string  `json:"method"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status  string       `json:"status"` // "healthy" or "degraded"
	Uptime  string       `json:"uptime"`
	Browser BrowserStats `json:"browser"`
	Version string       `json:"version"`
}

// BrowserStats reports the state of the shared browser session.
type BrowserStats struct {
	Launched   bool  `json:"launched"`
	Launches   int64 `json:"launches"`
	OpenPages  int32 `json:"open_pages"`
	LaunchFail int64 `json:"launch_failures"`
}

// ReferencePrice is one row of the reference-price table.
type ReferencePrice struct {
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReferenceStats summarizes a set of reference prices.
type ReferenceStats struct {
	Count   int     `json:"count"`
	Lowest  float64 `json:"lowest"`
	Highest float64 `json:"highest"`
	Average float64 `json:"average"`
}

// ReferenceListResponse is the response for GET /reference-prices.
type ReferenceListResponse struct {
	Success bool             `json:"success"`
	Prices  []ReferencePrice `json:"prices"`
	Stats   ReferenceStats   `json:"stats"`
}

// ReferenceEntryResponse is the response for GET /reference-prices/:name.
type ReferenceEntryResponse struct {
	Success bool `json:"success"`
	ReferencePrice
}

// UpdatePricesResponse is the response for POST /update-prices.
type UpdatePricesResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// UpdateReferenceResponse is the response for POST /update-reference-table.
type UpdateReferenceResponse struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message"`
	ProductID string  `json:"productId"`
	Price     float64 `json:"price"`
}
