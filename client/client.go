// Package client calls the price service HTTP API. It backs the pricectl CLI
// and the MCP server.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pokebim/pricewatch/models"
	"github.com/rotisserie/eris"
)

// DefaultBaseURL is where a local pricewatch listens.
const DefaultBaseURL = "http://127.0.0.1:8080"

// Client is a typed wrapper over the API.
type Client struct {
	http  *resty.Client
	token string
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string // bearer token for the update endpoints

	// Timeout bounds each call. Browser lookups can take most of a minute.
	Timeout time.Duration
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 90 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "pricewatch-client/1.0")
	return &Client{http: rc, token: opts.Token}
}

// Price looks up the lowest listing price through GET /price.
func (c *Client) Price(ctx context.Context, productURL, strategy string) (*models.PriceResponse, error) {
	var out models.PriceResponse
	params := map[string]string{"url": productURL}
	if strategy != "" {
		params["strategy"] = strategy
	}
	if err := c.get(ctx, "/price", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BrowserPrices returns every listing price the rendered page shows.
func (c *Client) BrowserPrices(ctx context.Context, productURL string) (*models.BrowserPriceData, error) {
	var out models.BrowserPriceResponse
	if err := c.get(ctx, "/browser-price", map[string]string{"url": productURL}, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// References lists the reference table, filtered by name when query is set.
func (c *Client) References(ctx context.Context, query string) (*models.ReferenceListResponse, error) {
	var out models.ReferenceListResponse
	params := map[string]string{"sort": "price"}
	if query != "" {
		params["q"] = query
	}
	if err := c.get(ctx, "/reference-prices", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePrices replaces the reference table.
func (c *Client) UpdatePrices(ctx context.Context, prices map[string]float64, at time.Time) (*models.UpdatePricesResponse, error) {
	var out models.UpdatePricesResponse
	var apiErr models.ErrorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.token).
		SetBody(models.UpdatePricesRequest{Prices: prices, Timestamp: at.Format(time.RFC3339)}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/update-prices")
	if err := checkResponse(resp, err, &apiErr); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, result any) error {
	var apiErr models.ErrorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		SetError(&apiErr).
		Get(path)
	return checkResponse(resp, err, &apiErr)
}

// checkResponse converts transport failures and API error bodies into
// ScrapeErrors carrying the server's code.
func checkResponse(resp *resty.Response, err error, apiErr *models.ErrorResponse) error {
	if err != nil {
		return eris.Wrap(err, "request failed")
	}
	if !resp.IsError() {
		return nil
	}
	code := apiErr.Code
	if code == "" {
		code = codeForStatus(resp.StatusCode())
	}
	msg := apiErr.Error
	if msg == "" {
		msg = fmt.Sprintf("server returned %s", resp.Status())
	}
	se := models.NewScrapeError(code, msg, nil)
	se.Status = apiErr.Status
	return se
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return models.ErrCodeInvalidInput
	case http.StatusUnauthorized:
		return models.ErrCodeUnauthorized
	case http.StatusNotFound:
		return models.ErrCodeNotFound
	case http.StatusTooManyRequests:
		return models.ErrCodeRateLimited
	default:
		return models.ErrCodeInternal
	}
}
