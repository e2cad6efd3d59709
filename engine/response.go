package engine

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/pokebim/pricewatch/blockpage"
	"github.com/pokebim/pricewatch/models"
)

// checkPage validates a fetched response. Non-2xx statuses and challenge
// pages become UPSTREAM_HTTP; bodies shorter than minLength become
// EMPTY_RESPONSE.
func checkPage(fetcher, rawURL, finalURL string, status int, body string, minLength int) (*Page, error) {
	if status < 200 || status > 299 {
		return nil, models.NewUpstreamError(status, fetcher+" fetch returned a non-success status")
	}
	if len(body) < minLength {
		return nil, models.NewScrapeError(models.ErrCodeEmptyResponse, fetcher+" fetch returned an empty or truncated page", nil)
	}
	if m, ok := blockpage.Detect(body); ok {
		slog.Warn("challenge page served instead of product page",
			"fetcher", fetcher,
			"url", rawURL,
			"signature", m.Signature,
		)
		return nil, models.NewUpstreamError(http.StatusForbidden, fetcher+" fetch was served a challenge page")
	}

	if finalURL == "" {
		finalURL = rawURL
	}
	return &Page{
		URL:        rawURL,
		FinalURL:   finalURL,
		HTML:       body,
		StatusCode: status,
		Fetcher:    fetcher,
	}, nil
}

// classifyFetchError maps transport errors to TIMEOUT or SCRAPE_FAILED.
func classifyFetchError(ctx context.Context, err error, msg string) *models.ScrapeError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg+": timed out", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return models.NewScrapeError(models.ErrCodeTimeout, msg+": timed out", err)
	default:
		return models.NewScrapeError(models.ErrCodeScrapeFailed, msg, err)
	}
}
