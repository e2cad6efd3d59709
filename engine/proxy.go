package engine

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"github.com/pokebim/pricewatch/market"
)

// DefaultProxyBase is the public CORS proxy used when none is configured.
const DefaultProxyBase = "https://corsproxy.io/?"

// ProxyFetcher retrieves product pages through a CORS proxy that takes the
// URL-encoded target appended to its base URL.
type ProxyFetcher struct {
	client    *resty.Client
	base      string
	opts      FetcherOptions
	bodyLimit int64
	requests  atomic.Int64
}

// NewProxyFetcher creates a ProxyFetcher. An empty base selects DefaultProxyBase.
func NewProxyFetcher(base string, opts FetcherOptions) *ProxyFetcher {
	if strings.TrimSpace(base) == "" {
		base = DefaultProxyBase
	}
	return &ProxyFetcher{
		client: resty.New().
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)),
		base:      base,
		opts:      opts.withDefaults(),
		bodyLimit: maxBody,
	}
}

func (f *ProxyFetcher) Name() string { return "proxy" }

// Requests returns how many requests reached the network.
func (f *ProxyFetcher) Requests() int64 { return f.requests.Load() }

// ProxyURL wraps target for the proxy.
func (f *ProxyFetcher) ProxyURL(target string) string {
	return f.base + url.QueryEscape(target)
}

func (f *ProxyFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := f.opts.Guard.Check(rawURL)
	if err != nil {
		return nil, err
	}
	target := u.String()

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	f.requests.Add(1)
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeaders(map[string]string{
			"User-Agent":      f.opts.userAgent(),
			"Accept":          "text/html,application/xhtml+xml",
			"Accept-Language": market.AcceptLanguage,
			"Cache-Control":   "no-cache",
			"Pragma":          "no-cache",
		}).
		SetDoNotParseResponse(true).
		Get(f.ProxyURL(target))
	if err != nil {
		return nil, classifyFetchError(ctx, err, "proxy fetch failed")
	}
	raw := resp.RawBody()
	defer raw.Close()

	body, err := io.ReadAll(io.LimitReader(raw, f.bodyLimit))
	if err != nil {
		return nil, classifyFetchError(ctx, err, "proxy fetch: read body")
	}

	return checkPage(f.Name(), rawURL, target, resp.StatusCode(), string(body), f.opts.MinLength)
}
