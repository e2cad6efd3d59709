package engine

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pokebim/pricewatch/market"
	tls "github.com/refraction-networking/utls"
)

// maxBody caps how much of a response is read.
const maxBody = 10 << 20

// DefaultFetchTimeout bounds a single fetch.
const DefaultFetchTimeout = 8 * time.Second

// FetcherOptions configures the direct and proxy fetchers.
type FetcherOptions struct {
	Guard market.Guard

	// Timeout bounds each fetch. Zero selects DefaultFetchTimeout.
	Timeout time.Duration

	// MinLength is the shortest body accepted. Zero selects 1000.
	MinLength int

	// UserAgent pins the User-Agent header. Empty rotates market.UserAgents.
	UserAgent string
}

func (o FetcherOptions) withDefaults() FetcherOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultFetchTimeout
	}
	if o.MinLength <= 0 {
		o.MinLength = 1000
	}
	if o.Guard.Domain == "" {
		o.Guard = market.NewGuard("")
	}
	return o
}

func (o FetcherOptions) userAgent() string {
	if o.UserAgent != "" {
		return o.UserAgent
	}
	return market.RandomUserAgent()
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Go's http.Transport cannot speak h2 over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// newChromeTransport returns a transport that presents a Chrome TLS
// fingerprint on HTTPS connections.
func newChromeTransport() *http.Transport {
	return &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("direct fetcher: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
		MaxIdleConns:      20,
		IdleConnTimeout:   90 * time.Second,
	}
}

// DirectFetcher GETs product pages straight from the marketplace with
// browser-like headers.
type DirectFetcher struct {
	client   *http.Client
	opts     FetcherOptions
	requests atomic.Int64
}

// NewDirectFetcher creates a DirectFetcher with a Chrome-like TLS fingerprint.
func NewDirectFetcher(opts FetcherOptions) *DirectFetcher {
	return &DirectFetcher{
		client: &http.Client{
			Transport: newChromeTransport(),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		opts: opts.withDefaults(),
	}
}

func (f *DirectFetcher) Name() string { return "direct" }

// Requests returns how many requests reached the network.
func (f *DirectFetcher) Requests() int64 { return f.requests.Load() }

func (f *DirectFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := f.opts.Guard.Check(rawURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, classifyFetchError(ctx, err, "direct fetch: build request")
	}
	setBrowserHeaders(req.Header, f.opts.userAgent())

	f.requests.Add(1)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyFetchError(ctx, err, "direct fetch failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, classifyFetchError(ctx, err, "direct fetch: read body")
	}

	return checkPage(f.Name(), rawURL, resp.Request.URL.String(), resp.StatusCode, string(body), f.opts.MinLength)
}

// setBrowserHeaders makes a request look like a desktop browser navigation
// that bypasses every cache layer.
func setBrowserHeaders(h http.Header, userAgent string) {
	h.Set("User-Agent", userAgent)
	h.Set("Accept", market.Accept)
	h.Set("Accept-Language", market.AcceptLanguage)
	h.Set("Accept-Encoding", "identity")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
}
