// Package market knows which URLs belong to the marketplace and how to look
// like a desktop browser when asking it for pages.
package market

import (
	"net/url"
	"strings"

	"github.com/pokebim/pricewatch/models"
)

// DefaultDomain is the marketplace every price URL must point at.
const DefaultDomain = "cardmarket.com"

// Guard rejects URLs outside the marketplace before any network activity.
type Guard struct {
	Domain string
}

// NewGuard returns a Guard for domain, or DefaultDomain when empty.
func NewGuard(domain string) Guard {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		domain = DefaultDomain
	}
	return Guard{Domain: domain}
}

// Check parses raw and verifies it is an http(s) URL on the marketplace
// host or one of its subdomains. It fails with INVALID_URL otherwise.
func (g Guard) Check(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidURL, "missing url", nil)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidURL, "malformed url", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidURL, "url must use http or https", nil)
	}
	if !g.Allows(u.Hostname()) {
		return nil, models.NewScrapeError(models.ErrCodeInvalidURL, "url must point at "+g.domain(), nil)
	}
	return u, nil
}

// Valid reports whether raw would pass Check.
func (g Guard) Valid(raw string) bool {
	_, err := g.Check(raw)
	return err == nil
}

// Allows reports whether host is the marketplace domain or a subdomain of it.
func (g Guard) Allows(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	d := g.domain()
	return host == d || strings.HasSuffix(host, "."+d)
}

func (g Guard) domain() string {
	if g.Domain == "" {
		return DefaultDomain
	}
	return g.Domain
}
