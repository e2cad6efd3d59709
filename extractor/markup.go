package extractor

import (
	"html"
	"regexp"
	"strings"

	"github.com/pokebim/pricewatch/models"
)

// Pattern is one step of the markup cascade. The first capture group of Re
// holds the price text.
type Pattern struct {
	Name string
	Re   *regexp.Regexp
}

// DefaultPatterns are ordered from most to least specific. A generic
// pattern can pick up unrelated amounts (shipping, trends), so it only runs
// when every more specific pattern found nothing.
var DefaultPatterns = []Pattern{
	{
		Name: "offer-row",
		Re:   regexp.MustCompile(`(?is)id="articleRow[^"]*".*?<span[^>]*class="[^"]*\bcolor-primary\b[^"]*"[^>]*>\s*([0-9][0-9.]*,[0-9]+)\s*(?:&nbsp;|\s)*€`),
	},
	{
		Name: "primary-span",
		Re:   regexp.MustCompile(`<span class="color-primary[^>]*>([0-9][0-9.]*[,.][0-9]+) ?€</span>`),
	},
	{
		Name: "primary-class",
		Re:   regexp.MustCompile(`(?is)<span[^>]*class="[^"]*\bcolor-primary\b[^"]*"[^>]*>([^<]*?\d+,\d+[^<]*?)</span>`),
	},
	{
		Name: "euro-text",
		Re:   regexp.MustCompile(`([0-9][0-9.]*,[0-9]+)(?:\s|&nbsp;)*€`),
	},
}

// priceFromRe finds the "From" row of the product info list.
var priceFromRe = regexp.MustCompile(`(?is)<dt[^>]*>\s*(?:From|Desde|Ab|À partir de|A partir de|Da)\s*</dt>\s*<dd[^>]*>(.*?)</dd>`)

// MarkupExtractor scans raw HTML with an ordered regex cascade.
// It is pure: the same input always yields the same output.
type MarkupExtractor struct {
	Patterns  []Pattern
	MinLength int
}

// NewMarkupExtractor returns an extractor with DefaultPatterns.
// minLength <= 0 selects MinDocumentLength.
func NewMarkupExtractor(minLength int) *MarkupExtractor {
	if minLength <= 0 {
		minLength = MinDocumentLength
	}
	return &MarkupExtractor{Patterns: DefaultPatterns, MinLength: minLength}
}

// ScanMarkup runs the default cascade and returns the sorted prices.
func ScanMarkup(doc string) ([]float64, error) {
	ext, err := NewMarkupExtractor(MinDocumentLength).Extract(doc, "")
	if err != nil {
		return nil, err
	}
	return ext.Prices(), nil
}

// Extract returns every price found by the first pattern that yields at
// least one valid amount, sorted ascending.
func (m *MarkupExtractor) Extract(doc, sourceURL string) (*models.Extraction, error) {
	if len(doc) < m.minLength() {
		return nil, models.NewScrapeError(models.ErrCodeEmptyResponse, "document too short to contain prices", nil)
	}

	var samples []models.Sample
	for _, p := range m.Patterns {
		samples = matchPattern(p, doc, sourceURL)
		if len(samples) > 0 {
			break
		}
	}
	if len(samples) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeNoPriceFound, "no price found in document", nil)
	}
	models.SortSamples(samples)

	return &models.Extraction{
		URL:       sourceURL,
		Title:     documentTitle(doc),
		Method:    models.MethodMarkup,
		Samples:   samples,
		PriceFrom: markupPriceFrom(doc),
	}, nil
}

func (m *MarkupExtractor) minLength() int {
	if m.MinLength <= 0 {
		return MinDocumentLength
	}
	return m.MinLength
}

func matchPattern(p Pattern, doc, sourceURL string) []models.Sample {
	var samples []models.Sample
	for _, groups := range p.Re.FindAllStringSubmatch(doc, -1) {
		if len(groups) < 2 {
			continue
		}
		text := cleanText(groups[1])
		v, ok := ParsePrice(text)
		if !ok {
			continue
		}
		samples = append(samples, models.Sample{
			Value:     v,
			Text:      text,
			Method:    models.MethodMarkup,
			SourceURL: sourceURL,
		})
	}
	return samples
}

func markupPriceFrom(doc string) float64 {
	groups := priceFromRe.FindStringSubmatch(doc)
	if len(groups) < 2 {
		return 0
	}
	v, _ := ParsePrice(cleanText(groups[1]))
	return v
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

// cleanText strips nested tags and entities from a captured fragment.
func cleanText(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
