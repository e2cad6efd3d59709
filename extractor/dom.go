package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/pokebim/pricewatch/models"
)

// priceSelectors are tried in order; the first group with at least one
// parsable price wins.
var priceSelectors = []struct {
	name string
	sel  cascadia.Selector
}{
	{"offer-row", cascadia.MustCompile(`[id^="articleRow"] .color-primary`)},
	{"article-row", cascadia.MustCompile(`.article-row .color-primary`)},
	{"primary", cascadia.MustCompile(`.color-primary`)},
}

var (
	termSel    = cascadia.MustCompile(`dt`)
	headingSel = cascadia.MustCompile(`h1`)
)

// priceFromLabels are the "From" labels of the product info list in the
// languages the marketplace is served in.
var priceFromLabels = map[string]struct{}{
	"from":        {},
	"desde":       {},
	"ab":          {},
	"à partir de": {},
	"a partir de": {},
	"da":          {},
}

// DOMExtractor parses the document and reads prices with CSS selectors.
type DOMExtractor struct {
	MinLength int
}

// NewDOMExtractor returns a DOMExtractor. minLength <= 0 selects MinDocumentLength.
func NewDOMExtractor(minLength int) *DOMExtractor {
	if minLength <= 0 {
		minLength = MinDocumentLength
	}
	return &DOMExtractor{MinLength: minLength}
}

// ScanDocument runs a default DOMExtractor over doc.
func ScanDocument(doc, sourceURL string) (*models.Extraction, error) {
	return NewDOMExtractor(MinDocumentLength).Extract(doc, sourceURL)
}

// Extract returns the listing prices of the first matching selector group,
// sorted ascending, plus the "From" summary price when the page shows one.
func (d *DOMExtractor) Extract(doc, sourceURL string) (*models.Extraction, error) {
	minLength := d.MinLength
	if minLength <= 0 {
		minLength = MinDocumentLength
	}
	if len(doc) < minLength {
		return nil, models.NewScrapeError(models.ErrCodeEmptyResponse, "document too short to contain prices", nil)
	}

	root, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeScrapeFailed, "failed to parse document", err)
	}

	var samples []models.Sample
	for _, ps := range priceSelectors {
		samples = collectSamples(root.FindMatcher(ps.sel), sourceURL)
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
		Title:     domTitle(root, doc, sourceURL),
		Method:    models.MethodDOM,
		Samples:   samples,
		PriceFrom: domPriceFrom(root),
	}, nil
}

func collectSamples(sel *goquery.Selection, sourceURL string) []models.Sample {
	var samples []models.Sample
	sel.Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if !strings.Contains(text, models.Currency) {
			return
		}
		v, ok := ParsePrice(text)
		if !ok {
			return
		}
		samples = append(samples, models.Sample{
			Value:     v,
			Text:      text,
			Method:    models.MethodDOM,
			SourceURL: sourceURL,
		})
	})
	return samples
}

func domPriceFrom(root *goquery.Document) float64 {
	var from float64
	root.FindMatcher(termSel).EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		label := strings.ToLower(strings.TrimSpace(dt.Text()))
		if _, ok := priceFromLabels[label]; !ok {
			return true
		}
		dd := dt.Next()
		if goquery.NodeName(dd) != "dd" {
			return true
		}
		if v, ok := ParsePrice(dd.Text()); ok {
			from = v
			return false
		}
		return true
	})
	return from
}

func domTitle(root *goquery.Document, doc, sourceURL string) string {
	if h1 := strings.TrimSpace(root.FindMatcher(headingSel).First().Text()); h1 != "" {
		return strings.Join(strings.Fields(h1), " ")
	}
	if t := readabilityTitle(doc, sourceURL); t != "" {
		return t
	}
	return documentTitle(doc)
}
