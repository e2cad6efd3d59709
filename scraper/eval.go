package scraper

import (
	"strings"

	"github.com/pokebim/pricewatch/extractor"
	"github.com/pokebim/pricewatch/models"
)

// priceScript runs inside the rendered page. It walks the selector cascade
// and stops at the first selector that yields euro-priced text. Parsing
// happens in Go so every strategy normalizes amounts the same way.
const priceScript = `() => {
	const selectors = [
		'[id^="articleRow"] .color-primary',
		'.article-row .color-primary',
		'.color-primary',
	];
	let prices = [];
	for (const sel of selectors) {
		prices = Array.from(document.querySelectorAll(sel))
			.map(el => (el.textContent || '').trim())
			.filter(t => t.includes('€'));
		if (prices.length > 0) break;
	}

	const labels = ['from', 'desde', 'ab', 'à partir de', 'a partir de', 'da'];
	let priceFromText = '';
	for (const dt of document.querySelectorAll('dt')) {
		const label = (dt.textContent || '').trim().toLowerCase();
		if (!labels.includes(label)) continue;
		const dd = dt.nextElementSibling;
		if (dd && dd.tagName === 'DD') {
			priceFromText = (dd.textContent || '').trim();
			break;
		}
	}

	const h1 = document.querySelector('h1');
	return {
		title: (h1 && h1.textContent.trim()) || document.title || '',
		url: location.href,
		priceFromText,
		prices,
	};
}`

// evalResult is the object priceScript returns.
type evalResult struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	PriceFromText string   `json:"priceFromText"`
	Prices        []string `json:"prices"`
}

// buildExtraction turns the page evaluation into an Extraction. Unparseable
// texts are dropped and repeated amounts are kept once.
func buildExtraction(res evalResult, sourceURL string) *models.Extraction {
	ext := &models.Extraction{
		URL:    sourceURL,
		Title:  strings.TrimSpace(res.Title),
		Method: models.MethodBrowser,
	}
	if res.URL != "" {
		ext.URL = res.URL
	}

	seen := make(map[float64]struct{}, len(res.Prices))
	for _, text := range res.Prices {
		v, ok := extractor.ParsePrice(text)
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		ext.Samples = append(ext.Samples, models.Sample{
			Value:     v,
			Text:      strings.TrimSpace(text),
			Method:    models.MethodBrowser,
			SourceURL: sourceURL,
		})
	}
	models.SortSamples(ext.Samples)

	if v, ok := extractor.ParsePrice(res.PriceFromText); ok {
		ext.PriceFrom = v
	}
	return ext
}
