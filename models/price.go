package models

import (
	"sort"
	"time"
)

// Extraction methods, recorded on every sample for provenance.
const (
	MethodMarkup  = "markup"
	MethodDOM     = "dom"
	MethodBrowser = "browser"
)

// Quote sources.
const (
	SourcePriceFrom = "price_from"
	SourceListing   = "listing"
)

// Currency is the only currency the marketplace pages are scraped in.
const Currency = "€"

// Sample is one price found on a product page.
type Sample struct {
	// Value is the normalized amount, always > 0.
	Value float64 `json:"price"`

	// Text is the raw text the value was parsed from.
	Text string `json:"text"`

	// Method names the extractor that produced the sample.
	Method string `json:"-"`

	// SourceURL is the page the sample was read from.
	SourceURL string `json:"-"`
}

// Extraction is everything one strategy read from a product page.
type Extraction struct {
	URL   string
	Title string

	// Method is the extractor that produced Samples.
	Method string

	// Samples are sorted ascending by Value. Duplicates are allowed.
	Samples []Sample

	// PriceFrom is the page's own "starting from" summary price.
	// Zero means the page did not show one.
	PriceFrom float64
}

// SortSamples orders samples ascending by value. Equal values keep their
// document order.
func SortSamples(samples []Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Value < samples[j].Value
	})
}

// Prices returns the sorted sample values.
func (e *Extraction) Prices() []float64 {
	out := make([]float64, len(e.Samples))
	for i, s := range e.Samples {
		out[i] = s.Value
	}
	return out
}

// Min returns the lowest sample value and whether any sample exists.
func (e *Extraction) Min() (float64, bool) {
	if e == nil || len(e.Samples) == 0 {
		return 0, false
	}
	return e.Samples[0].Value, true
}

// Quote is the single lowest price reported for a product URL.
type Quote struct {
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	Strategy  string    `json:"strategy"`
	Source    string    `json:"source"`
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Attempt records one step of a fallback chain.
type Attempt struct {
	Strategy   string `json:"strategy"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}
