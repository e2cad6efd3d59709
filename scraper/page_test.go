package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/pokebim/pricewatch/models"
	"github.com/stretchr/testify/assert"
)

func TestBuildExtraction(t *testing.T) {
	res := evalResult{
		Title:         "  Charizard  ",
		URL:           "https://www.cardmarket.com/en/Pokemon/Products/Singles/Base-Set/Charizard",
		PriceFromText: "9,99 €",
		Prices:        []string{"12,00 €", "8,00 €", "12,00 €", "n/a €", "1.250,50 €"},
	}

	ext := buildExtraction(res, "https://www.cardmarket.com/x")

	assert.Equal(t, "Charizard", ext.Title)
	assert.Equal(t, res.URL, ext.URL)
	assert.Equal(t, models.MethodBrowser, ext.Method)
	assert.Equal(t, []float64{8, 12, 1250.5}, ext.Prices())
	assert.Equal(t, 9.99, ext.PriceFrom)
	assert.Equal(t, "8,00 €", ext.Samples[0].Text)
}

func TestBuildExtraction_Empty(t *testing.T) {
	ext := buildExtraction(evalResult{}, "https://www.cardmarket.com/x")

	assert.Empty(t, ext.Samples)
	assert.Zero(t, ext.PriceFrom)
	assert.Equal(t, "https://www.cardmarket.com/x", ext.URL)
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, models.ErrCodeNavigationTimeout},
		{context.Canceled, models.ErrCodeTimeout},
		{errors.New("target closed"), models.ErrCodeScrapeFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categorizeError(tt.err, "nav").Code, tt.err.Error())
	}
}

func TestIsTrackerHost(t *testing.T) {
	assert.True(t, isTrackerHost("www.google-analytics.com"))
	assert.True(t, isTrackerHost("stats.g.doubleclick.net"))
	assert.True(t, isTrackerHost("HOTJAR.COM"))
	assert.False(t, isTrackerHost("www.cardmarket.com"))
	assert.False(t, isTrackerHost("static.cardmarket.com"))
}

func TestShouldBlock(t *testing.T) {
	blocked := blockSet([]string{"Image", "Font", "Unknown"})

	assert.Len(t, blocked, 2)
	assert.True(t, shouldBlock(blocked, proto.NetworkResourceTypeImage, "https://static.cardmarket.com/a.png"))
	assert.True(t, shouldBlock(blocked, proto.NetworkResourceTypeScript, "https://www.googletagmanager.com/gtm.js"))
	assert.False(t, shouldBlock(blocked, proto.NetworkResourceTypeScript, "https://static.cardmarket.com/app.js"))
	assert.False(t, shouldBlock(blocked, proto.NetworkResourceTypeDocument, "https://www.cardmarket.com/en/Pokemon"))
}

func TestToHeadersMap(t *testing.T) {
	h := toHeadersMap(map[string]string{"Referer": "https://www.google.com/"})
	assert.Equal(t, "https://www.google.com/", h["Referer"].String())
}
