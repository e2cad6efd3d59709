// Package extractor reads listing prices out of marketplace product pages.
//
// Two extractors share the same contract: a regex cascade over raw markup
// (MarkupExtractor) and a selector cascade over a parsed document
// (DOMExtractor). Both reject documents shorter than MinDocumentLength and
// fail with NO_PRICE_FOUND when nothing parses to a positive amount.
package extractor

import (
	"regexp"
	"strconv"
	"strings"
)

// MinDocumentLength is the shortest body treated as a real product page.
// Anything shorter is a block page, an error stub or an empty proxy reply.
const MinDocumentLength = 1000

var (
	numberRe    = regexp.MustCompile(`\d{1,3}(?:\.\d{3})+(?:,\d+)?|\d+(?:[.,]\d+)?`)
	thousandsRe = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
)

// ParsePrice parses the first amount in text, written the European way
// ("12,34 €", "1.234,56 €"). Dots before a decimal comma are thousands
// separators. It returns false when no positive amount is found.
func ParsePrice(text string) (float64, bool) {
	num := numberRe.FindString(text)
	if num == "" {
		return 0, false
	}

	switch {
	case strings.Contains(num, ","):
		num = strings.ReplaceAll(num, ".", "")
		num = strings.Replace(num, ",", ".", 1)
	case thousandsRe.MatchString(num):
		num = strings.ReplaceAll(num, ".", "")
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
