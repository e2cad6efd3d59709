package extractor

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// documentTitle uses the Go HTML tokenizer to find the first <title> element.
func documentTitle(doc string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(doc))
	inTitle := false
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		}
	}
}

// readabilityTitle runs the Readability algorithm for pages whose product
// heading could not be located. Failures are not fatal.
func readabilityTitle(doc, sourceURL string) string {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil || sourceURL == "" {
		return ""
	}

	article, err := readability.FromReader(strings.NewReader(doc), parsedURL)
	if err != nil {
		slog.Debug("readability: title extraction failed", "url", sourceURL, "error", err)
		return ""
	}
	return strings.TrimSpace(article.Title)
}
