package blockpage

import (
	"strings"

	"golang.org/x/net/html"
)

// skippedTags hold no user-visible text.
var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// VisibleText walks doc with the tokenizer and returns its visible text,
// whitespace-collapsed. The <title> is included.
func VisibleText(doc string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(doc))
	var sb strings.Builder
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if skippedTags[string(tn)] {
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if skippedTags[string(tn)] && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(tokenizer.Text())
				sb.WriteByte(' ')
			}
		}
	}
}
