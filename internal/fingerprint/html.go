package fingerprint

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// looksLikeHTML is a cheap gate so plain-text bodies skip the parser.
func looksLikeHTML(s string) bool {
	open := strings.IndexByte(s, '<')
	return open >= 0 && strings.IndexByte(s[open:], '>') > 0
}

// htmlToText reduces an HTML fragment to its visible text. Script and style
// contents are discarded. Falls back to the raw input if parsing fails.
func htmlToText(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	doc.Find("script, style, noscript").Remove()
	return doc.Text()
}
