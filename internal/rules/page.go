// Package rules implements the five-checker rule engine that audits a
// fetched page for on-page SEO and accessibility problems.
package rules

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// Page is a parsed document plus the URL it was fetched from. A Page is
// read-only input to the checkers; they share no other state.
type Page struct {
	URL *url.URL
	Doc *goquery.Document
}

// ParsePage parses raw markup for checking. Malformed or empty markup
// does not fail; the HTML parser produces a best-effort tree and the
// checkers report whatever is missing.
func ParsePage(pageURL string, html []byte) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Page{URL: u, Doc: doc}, nil
}

// truncate bounds example snippets, ellipsis included in the budget.
func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-3]) + "..."
}
