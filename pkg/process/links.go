package process

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/freellmstxt/llmstxt/pkg/parse"
)

// skippedHrefPrefixes never lead to crawlable pages
var skippedHrefPrefixes = []string{"#", "javascript:", "mailto:", "tel:", "data:"}

// ExtractLinks returns the absolute http(s) targets of every <a href> in doc, in document
// order, without fragments and without duplicates (compared after normalization).
// Relative hrefs resolve against <base href> when present, else against base, which should
// be the page URL after redirects. Domain filtering is left to the caller.
func ExtractLinks(doc *goquery.Document, base *url.URL) []string {
	if baseHref, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved, ok := parse.ResolveHTTP(base, baseHref); ok {
			base = resolved
		}
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || hasSkippedPrefix(href) {
			return
		}
		target, ok := parse.ResolveHTTP(base, href)
		if !ok {
			return
		}
		key := parse.NormalizeURL(target)
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, target.String())
	})
	return links
}

func hasSkippedPrefix(href string) bool {
	lower := strings.ToLower(href)
	for _, prefix := range skippedHrefPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
