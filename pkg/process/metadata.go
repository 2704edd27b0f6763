package process

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/freellmstxt/llmstxt/pkg/detect"
)

// MetadataOptions bounds the extracted text fields, all in runes
type MetadataOptions struct {
	PreviewMinLength          int // A preview candidate must be longer than this
	PreviewMaxLength          int // Longer previews are cut here and get "..."
	DescriptionFallbackLength int // Cap for descriptions taken from the first paragraph
}

// DefaultMetadataOptions returns the stock bounds (100, 500, 200)
func DefaultMetadataOptions() MetadataOptions {
	return MetadataOptions{PreviewMinLength: 100, PreviewMaxLength: 500, DescriptionFallbackLength: 200}
}

// Metadata is what a page says about itself
type Metadata struct {
	Title       string
	Description string
	Preview     string
}

const nonContentSelector = "script, style, noscript, template"

// ExtractMetadata reads title, description and content preview from doc without modifying it.
// pageURL is only used by the readability fallback for the preview.
func ExtractMetadata(doc *goquery.Document, pageURL *url.URL, opts MetadataOptions) Metadata {
	if opts.PreviewMaxLength <= 0 {
		opts = DefaultMetadataOptions()
	}

	meta := Metadata{
		Title:       collapseSpace(doc.Find("title").First().Text()),
		Description: metaContent(doc, "meta[name='description']", "meta[name='Description']", "meta[property='og:description']"),
	}

	if meta.Description == "" {
		doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
			if text := visibleText(p); text != "" {
				meta.Description = Ellipsize(text, opts.DescriptionFallbackLength)
				return false
			}
			return true
		})
	}

	doc.Find("p, article, main").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := visibleText(s)
		if utf8.RuneCountInString(text) > opts.PreviewMinLength {
			meta.Preview = truncateWithSuffix(text, opts.PreviewMaxLength)
			return false
		}
		return true
	})

	if meta.Preview == "" && pageURL != nil {
		if text, err := detect.NewReadabilityExtractor().ExtractText(doc, pageURL); err == nil &&
			utf8.RuneCountInString(text) > opts.PreviewMinLength {
			meta.Preview = truncateWithSuffix(text, opts.PreviewMaxLength)
		}
	}
	return meta
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if content := collapseSpace(doc.Find(sel).First().AttrOr("content", "")); content != "" {
			return content
		}
	}
	return ""
}

// visibleText returns the whitespace-collapsed text of s, ignoring script-like descendants
func visibleText(s *goquery.Selection) string {
	if s.Find(nonContentSelector).Length() == 0 {
		return collapseSpace(s.Text())
	}
	clone := s.Clone()
	clone.Find(nonContentSelector).Remove()
	return collapseSpace(clone.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateWithSuffix keeps the first max runes and appends "..." when anything was cut
func truncateWithSuffix(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

// Ellipsize shortens s to at most max runes, the last three being "..." when cut
func Ellipsize(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return strings.TrimRight(string([]rune(s)[:max-3]), " ") + "..."
}
