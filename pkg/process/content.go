package process

import (
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/freellmstxt/llmstxt/pkg/detect"
	"github.com/freellmstxt/llmstxt/pkg/utils"
)

// PageContent is the main content of one page as markdown
type PageContent struct {
	Title      string
	Markdown   string
	TokenCount int
	Framework  detect.Framework
}

// ContentConverter turns a page's main content into budgeted markdown for llms-full.txt
type ContentConverter struct {
	detector     *detect.ContentDetector
	maxTokens    int
	chunkOverlap int
	log          *logrus.Entry
}

// NewContentConverter creates a ContentConverter. maxTokens <= 0 keeps whole pages.
func NewContentConverter(detector *detect.ContentDetector, maxTokens, chunkOverlap int, log *logrus.Entry) *ContentConverter {
	return &ContentConverter{
		detector:     detector,
		maxTokens:    maxTokens,
		chunkOverlap: chunkOverlap,
		log:          log.WithField("component", "content_converter"),
	}
}

// Convert extracts the main content of doc and converts it to markdown.
// doc is not modified; links and images are made absolute against pageURL.
func (c *ContentConverter) Convert(doc *goquery.Document, pageURL *url.URL) (*PageContent, error) {
	mainContent, title, err := c.detector.MainContent(doc, pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrParsing, err)
	}

	cleanupHTML(mainContent)
	absolutizeRefs(mainContent, pageURL)

	rendered, err := outerHTMLAll(mainContent)
	if err != nil {
		return nil, fmt.Errorf("%w: rendering content HTML: %v", utils.ErrParsing, err)
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(rendered)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrMarkdownConversion, err)
	}
	markdown = strings.TrimSpace(markdown)

	trimmed, err := TrimToTokenBudget(markdown, c.maxTokens, c.chunkOverlap)
	if err != nil {
		c.log.WithField("url", pageURL.String()).Warnf("Token budget trim failed, keeping full content: %v", err)
		trimmed = markdown
	}

	return &PageContent{
		Title:      strings.TrimSpace(title),
		Markdown:   trimmed,
		TokenCount: CountTokens(trimmed),
		Framework:  c.detector.Detect(doc, pageURL).Framework,
	}, nil
}

// outerHTMLAll renders every node of s, not only the first
func outerHTMLAll(s *goquery.Selection) (string, error) {
	var b strings.Builder
	for i := range s.Nodes {
		part, err := goquery.OuterHtml(s.Eq(i))
		if err != nil {
			return "", err
		}
		b.WriteString(part)
	}
	return b.String(), nil
}

// cleanupHTML strips navigation chrome and permalink anchors that add noise to markdown
func cleanupHTML(content *goquery.Selection) {
	content.Find("script, style, noscript, template, nav, footer, button").Remove()
	content.Find("a.headerlink, a.edit-on-github, a.permalink, a.hash-link").Remove()
	content.Find("a[title='Permalink to this heading'], a[title='Link to this heading']").Remove()

	content.Find("a").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		href, _ := s.Attr("href")
		if text == "¶" || text == "#" || (text == "" && strings.HasPrefix(href, "#")) {
			s.Remove()
		}
	})
}

// absolutizeRefs rewrites relative href and src attributes so the markdown stands alone
func absolutizeRefs(content *goquery.Selection, base *url.URL) {
	rewrite := func(attr string) func(int, *goquery.Selection) {
		return func(_ int, s *goquery.Selection) {
			ref := strings.TrimSpace(s.AttrOr(attr, ""))
			if ref == "" || strings.HasPrefix(ref, "#") || hasSkippedPrefix(ref) {
				return
			}
			if abs, err := base.Parse(ref); err == nil {
				s.SetAttr(attr, abs.String())
			}
		}
	}
	content.Find("a[href]").Each(rewrite("href"))
	content.Find("img[src]").Each(rewrite("src"))
}
