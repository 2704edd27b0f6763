package detect

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

var errEmptyArticle = errors.New("readability found no article content")

// ReadabilityExtractor finds the main article with Mozilla's Readability algorithm
type ReadabilityExtractor struct{}

// NewReadabilityExtractor creates a ReadabilityExtractor
func NewReadabilityExtractor() *ReadabilityExtractor {
	return &ReadabilityExtractor{}
}

func (r *ReadabilityExtractor) parse(doc *goquery.Document, pageURL *url.URL) (readability.Article, error) {
	rendered, err := doc.Html()
	if err != nil {
		return readability.Article{}, fmt.Errorf("rendering document: %w", err)
	}
	article, err := readability.FromReader(strings.NewReader(rendered), pageURL)
	if err != nil {
		return readability.Article{}, fmt.Errorf("readability: %w", err)
	}
	return article, nil
}

// Extract returns the article HTML as a selection plus readability's title
func (r *ReadabilityExtractor) Extract(doc *goquery.Document, pageURL *url.URL) (*goquery.Selection, string, error) {
	article, err := r.parse(doc, pageURL)
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(article.Content) == "" {
		return nil, "", errEmptyArticle
	}

	contentDoc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil, "", fmt.Errorf("parsing article HTML: %w", err)
	}
	content := contentDoc.Find("body").Children()
	if content.Length() == 0 {
		content = contentDoc.Find("body")
	}
	return content, strings.TrimSpace(article.Title), nil
}

// ExtractText returns the article's plain text with whitespace collapsed
func (r *ReadabilityExtractor) ExtractText(doc *goquery.Document, pageURL *url.URL) (string, error) {
	article, err := r.parse(doc, pageURL)
	if err != nil {
		return "", err
	}
	text := strings.Join(strings.Fields(article.TextContent), " ")
	if text == "" {
		return "", errEmptyArticle
	}
	return text, nil
}
