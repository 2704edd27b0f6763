package detect

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// Framework is a documentation site generator recognized by its markup
type Framework string

const (
	FrameworkUnknown     Framework = "unknown"
	FrameworkDocusaurus  Framework = "docusaurus"
	FrameworkMkDocs      Framework = "mkdocs"
	FrameworkSphinx      Framework = "sphinx"
	FrameworkGitBook     Framework = "gitbook"
	FrameworkReadTheDocs Framework = "readthedocs"
	FrameworkVitePress   Framework = "vitepress"
)

// genericSelector is tried when no framework matched and readability found nothing
const genericSelector = "main, article, [role='main']"

// DetectionResult describes where a page keeps its main content
type DetectionResult struct {
	Framework Framework
	Selector  string // Empty when Fallback is set
	Fallback  bool   // Use readability instead of a selector
}

// ContentDetector locates the main content region of pages.
// Results are remembered per host, so create one per crawl.
type ContentDetector struct {
	mu          sync.RWMutex
	byHost      map[string]DetectionResult
	readability *ReadabilityExtractor
	log         *logrus.Entry
}

// NewContentDetector creates a ContentDetector
func NewContentDetector(log *logrus.Entry) *ContentDetector {
	return &ContentDetector{
		byHost:      make(map[string]DetectionResult),
		readability: NewReadabilityExtractor(),
		log:         log.WithField("component", "content_detector"),
	}
}

// Detect returns the content location for doc, consulting the per-host memo first
func (d *ContentDetector) Detect(doc *goquery.Document, pageURL *url.URL) DetectionResult {
	host := pageURL.Hostname()

	d.mu.RLock()
	cached, ok := d.byHost[host]
	d.mu.RUnlock()
	if ok {
		return cached
	}

	result := DetectionResult{Framework: FrameworkUnknown, Fallback: true}
	if sig := matchSignature(doc); sig != nil {
		result = DetectionResult{Framework: sig.Framework, Selector: sig.Selector}
	}
	d.log.WithFields(logrus.Fields{"host": host, "framework": result.Framework}).Debug("Content location detected")

	d.mu.Lock()
	d.byHost[host] = result
	d.mu.Unlock()
	return result
}

// MainContent returns the page's main content as a detached selection plus the best title found.
// Order: framework selector, readability, generic landmarks, then <body>.
func (d *ContentDetector) MainContent(doc *goquery.Document, pageURL *url.URL) (*goquery.Selection, string, error) {
	title := doc.Find("title").First().Text()
	result := d.Detect(doc, pageURL)

	if !result.Fallback {
		if sel := doc.Find(result.Selector).First(); sel.Length() > 0 {
			return sel.Clone(), title, nil
		}
		d.log.WithField("selector", result.Selector).Debug("Framework selector missed, trying readability")
	}

	content, articleTitle, err := d.readability.Extract(doc, pageURL)
	if err == nil {
		if articleTitle != "" {
			title = articleTitle
		}
		return content, title, nil
	}
	d.log.WithField("url", pageURL.String()).Debugf("Readability failed: %v", err)

	if sel := doc.Find(genericSelector).First(); sel.Length() > 0 {
		return sel.Clone(), title, nil
	}
	if body := doc.Find("body"); body.Length() > 0 {
		return body.Clone(), title, nil
	}
	return nil, title, fmt.Errorf("no content region found on %s", pageURL)
}

// Known reports how many hosts have a remembered detection
func (d *ContentDetector) Known() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byHost)
}
