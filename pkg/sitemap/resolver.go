package sitemap

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/freellmstxt/llmstxt/pkg/fetch"
	"github.com/freellmstxt/llmstxt/pkg/parse"
	"github.com/freellmstxt/llmstxt/pkg/queue"
	"github.com/freellmstxt/llmstxt/pkg/utils"
)

// Collector receives what the resolver finds. It owns deduplication, the domain filter
// and the remaining capacity.
type Collector interface {
	// AddPage offers a page URL; returns true when it was accepted
	AddPage(u *url.URL) bool
	// MarkSitemap records a sitemap by its parse.SitemapKey; returns false when it was already seen
	MarkSitemap(sitemapURL string) bool
	// Exhausted reports whether capacity has run out
	Exhausted() bool
}

// Resolver walks sitemap documents and feeds their page URLs to a Collector
type Resolver struct {
	getter   fetch.Getter
	paths    []string
	maxDepth int // Index levels followed below the first sitemap; 0 means no limit
	log      *logrus.Entry
}

// NewResolver creates a Resolver. paths is the ordered list of well-known locations used by Probe.
func NewResolver(getter fetch.Getter, paths []string, log *logrus.Entry) *Resolver {
	return &Resolver{
		getter: getter,
		paths:  paths,
		log:    log.WithField("component", "sitemap_resolver"),
	}
}

// WithMaxDepth caps how many index levels are followed below the first sitemap.
// Zero or less removes the cap; the visited set still stops cycles.
func (r *Resolver) WithMaxDepth(depth int) *Resolver {
	if depth < 0 {
		depth = 0
	}
	r.maxDepth = depth
	return r
}

// Resolve fetches sitemapURL and everything it references, offering page URLs to c.
// Returns the number of pages c accepted. Fetch and parse failures contribute nothing.
func (r *Resolver) Resolve(ctx context.Context, c Collector, sitemapURL string) int {
	if c.Exhausted() {
		return 0
	}
	start, ok := parse.ResolveHTTP(nil, sitemapURL)
	if !ok {
		r.log.WithField("sitemap_url", sitemapURL).Debug("Skipping non-http sitemap URL")
		return 0
	}
	key := parse.SitemapKey(start)
	if !c.MarkSitemap(key) {
		return 0
	}

	work := queue.NewWorklist()
	work.Push(queue.SitemapItem{URL: key})

	added := 0
	for !c.Exhausted() && ctx.Err() == nil {
		item, ok := work.Pop()
		if !ok {
			break
		}
		added += r.resolveOne(ctx, c, work, item)
	}
	return added
}

func (r *Resolver) resolveOne(ctx context.Context, c Collector, work *queue.Worklist, item queue.SitemapItem) int {
	smLog := r.log.WithFields(logrus.Fields{"sitemap_url": item.URL, "depth": item.Depth})

	resp, err := r.getter.Get(ctx, item.URL)
	if err != nil {
		smLog.Debugf("Sitemap fetch failed: %v", err)
		return 0
	}
	if err := checkSitemapContent(resp.ContentType); err != nil {
		smLog.WithField("error_type", utils.CategorizeError(err)).Debugf("Sitemap ignored: %v", err)
		return 0
	}
	doc, err := parse.ParseSitemap(maybeGunzip(resp.Body))
	if err != nil {
		smLog.Debugf("Sitemap ignored: %v", err)
		return 0
	}

	base := resp.FinalURL
	if base == nil {
		base, _ = url.Parse(item.URL)
	}

	if doc.Kind == parse.SitemapKindIndex {
		if r.maxDepth > 0 && item.Depth >= r.maxDepth {
			smLog.Debug("Sitemap index too deep, not following")
			return 0
		}
		queued := 0
		for _, loc := range doc.Locs {
			child, ok := parse.ResolveHTTP(base, loc)
			if !ok {
				continue
			}
			childKey := parse.SitemapKey(child)
			if !c.MarkSitemap(childKey) {
				continue
			}
			work.Push(queue.SitemapItem{URL: childKey, Depth: item.Depth + 1})
			queued++
		}
		smLog.WithField("children", queued).Debug("Sitemap index queued children")
		return 0
	}

	added := 0
	for _, loc := range doc.Locs {
		if c.Exhausted() {
			break
		}
		page, ok := parse.ResolveHTTP(base, loc)
		if !ok {
			continue
		}
		if c.AddPage(page) {
			added++
		}
	}
	smLog.WithFields(logrus.Fields{"locs": len(doc.Locs), "added": added}).Debug("Sitemap URL set processed")
	return added
}

// Probe tries the well-known sitemap paths under root in order and stops at the first
// one that contributes at least one page.
func (r *Resolver) Probe(ctx context.Context, c Collector, root *url.URL) int {
	for _, p := range r.paths {
		if c.Exhausted() || ctx.Err() != nil {
			return 0
		}
		candidate := (&url.URL{Scheme: root.Scheme, Host: root.Host, Path: p}).String()
		if n := r.Resolve(ctx, c, candidate); n > 0 {
			r.log.WithFields(logrus.Fields{"sitemap_url": candidate, "added": n}).Debug("Well-known sitemap found")
			return n
		}
	}
	return 0
}

// checkSitemapContent rejects HTML responses, which sites serve for missing sitemaps
// with a 200 status. Missing or other content types are left to the XML parser.
func checkSitemapContent(contentType string) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	if mediaType == "text/html" || mediaType == "application/xhtml+xml" {
		return fmt.Errorf("%w: %s", utils.ErrUnsupportedContent, mediaType)
	}
	return nil
}

// maybeGunzip inflates gzip bodies (sitemap.xml.gz); anything else is returned as-is
func maybeGunzip(body []byte) []byte {
	if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
		return body
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return body
	}
	defer zr.Close()
	inflated, err := io.ReadAll(io.LimitReader(zr, 50<<20))
	if err != nil {
		return body
	}
	return inflated
}
