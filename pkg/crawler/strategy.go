package crawler

import (
	"bytes"
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/freellmstxt/llmstxt/pkg/fetch"
	"github.com/freellmstxt/llmstxt/pkg/models"
	"github.com/freellmstxt/llmstxt/pkg/process"
	"github.com/freellmstxt/llmstxt/pkg/sitemap"
)

// Strategy is one step of the discovery chain. Attempt returns how many URLs it added
// to the session; the chain moves on only when that is zero.
type Strategy interface {
	Mode() models.DiscoveryMode
	Attempt(ctx context.Context, s *Session) int
}

// robotsStrategy resolves every sitemap listed in robots.txt, in file order
type robotsStrategy struct {
	robots   *fetch.RobotsReader
	resolver *sitemap.Resolver
}

func (r *robotsStrategy) Mode() models.DiscoveryMode { return models.ModeRobotsSitemap }

func (r *robotsStrategy) Attempt(ctx context.Context, s *Session) int {
	added := 0
	for _, sm := range r.robots.Sitemaps(ctx, s.Root()) {
		if s.Exhausted() || ctx.Err() != nil {
			break
		}
		added += r.resolver.Resolve(ctx, s, sm)
	}
	return added
}

// patternStrategy probes the well-known sitemap locations
type patternStrategy struct {
	resolver *sitemap.Resolver
}

func (p *patternStrategy) Mode() models.DiscoveryMode { return models.ModePatternSitemap }

func (p *patternStrategy) Attempt(ctx context.Context, s *Session) int {
	return p.resolver.Probe(ctx, s, s.Root())
}

// htmlFallbackStrategy collects same-site anchors from the homepage, one hop only
type htmlFallbackStrategy struct {
	getter fetch.Getter
	log    *logrus.Entry
}

func (h *htmlFallbackStrategy) Mode() models.DiscoveryMode { return models.ModeHTMLFallback }

func (h *htmlFallbackStrategy) Attempt(ctx context.Context, s *Session) int {
	root := s.Root().String()
	hLog := h.log.WithField("url", root)

	resp, err := h.getter.Get(ctx, root)
	if err != nil {
		hLog.Debugf("Homepage fetch failed: %v", err)
		return 0
	}
	if !isHTML(resp.ContentType) {
		hLog.WithField("content_type", resp.ContentType).Debug("Homepage is not HTML")
		return 0
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		hLog.Debugf("Homepage parse failed: %v", err)
		return 0
	}

	base := resp.FinalURL
	if base == nil {
		base = s.Root()
	}

	var links []*url.URL
	for _, link := range process.ExtractLinks(doc, base) {
		if u, err := url.Parse(link); err == nil {
			links = append(links, u)
		}
	}
	added := s.AddHomepage(links)
	hLog.WithFields(logrus.Fields{"links": len(links), "added": added}).Debug("Homepage links collected")
	return added
}
