package crawler

import (
	"net/url"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/freellmstxt/llmstxt/pkg/models"
	"github.com/freellmstxt/llmstxt/pkg/parse"
	"github.com/freellmstxt/llmstxt/pkg/utils"
)

// Session is the mutable state of one Crawl call. It is the sitemap.Collector the
// resolver feeds, and it owns deduplication, domain filtering and the shared capacity.
type Session struct {
	root    *url.URL
	rootKey string

	sitemapDomain parse.DomainMatcher // Honors SameDomainOnly
	linkDomain    parse.DomainMatcher // Always restricted to the root's site
	exclude       []*regexp.Regexp

	remaining atomic.Int64

	mu       sync.Mutex
	origin   models.Origin
	seen     map[string]bool
	sitemaps map[string]bool
	urls     []models.DiscoveredURL
}

func newSession(root *url.URL, maxURLs int, sameDomainOnly, ignoreWWW bool, exclude []*regexp.Regexp) *Session {
	s := &Session{
		root:          root,
		rootKey:       parse.NormalizeURL(root),
		sitemapDomain: parse.NewDomainMatcher(root, sameDomainOnly, ignoreWWW),
		linkDomain:    parse.NewDomainMatcher(root, true, ignoreWWW),
		exclude:       exclude,
		origin:        models.OriginSitemap,
		seen:          make(map[string]bool),
		sitemaps:      make(map[string]bool),
	}
	s.remaining.Store(int64(maxURLs))
	return s
}

// Root returns the normalized crawl root
func (s *Session) Root() *url.URL { return s.root }

// AddPage offers a URL found in a sitemap
func (s *Session) AddPage(u *url.URL) bool {
	return s.add(u, s.sitemapDomain)
}

// AddLink offers a URL found in a homepage anchor
func (s *Session) AddLink(u *url.URL) bool {
	return s.add(u, s.linkDomain)
}

// AddHomepage admits the anchors found on the homepage, then the homepage itself when at
// least one anchor was accepted. A slot is held for the homepage while the anchors are
// offered. Returns how many URLs were admitted, homepage included.
func (s *Session) AddHomepage(links []*url.URL) int {
	s.mu.Lock()
	held := !s.seen[s.rootKey] && s.take()
	s.mu.Unlock()

	added := 0
	for _, u := range links {
		if s.Exhausted() {
			break
		}
		if s.AddLink(u) {
			added++
		}
	}
	if held {
		s.remaining.Add(1)
	}
	if added > 0 && s.AddLink(s.root) {
		added++
	}
	return added
}

func (s *Session) add(u *url.URL, domain parse.DomainMatcher) bool {
	if u == nil || !parse.IsHTTPScheme(u.Scheme) || !domain.Match(u) {
		return false
	}
	key := parse.NormalizeURL(u)
	if key != s.rootKey && utils.MatchesAny(s.exclude, key) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[key] || !s.take() {
		return false
	}
	s.seen[key] = true
	s.urls = append(s.urls, models.DiscoveredURL{URL: key, Origin: s.origin, Index: len(s.urls)})
	return true
}

// take claims one unit of capacity
func (s *Session) take() bool {
	for {
		n := s.remaining.Load()
		if n <= 0 {
			return false
		}
		if s.remaining.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// MarkSitemap records a sitemap URL as visited; false when it was already.
// Spellings of one document (host case, default or empty port, bare "?") share a key.
func (s *Session) MarkSitemap(sitemapURL string) bool {
	key := sitemapURL
	if u, err := url.Parse(sitemapURL); err == nil {
		key = parse.SitemapKey(u)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sitemaps[key] {
		return false
	}
	s.sitemaps[key] = true
	return true
}

// Exhausted reports whether no capacity remains
func (s *Session) Exhausted() bool {
	return s.remaining.Load() <= 0
}

// Remaining returns the unclaimed capacity
func (s *Session) Remaining() int {
	return int(s.remaining.Load())
}

// Len returns how many URLs have been admitted
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

// SitemapsVisited returns how many distinct sitemap URLs were marked
func (s *Session) SitemapsVisited() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sitemaps)
}

func (s *Session) setOrigin(o models.Origin) {
	s.mu.Lock()
	s.origin = o
	s.mu.Unlock()
}

// finalize returns the discovered URLs with the root moved to the first slot when present.
// With nothing discovered the root alone is returned, tagged OriginRoot.
func (s *Session) finalize() []models.DiscoveredURL {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.urls) == 0 {
		return []models.DiscoveredURL{{URL: s.rootKey, Origin: models.OriginRoot, Index: 0}}
	}

	out := make([]models.DiscoveredURL, 0, len(s.urls))
	for _, d := range s.urls {
		if d.URL == s.rootKey {
			out = append(out, d)
			break
		}
	}
	for _, d := range s.urls {
		if d.URL != s.rootKey {
			out = append(out, d)
		}
	}
	for i := range out {
		out[i].Index = i
	}
	return out
}
