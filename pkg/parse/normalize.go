package parse

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/freellmstxt/llmstxt/pkg/utils"
)

// NormalizeURL standardizes a URL for deduplication.
// Scheme and host are lowercased, default ports dropped, fragment and query removed,
// an empty path becomes "/" and any other path loses its trailing slash.
// Does not modify the input *url.URL
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	normalized := *u

	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = stripDefaultPort(normalized.Scheme, strings.ToLower(normalized.Host))

	if normalized.Path == "" {
		normalized.Path = "/"
	} else if len(normalized.Path) > 1 && strings.HasSuffix(normalized.Path, "/") {
		normalized.Path = strings.TrimRight(normalized.Path, "/")
		if normalized.Path == "" {
			normalized.Path = "/"
		}
	}
	normalized.RawPath = ""
	normalized.Fragment = ""
	normalized.RawFragment = ""
	normalized.RawQuery = ""
	normalized.ForceQuery = false
	normalized.User = nil

	return normalized.String()
}

// SitemapKey identifies a sitemap document within a crawl. Scheme and host are
// canonicalized like NormalizeURL, but the path is kept as written and a non-empty
// query survives, since paginated sitemaps differ only by query.
func SitemapKey(u *url.URL) string {
	if u == nil {
		return ""
	}
	k := *u
	k.Scheme = strings.ToLower(k.Scheme)
	k.Host = stripDefaultPort(k.Scheme, strings.ToLower(k.Host))
	if k.Path == "" {
		k.Path = "/"
	}
	k.Fragment = ""
	k.RawFragment = ""
	k.ForceQuery = false
	k.User = nil
	return k.String()
}

func stripDefaultPort(scheme, host string) string {
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	if port == "" || (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		if strings.Contains(h, ":") {
			return "[" + h + "]"
		}
		return h
	}
	return host
}

// HostKey names the site a request host belongs to, for per-site bookkeeping where the
// scheme is not known. The host is lowercased, an empty or well-known (80, 443) port is
// dropped and a leading "www." is removed.
func HostKey(host string) string {
	host = strings.ToLower(host)
	if h, port, err := net.SplitHostPort(host); err == nil && (port == "" || port == "80" || port == "443") {
		host = h
		if strings.Contains(h, ":") {
			host = "[" + h + "]"
		}
	}
	return strings.TrimPrefix(host, "www.")
}

// IsHTTPScheme reports whether scheme is http or https, case-insensitively
func IsHTTPScheme(scheme string) bool {
	s := strings.ToLower(scheme)
	return s == "http" || s == "https"
}

// ResolveHTTP resolves ref against base and returns the absolute http(s) URL
// without its fragment. A nil base requires ref to be absolute.
// Returns false for empty refs, non-http(s) schemes and URLs without a host.
func ResolveHTTP(base *url.URL, ref string) (*url.URL, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, false
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil, false
	}
	if base != nil {
		parsed = base.ResolveReference(parsed)
	}
	if !IsHTTPScheme(parsed.Scheme) || parsed.Host == "" {
		return nil, false
	}
	parsed.Fragment = ""
	parsed.RawFragment = ""
	return parsed, true
}

// NormalizeRoot validates a user-supplied site root. A missing scheme defaults to https.
// Returns an error wrapping utils.ErrInvalidTarget for empty input, parse failures,
// non-http(s) schemes and empty hosts.
func NormalizeRoot(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty root URL", utils.ErrInvalidTarget)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrInvalidTarget, err)
	}
	if !IsHTTPScheme(parsed.Scheme) {
		return nil, fmt.Errorf("%w: unsupported scheme '%s'", utils.ErrInvalidTarget, parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host in '%s'", utils.ErrInvalidTarget, raw)
	}
	root, err := url.Parse(NormalizeURL(parsed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrInvalidTarget, err)
	}
	return root, nil
}

// DomainMatcher decides whether a URL belongs to the crawled site
type DomainMatcher struct {
	host      string
	enabled   bool
	ignoreWWW bool
}

// NewDomainMatcher builds a matcher for root's host. With enabled false every URL matches.
// With ignoreWWW, "www.host" and "host" are the same site.
func NewDomainMatcher(root *url.URL, enabled, ignoreWWW bool) DomainMatcher {
	m := DomainMatcher{enabled: enabled, ignoreWWW: ignoreWWW}
	if root != nil {
		m.host = m.canonicalHost(root)
	}
	return m
}

func (m DomainMatcher) canonicalHost(u *url.URL) string {
	host := stripDefaultPort(strings.ToLower(u.Scheme), strings.ToLower(u.Host))
	if m.ignoreWWW {
		host = strings.TrimPrefix(host, "www.")
	}
	return host
}

// Match reports whether u is on the matcher's site
func (m DomainMatcher) Match(u *url.URL) bool {
	if u == nil {
		return false
	}
	if !m.enabled {
		return true
	}
	return m.canonicalHost(u) == m.host
}
