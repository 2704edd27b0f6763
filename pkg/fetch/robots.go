package fetch

import (
	"bufio"
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

// RobotsReader extracts Sitemap directives from a site's robots.txt
type RobotsReader struct {
	getter Getter
	log    *logrus.Entry
}

// NewRobotsReader creates a RobotsReader that fetches through getter
func NewRobotsReader(getter Getter, log *logrus.Entry) *RobotsReader {
	return &RobotsReader{getter: getter, log: log.WithField("component", "robots")}
}

// Sitemaps returns the sitemap URLs listed in root's robots.txt, in file order.
// Relative values are resolved against the robots.txt URL. A missing file, a fetch
// failure or an empty file all yield nil.
func (r *RobotsReader) Sitemaps(ctx context.Context, root *url.URL) []string {
	robotsURL := &url.URL{Scheme: root.Scheme, Host: root.Host, Path: "/robots.txt"}
	robotsLog := r.log.WithField("robots_url", robotsURL.String())

	resp, err := r.getter.Get(ctx, robotsURL.String())
	if err != nil {
		robotsLog.Debugf("robots.txt unavailable: %v", err)
		return nil
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		robotsLog.Debug("robots.txt is empty")
		return nil
	}

	var directives []string
	data, parseErr := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if parseErr == nil && data != nil && len(data.Sitemaps) > 0 {
		directives = data.Sitemaps
	} else {
		if parseErr != nil {
			robotsLog.Debugf("robots.txt parser rejected body, scanning lines: %v", parseErr)
		}
		directives = scanSitemapDirectives(resp.Body)
	}

	base := robotsURL
	if resp.FinalURL != nil {
		base = resp.FinalURL
	}
	sitemaps := make([]string, 0, len(directives))
	for _, d := range directives {
		if u, ok := resolveDirective(base, d); ok {
			sitemaps = append(sitemaps, u)
		}
	}
	robotsLog.WithField("count", len(sitemaps)).Debug("Read sitemap directives")
	return sitemaps
}

// scanSitemapDirectives finds "Sitemap:" lines, case-insensitive, ignoring leading whitespace
func scanSitemapDirectives(body []byte) []string {
	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) < len("sitemap:") || !strings.EqualFold(line[:len("sitemap:")], "sitemap:") {
			continue
		}
		value := strings.TrimSpace(line[len("sitemap:"):])
		if i := strings.Index(value, " #"); i >= 0 {
			value = strings.TrimSpace(value[:i])
		}
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}

func resolveDirective(base *url.URL, value string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(value))
	if err != nil || value == "" {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}
