package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/freellmstxt/llmstxt/pkg/utils"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	warnings = append(warnings, c.Crawl.validate()...)

	// HTTPClientSettings defaults
	c.validateHTTPClientSettings()

	c.validateGenerator()
	c.validateContent()

	// Cache
	if c.Cache.Enabled && c.Cache.Dir == "" {
		warnings = append(warnings, "cache.enabled is true but cache.dir is empty, defaulting to './llmstxt_cache'")
		c.Cache.Dir = "./llmstxt_cache"
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 24 * time.Hour
	}

	// Server
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8000"
	}
	if c.Server.MaxURLsLimit <= 0 {
		c.Server.MaxURLsLimit = 100
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 120 * time.Second
	}

	if c.OutputDir == "" {
		c.OutputDir = "./llmstxt_output"
	}
	if c.StateFile == "" {
		c.StateFile = "./llmstxt_state.json"
	}
	if c.MaxParallelSites <= 0 {
		c.MaxParallelSites = 2
	}

	for key, site := range c.Sites {
		siteWarnings, siteErr := site.Validate()
		if siteErr != nil {
			return warnings, fmt.Errorf("site '%s': %w", key, siteErr)
		}
		for _, w := range siteWarnings {
			warnings = append(warnings, fmt.Sprintf("site '%s': %s", key, w))
		}
		c.Sites[key] = site
	}

	return warnings, nil
}

// validate applies crawl defaults and returns warnings for out-of-range values
func (c *CrawlConfig) validate() (warnings []string) {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}

	// MaxURLs
	if c.MaxURLs < 0 {
		warnings = append(warnings, "crawl.max_urls cannot be negative, defaulting to 20")
		c.MaxURLs = 20
	} else if c.MaxURLs == 0 {
		c.MaxURLs = 20
	}

	// Timeout
	if c.Timeout < 0 {
		warnings = append(warnings, "crawl.timeout cannot be negative, defaulting to 10s")
		c.Timeout = 10 * time.Second
	} else if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}

	// Concurrency
	if c.Concurrency < 0 {
		warnings = append(warnings, "crawl.concurrency should be > 0, defaulting to 5")
		c.Concurrency = 5
	} else if c.Concurrency == 0 {
		c.Concurrency = 5
	}

	// MaxRequestsPerHost
	if c.MaxRequestsPerHost <= 0 {
		c.MaxRequestsPerHost = c.Concurrency
	}

	if c.DelayPerHost < 0 {
		warnings = append(warnings, "crawl.delay_per_host cannot be negative, disabling delay")
		c.DelayPerHost = 0
	}

	// SitemapPaths
	if len(c.SitemapPaths) == 0 {
		c.SitemapPaths = append([]string(nil), DefaultSitemapPaths...)
	} else {
		for i, p := range c.SitemapPaths {
			if !strings.HasPrefix(p, "/") {
				c.SitemapPaths[i] = "/" + p
			}
		}
	}

	if c.MaxSitemapDepth < 0 {
		warnings = append(warnings, "crawl.max_sitemap_depth cannot be negative, following every level")
		c.MaxSitemapDepth = 0
	}

	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 10 << 20
	}

	// Preview bounds
	if c.PreviewMinLength <= 0 {
		c.PreviewMinLength = 100
	}
	if c.PreviewMaxLength <= 0 {
		c.PreviewMaxLength = 500
	}
	if c.PreviewMinLength > c.PreviewMaxLength {
		warnings = append(warnings, fmt.Sprintf(
			"crawl.preview_min_length (%d) > preview_max_length (%d), using preview_max_length for both",
			c.PreviewMinLength, c.PreviewMaxLength))
		c.PreviewMinLength = c.PreviewMaxLength
	}
	if c.DescriptionFallbackLength <= 0 {
		c.DescriptionFallbackLength = 200
	}

	if _, err := utils.CompileRegexPatterns(c.ExcludePatterns); err != nil {
		warnings = append(warnings, fmt.Sprintf("crawl.exclude_patterns ignored: %v", err))
		c.ExcludePatterns = nil
	}

	return warnings
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = c.Crawl.MaxRequestsPerHost
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
	if h.MaxRedirects <= 0 {
		h.MaxRedirects = 10
	}
}

func (c *AppConfig) validateGenerator() {
	g := &c.Generator
	if g.MaxTitleLength <= 3 {
		g.MaxTitleLength = 80
	}
	if g.MaxDescriptionLength <= 0 {
		g.MaxDescriptionLength = 200
	}
}

func (c *AppConfig) validateContent() {
	ct := &c.Content
	if ct.MaxTokensPerPage <= 0 {
		ct.MaxTokensPerPage = 2000
	}
	if ct.TokenizerEncoding == "" {
		ct.TokenizerEncoding = "cl100k_base"
	}
	if ct.ChunkOverlap < 0 || ct.ChunkOverlap >= ct.MaxTokensPerPage {
		ct.ChunkOverlap = 0
	}
}

// Validate checks SiteConfig fields and applies defaults.
// Returns collected warnings and any fatal error.
func (c *SiteConfig) Validate() (warnings []string, err error) {
	// Required: URL
	if strings.TrimSpace(c.URL) == "" {
		return nil, fmt.Errorf("%w: site has no url", utils.ErrConfigValidation)
	}
	if _, parseErr := url.Parse(c.URL); parseErr != nil {
		return nil, fmt.Errorf("%w: site url '%s' is invalid: %v", utils.ErrConfigValidation, c.URL, parseErr)
	}

	if c.MaxURLs < 0 {
		warnings = append(warnings, "max_urls cannot be negative, using the global default")
		c.MaxURLs = 0
	}

	if c.Interval < 0 {
		warnings = append(warnings, "interval cannot be negative, using 24h")
		c.Interval = 24 * time.Hour
	} else if c.Interval == 0 {
		c.Interval = 24 * time.Hour
	}

	if strings.ContainsAny(c.Output, `/\`) {
		warnings = append(warnings, fmt.Sprintf("output '%s' must be a file name, sanitizing", c.Output))
		c.Output = utils.SanitizeFilename(c.Output)
	}

	return warnings, nil
}
