package config

import "time"

// DefaultUserAgent identifies the crawler to site operators
const DefaultUserAgent = "FreeLLMsTxt-Bot/1.0"

// DefaultSitemapPaths are the well-known sitemap locations probed when robots.txt lists none, in order
var DefaultSitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/sitemaps.xml",
	"/sitemap1.xml",
	"/sitemap/sitemap.xml",
	"/wp-sitemap.xml",
	"/post-sitemap.xml",
	"/page-sitemap.xml",
}

// SiteConfig holds configuration for one site in batch and watch mode
type SiteConfig struct {
	URL            string        `yaml:"url"`
	MaxURLs        int           `yaml:"max_urls,omitempty"`
	Output         string        `yaml:"output,omitempty"`   // File name under the site's output directory
	Interval       time.Duration `yaml:"interval,omitempty"` // Watch regeneration interval
	IncludeContent *bool         `yaml:"include_content,omitempty"`
	Flat           *bool         `yaml:"flat,omitempty"`
	NoDescriptions *bool         `yaml:"no_descriptions,omitempty"`
}

// AppConfig holds the global application configuration
type AppConfig struct {
	Crawl              CrawlConfig           `yaml:"crawl"`
	HTTPClientSettings HTTPClientConfig      `yaml:"http_client_settings,omitempty"`
	Generator          GeneratorConfig       `yaml:"generator,omitempty"`
	Content            ContentConfig         `yaml:"content,omitempty"`
	Cache              CacheConfig           `yaml:"cache,omitempty"`
	Server             ServerConfig          `yaml:"server,omitempty"`
	OutputDir          string                `yaml:"output_dir,omitempty"`
	StateFile          string                `yaml:"state_file,omitempty"`
	MaxParallelSites   int                   `yaml:"max_parallel_sites,omitempty"`
	Sites              map[string]SiteConfig `yaml:"sites,omitempty"`
}

// CrawlConfig controls discovery and page fetching
type CrawlConfig struct {
	UserAgent                 string        `yaml:"user_agent,omitempty"`
	MaxURLs                   int           `yaml:"max_urls,omitempty"`
	Timeout                   time.Duration `yaml:"timeout,omitempty"`     // Per network operation
	Concurrency               int           `yaml:"concurrency,omitempty"` // Page fetch workers
	MaxRequestsPerHost        int           `yaml:"max_requests_per_host,omitempty"`
	DelayPerHost              time.Duration `yaml:"delay_per_host,omitempty"`
	SameDomainOnly            *bool         `yaml:"same_domain_only,omitempty"`
	IgnoreWWW                 *bool         `yaml:"ignore_www,omitempty"` // Treat www.host and host as the same site
	SitemapPaths              []string      `yaml:"sitemap_paths,omitempty"`
	MaxSitemapDepth           int           `yaml:"max_sitemap_depth,omitempty"` // Index levels followed; 0 = no limit
	MaxBodyBytes              int64         `yaml:"max_body_bytes,omitempty"`
	PreviewMinLength          int           `yaml:"preview_min_length,omitempty"`
	PreviewMaxLength          int           `yaml:"preview_max_length,omitempty"`
	DescriptionFallbackLength int           `yaml:"description_fallback_length,omitempty"`
	ExcludePatterns           []string      `yaml:"exclude_patterns,omitempty"` // Regexes matched against page URLs
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
	MaxRedirects          int           `yaml:"max_redirects,omitempty"`
}

// GeneratorConfig controls llms.txt rendering
type GeneratorConfig struct {
	IncludeDescriptions  *bool `yaml:"include_descriptions,omitempty"`
	GroupByPath          *bool `yaml:"group_by_path,omitempty"`
	MaxTitleLength       int   `yaml:"max_title_length,omitempty"`
	MaxDescriptionLength int   `yaml:"max_description_length,omitempty"`
	Footer               *bool `yaml:"footer,omitempty"`
}

// ContentConfig controls main-content extraction for llms-full.txt
type ContentConfig struct {
	MaxTokensPerPage  int    `yaml:"max_tokens_per_page,omitempty"`
	TokenizerEncoding string `yaml:"tokenizer_encoding,omitempty"`
	ChunkOverlap      int    `yaml:"chunk_overlap,omitempty"`
}

// CacheConfig controls the crawl result cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled,omitempty"`
	Dir     string        `yaml:"dir,omitempty"`
	TTL     time.Duration `yaml:"ttl,omitempty"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	ListenAddr     string        `yaml:"listen_addr,omitempty"`
	MaxURLsLimit   int           `yaml:"max_urls_limit,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
	AllowedOrigins []string      `yaml:"allowed_origins,omitempty"`
}

// boolOr dereferences p, falling back to def when unset
func boolOr(p *bool, def bool) bool {
	if p != nil {
		return *p
	}
	return def
}

// SameDomainOnlyEnabled returns the effective same-domain filter (default true)
func (c CrawlConfig) SameDomainOnlyEnabled() bool { return boolOr(c.SameDomainOnly, true) }

// IgnoreWWWEnabled returns whether "www." is ignored when comparing hosts (default true)
func (c CrawlConfig) IgnoreWWWEnabled() bool { return boolOr(c.IgnoreWWW, true) }

// DescriptionsEnabled returns whether link descriptions are rendered (default true)
func (c GeneratorConfig) DescriptionsEnabled() bool { return boolOr(c.IncludeDescriptions, true) }

// GroupingEnabled returns whether pages are grouped by first path segment (default true)
func (c GeneratorConfig) GroupingEnabled() bool { return boolOr(c.GroupByPath, true) }

// FooterEnabled returns whether the generated-by footer is written (default true)
func (c GeneratorConfig) FooterEnabled() bool { return boolOr(c.Footer, true) }

// GetEffectiveMaxURLs determines the URL cap for a site
func GetEffectiveMaxURLs(siteCfg SiteConfig, appCfg AppConfig) int {
	if siteCfg.MaxURLs > 0 {
		return siteCfg.MaxURLs
	}
	return appCfg.Crawl.MaxURLs
}

// GetEffectiveOutputFilename determines the llms.txt file name for a site
func GetEffectiveOutputFilename(siteCfg SiteConfig) string {
	if siteCfg.Output != "" {
		return siteCfg.Output
	}
	return "llms.txt"
}

// GetEffectiveIncludeContent determines whether llms-full.txt is produced for a site
func GetEffectiveIncludeContent(siteCfg SiteConfig) bool {
	return boolOr(siteCfg.IncludeContent, false)
}

// GetEffectiveGenerator merges a site's rendering overrides into the global generator settings
func GetEffectiveGenerator(siteCfg SiteConfig, appCfg AppConfig) GeneratorConfig {
	gen := appCfg.Generator
	if siteCfg.Flat != nil {
		group := !*siteCfg.Flat
		gen.GroupByPath = &group
	}
	if siteCfg.NoDescriptions != nil {
		include := !*siteCfg.NoDescriptions
		gen.IncludeDescriptions = &include
	}
	return gen
}
