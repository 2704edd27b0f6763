package models

import "time"

// CrawlTarget is the immutable input to a single crawl
type CrawlTarget struct {
	RootURL        string        `json:"root_url" yaml:"root_url"`
	MaxURLs        int           `json:"max_urls" yaml:"max_urls"`
	Timeout        time.Duration `json:"timeout" yaml:"timeout"`                 // Bound for every individual network operation
	SameDomainOnly bool          `json:"same_domain_only" yaml:"same_domain_only"` // Filter sitemap page URLs to the root's host
	IncludeContent bool          `json:"include_content,omitempty" yaml:"include_content,omitempty"`
}

// DiscoveredURL is a normalized page URL admitted to a crawl session
type DiscoveredURL struct {
	URL    string `json:"url" yaml:"url"`
	Origin Origin `json:"origin" yaml:"origin"`
	Index  int    `json:"index" yaml:"index"` // Monotonic discovery order within the session
}

// PageInfo is the extraction result for one discovered URL.
// When FetchError is set the optional fields are empty.
type PageInfo struct {
	URL            string `json:"url" yaml:"url"`
	Title          string `json:"title,omitempty" yaml:"title,omitempty"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`
	ContentPreview string `json:"content_preview,omitempty" yaml:"content_preview,omitempty"`
	Content        string `json:"content,omitempty" yaml:"-"` // Markdown main content, only with IncludeContent
	TokenCount     int    `json:"token_count,omitempty" yaml:"token_count,omitempty"`
	FetchError     string `json:"fetch_error,omitempty" yaml:"fetch_error,omitempty"`
}

// OK reports whether the page was fetched and parsed without error
func (p PageInfo) OK() bool {
	return p.FetchError == ""
}

// CrawlStats summarizes a finished crawl
type CrawlStats struct {
	URLsDiscovered   int `json:"urls_discovered" yaml:"urls_discovered"`
	SitemapsResolved int `json:"sitemaps_resolved" yaml:"sitemaps_resolved"`
	PagesFetched     int `json:"pages_fetched" yaml:"pages_fetched"`
	PagesFailed      int `json:"pages_failed" yaml:"pages_failed"`
}

// CrawlResult is everything a crawl produced, in discovery order
type CrawlResult struct {
	Target     CrawlTarget     `json:"target" yaml:"target"`
	RootURL    string          `json:"root_url" yaml:"root_url"` // Normalized root
	Mode       DiscoveryMode   `json:"mode" yaml:"mode"`         // Strategy that produced the URL set
	Discovered []DiscoveredURL `json:"discovered" yaml:"discovered"`
	Pages      []PageInfo      `json:"pages" yaml:"pages"`
	Partial    bool            `json:"partial,omitempty" yaml:"partial,omitempty"` // Cancelled before all pages were fetched
	Stats      CrawlStats      `json:"stats" yaml:"stats"`
	StartedAt  time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time       `json:"finished_at" yaml:"finished_at"`
}

// SuccessfulPages returns the pages without a fetch error, in order
func (r *CrawlResult) SuccessfulPages() []PageInfo {
	out := make([]PageInfo, 0, len(r.Pages))
	for _, p := range r.Pages {
		if p.OK() {
			out = append(out, p)
		}
	}
	return out
}

// ProgressEvent is an advisory status update emitted during a crawl
type ProgressEvent struct {
	Stage     ProgressStage `json:"stage"`
	Mode      DiscoveryMode `json:"mode,omitempty"`
	Message   string        `json:"message,omitempty"`
	Completed int           `json:"completed,omitempty"`
	Total     int           `json:"total,omitempty"`
	Time      time.Time     `json:"time"`
}

// CrawlMetadata is the YAML summary written next to a generated llms.txt
type CrawlMetadata struct {
	SiteKey        string          `yaml:"site_key,omitempty"`
	RootURL        string          `yaml:"root_url"`
	DiscoveryMode  string          `yaml:"discovery_mode"`
	CrawlStartTime time.Time       `yaml:"crawl_start_time"`
	CrawlEndTime   time.Time       `yaml:"crawl_end_time"`
	Stats          CrawlStats      `yaml:"stats"`
	ContentHash    string          `yaml:"content_hash,omitempty"` // SHA-256 of the generated llms.txt
	TokenCount     int             `yaml:"token_count,omitempty"`
	Discovered     []DiscoveredURL `yaml:"discovered"`
	Pages          []PageInfo      `yaml:"pages"`
}
