package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freellmstxt/llmstxt/pkg/utils"
)

func containsWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestAppConfig_Validate_Defaults(t *testing.T) {
	cfg := AppConfig{} // Zero value
	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.Empty(t, warnings)

	// Crawl defaults
	assert.Equal(t, DefaultUserAgent, cfg.Crawl.UserAgent)
	assert.Equal(t, 20, cfg.Crawl.MaxURLs)
	assert.Equal(t, 10*time.Second, cfg.Crawl.Timeout)
	assert.Equal(t, 5, cfg.Crawl.Concurrency)
	assert.Equal(t, 5, cfg.Crawl.MaxRequestsPerHost)
	assert.Equal(t, DefaultSitemapPaths, cfg.Crawl.SitemapPaths)
	assert.Equal(t, int64(10<<20), cfg.Crawl.MaxBodyBytes)
	assert.Equal(t, 100, cfg.Crawl.PreviewMinLength)
	assert.Equal(t, 500, cfg.Crawl.PreviewMaxLength)
	assert.Equal(t, 200, cfg.Crawl.DescriptionFallbackLength)

	// HTTP client defaults
	assert.Equal(t, 45*time.Second, cfg.HTTPClientSettings.Timeout)
	assert.Equal(t, 100, cfg.HTTPClientSettings.MaxIdleConns)
	assert.Equal(t, 5, cfg.HTTPClientSettings.MaxIdleConnsPerHost)
	assert.Equal(t, 90*time.Second, cfg.HTTPClientSettings.IdleConnTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTPClientSettings.TLSHandshakeTimeout)
	assert.Equal(t, 1*time.Second, cfg.HTTPClientSettings.ExpectContinueTimeout)
	assert.Equal(t, 15*time.Second, cfg.HTTPClientSettings.DialerTimeout)
	assert.Equal(t, 30*time.Second, cfg.HTTPClientSettings.DialerKeepAlive)
	assert.Equal(t, 10, cfg.HTTPClientSettings.MaxRedirects)

	// Generator, content, cache, server
	assert.Equal(t, 80, cfg.Generator.MaxTitleLength)
	assert.Equal(t, 200, cfg.Generator.MaxDescriptionLength)
	assert.Equal(t, 2000, cfg.Content.MaxTokensPerPage)
	assert.Equal(t, "cl100k_base", cfg.Content.TokenizerEncoding)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, ":8000", cfg.Server.ListenAddr)
	assert.Equal(t, 100, cfg.Server.MaxURLsLimit)
	assert.Equal(t, 2, cfg.MaxParallelSites)
}

func TestAppConfig_Validate_NegativeValuesWarn(t *testing.T) {
	cfg := AppConfig{
		Crawl: CrawlConfig{
			MaxURLs:         -1,
			Timeout:         -time.Second,
			Concurrency:     -3,
			DelayPerHost:    -time.Second,
			MaxSitemapDepth: -2,
		},
	}
	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Crawl.MaxURLs)
	assert.Equal(t, 10*time.Second, cfg.Crawl.Timeout)
	assert.Equal(t, 5, cfg.Crawl.Concurrency)
	assert.Equal(t, time.Duration(0), cfg.Crawl.DelayPerHost)
	assert.True(t, containsWarning(warnings, "crawl.max_urls cannot be negative"))
	assert.True(t, containsWarning(warnings, "crawl.timeout cannot be negative"))
	assert.True(t, containsWarning(warnings, "crawl.concurrency should be > 0"))
	assert.True(t, containsWarning(warnings, "crawl.delay_per_host cannot be negative"))
	assert.Zero(t, cfg.Crawl.MaxSitemapDepth)
	assert.True(t, containsWarning(warnings, "crawl.max_sitemap_depth cannot be negative"))
}

func TestAppConfig_Validate_ValidConfigKept(t *testing.T) {
	cfg := AppConfig{
		Crawl: CrawlConfig{
			UserAgent:    "custom/2.0",
			MaxURLs:      50,
			Timeout:      3 * time.Second,
			Concurrency:  8,
			SitemapPaths: []string{"sitemap.xml", "/docs/sitemap.xml"},
		},
	}
	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "custom/2.0", cfg.Crawl.UserAgent)
	assert.Equal(t, 50, cfg.Crawl.MaxURLs)
	assert.Equal(t, 3*time.Second, cfg.Crawl.Timeout)
	assert.Equal(t, 8, cfg.Crawl.Concurrency)
	assert.Equal(t, []string{"/sitemap.xml", "/docs/sitemap.xml"}, cfg.Crawl.SitemapPaths)
}

func TestAppConfig_Validate_PreviewBounds(t *testing.T) {
	cfg := AppConfig{Crawl: CrawlConfig{PreviewMinLength: 600, PreviewMaxLength: 300}}
	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Crawl.PreviewMinLength)
	assert.True(t, containsWarning(warnings, "preview_min_length"))
}

func TestAppConfig_Validate_BadExcludePattern(t *testing.T) {
	cfg := AppConfig{Crawl: CrawlConfig{ExcludePatterns: []string{"[bad"}}}
	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.Nil(t, cfg.Crawl.ExcludePatterns)
	assert.True(t, containsWarning(warnings, "exclude_patterns ignored"))
}

func TestAppConfig_Validate_CacheDirDefault(t *testing.T) {
	cfg := AppConfig{Cache: CacheConfig{Enabled: true}}
	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.Equal(t, "./llmstxt_cache", cfg.Cache.Dir)
	assert.True(t, containsWarning(warnings, "cache.dir is empty"))
}

func TestAppConfig_Validate_SiteError(t *testing.T) {
	cfg := AppConfig{Sites: map[string]SiteConfig{"docs": {}}}
	_, err := cfg.Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrConfigValidation)
	assert.Contains(t, err.Error(), "site 'docs'")
}

func TestSiteConfig_Validate(t *testing.T) {
	tests := []struct {
		name         string
		site         SiteConfig
		wantErr      bool
		wantWarning  string
		wantInterval time.Duration
		wantOutput   string
	}{
		{
			name:    "missing url",
			site:    SiteConfig{},
			wantErr: true,
		},
		{
			name:         "defaults interval",
			site:         SiteConfig{URL: "https://ex.test"},
			wantInterval: 24 * time.Hour,
		},
		{
			name:         "keeps interval",
			site:         SiteConfig{URL: "https://ex.test", Interval: time.Hour},
			wantInterval: time.Hour,
		},
		{
			name:         "negative max urls",
			site:         SiteConfig{URL: "https://ex.test", MaxURLs: -5},
			wantWarning:  "max_urls cannot be negative",
			wantInterval: 24 * time.Hour,
		},
		{
			name:         "output path sanitized",
			site:         SiteConfig{URL: "https://ex.test", Output: "../llms.txt"},
			wantWarning:  "must be a file name",
			wantInterval: 24 * time.Hour,
			wantOutput:   ".._llms.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings, err := tt.site.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, utils.ErrConfigValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantInterval, tt.site.Interval)
			if tt.wantWarning != "" {
				assert.True(t, containsWarning(warnings, tt.wantWarning), "warnings: %v", warnings)
			}
			if tt.wantOutput != "" {
				assert.Equal(t, tt.wantOutput, tt.site.Output)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
crawl:
  max_urls: 40
  timeout: 5s
  same_domain_only: false
  max_sitemap_depth: 4
generator:
  group_by_path: false
sites:
  docs:
    url: https://docs.ex.test
    interval: 6h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, warnings, err := Load(path, false)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 40, cfg.Crawl.MaxURLs)
	assert.Equal(t, 5*time.Second, cfg.Crawl.Timeout)
	assert.False(t, cfg.Crawl.SameDomainOnlyEnabled())
	assert.Equal(t, 4, cfg.Crawl.MaxSitemapDepth)
	assert.False(t, cfg.Generator.GroupingEnabled())
	require.Contains(t, cfg.Sites, "docs")
	assert.Equal(t, 6*time.Hour, cfg.Sites["docs"].Interval)
}

func TestLoad_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg, _, err := Load(missing, true)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Crawl.MaxURLs)

	_, _, err = Load(missing, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawl: [unclosed"), 0644))

	_, _, err := Load(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
