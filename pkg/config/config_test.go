package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool {
	return &b
}

func TestCrawlConfig_BoolDefaults(t *testing.T) {
	var c CrawlConfig
	assert.True(t, c.SameDomainOnlyEnabled())
	assert.True(t, c.IgnoreWWWEnabled())

	c.SameDomainOnly = boolPtr(false)
	c.IgnoreWWW = boolPtr(false)
	assert.False(t, c.SameDomainOnlyEnabled())
	assert.False(t, c.IgnoreWWWEnabled())
}

func TestGeneratorConfig_BoolDefaults(t *testing.T) {
	var g GeneratorConfig
	assert.True(t, g.DescriptionsEnabled())
	assert.True(t, g.GroupingEnabled())
	assert.True(t, g.FooterEnabled())

	g.Footer = boolPtr(false)
	assert.False(t, g.FooterEnabled())
}

func TestGetEffectiveMaxURLs(t *testing.T) {
	appCfg := AppConfig{Crawl: CrawlConfig{MaxURLs: 20}}
	assert.Equal(t, 50, GetEffectiveMaxURLs(SiteConfig{MaxURLs: 50}, appCfg))
	assert.Equal(t, 20, GetEffectiveMaxURLs(SiteConfig{}, appCfg))
}

func TestGetEffectiveOutputFilename(t *testing.T) {
	assert.Equal(t, "llms.txt", GetEffectiveOutputFilename(SiteConfig{}))
	assert.Equal(t, "docs-llms.txt", GetEffectiveOutputFilename(SiteConfig{Output: "docs-llms.txt"}))
}

func TestGetEffectiveIncludeContent(t *testing.T) {
	assert.False(t, GetEffectiveIncludeContent(SiteConfig{}))
	assert.True(t, GetEffectiveIncludeContent(SiteConfig{IncludeContent: boolPtr(true)}))
}

func TestGetEffectiveGenerator(t *testing.T) {
	tests := []struct {
		name          string
		siteCfg       SiteConfig
		appCfg        AppConfig
		wantGrouping  bool
		wantDescribed bool
	}{
		{
			name:          "site nil uses global defaults",
			siteCfg:       SiteConfig{},
			appCfg:        AppConfig{},
			wantGrouping:  true,
			wantDescribed: true,
		},
		{
			name:          "site flat overrides global grouping",
			siteCfg:       SiteConfig{Flat: boolPtr(true)},
			appCfg:        AppConfig{Generator: GeneratorConfig{GroupByPath: boolPtr(true)}},
			wantGrouping:  false,
			wantDescribed: true,
		},
		{
			name:          "site no_descriptions overrides global",
			siteCfg:       SiteConfig{NoDescriptions: boolPtr(true)},
			appCfg:        AppConfig{},
			wantGrouping:  true,
			wantDescribed: false,
		},
		{
			name:          "site explicit false keeps global off",
			siteCfg:       SiteConfig{Flat: boolPtr(false)},
			appCfg:        AppConfig{Generator: GeneratorConfig{IncludeDescriptions: boolPtr(false)}},
			wantGrouping:  true,
			wantDescribed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := GetEffectiveGenerator(tt.siteCfg, tt.appCfg)
			assert.Equal(t, tt.wantGrouping, gen.GroupingEnabled())
			assert.Equal(t, tt.wantDescribed, gen.DescriptionsEnabled())
		})
	}
}
