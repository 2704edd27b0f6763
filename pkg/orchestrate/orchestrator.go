package orchestrate

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/freellmstxt/llmstxt/pkg/config"
	"github.com/freellmstxt/llmstxt/pkg/crawler"
	"github.com/freellmstxt/llmstxt/pkg/generate"
	"github.com/freellmstxt/llmstxt/pkg/models"
	"github.com/freellmstxt/llmstxt/pkg/utils"
)

// SiteResult contains the result of generating llms.txt for a single site
type SiteResult struct {
	SiteKey      string
	Success      bool
	Error        error
	Mode         models.DiscoveryMode
	PagesFetched int
	PagesFailed  int
	ContentHash  string
	Written      bool // False when the output was unchanged and left on disk as is
	Files        *crawler.OutputFiles
	Duration     time.Duration
}

// Options controls what the orchestrator writes for each site
type Options struct {
	Metadata bool // Write crawl_metadata.yaml
	Tree     bool // Write site_tree.txt
	// Unchanged reports whether contentHash matches what was last written for siteKey.
	// When it returns true nothing is written for the site.
	Unchanged func(siteKey, contentHash string) bool
}

// Orchestrator generates llms.txt for several configured sites in parallel
type Orchestrator struct {
	appCfg *config.AppConfig
	runner crawler.Runner
	opts   Options
	log    *logrus.Entry
}

// NewOrchestrator creates an orchestrator. Crawls go through runner, which may be shared
// with other callers.
func NewOrchestrator(appCfg *config.AppConfig, runner crawler.Runner, opts Options, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{
		appCfg: appCfg,
		runner: runner,
		opts:   opts,
		log:    log.WithField("component", "orchestrator"),
	}
}

// Run generates every site in siteKeys, at most max_parallel_sites at a time, and returns
// the results in siteKeys order. Cancelling ctx stops sites that have not started.
func (o *Orchestrator) Run(ctx context.Context, siteKeys []string) []SiteResult {
	startTime := time.Now()
	o.log.Infof("Starting generation for %d sites: %v", len(siteKeys), siteKeys)

	limit := int64(o.appCfg.MaxParallelSites)
	if limit <= 0 {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)
	results := make([]SiteResult, len(siteKeys))
	done := make(chan struct{}, len(siteKeys))

	for i, siteKey := range siteKeys {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = SiteResult{SiteKey: siteKey, Error: fmt.Errorf("not started: %w", err)}
			done <- struct{}{}
			continue
		}
		go func() {
			defer sem.Release(1)
			results[i] = o.crawlSite(ctx, siteKey)
			done <- struct{}{}
		}()
	}
	for range siteKeys {
		<-done
	}

	o.logSummary(results, time.Since(startTime))
	return results
}

// crawlSite crawls, renders and writes one site
func (o *Orchestrator) crawlSite(ctx context.Context, siteKey string) (result SiteResult) {
	startTime := time.Now()
	result.SiteKey = siteKey
	siteLog := o.log.WithField("site", siteKey)
	defer func() { result.Duration = time.Since(startTime) }()

	siteCfg, exists := o.appCfg.Sites[siteKey]
	if !exists {
		result.Error = fmt.Errorf("site '%s' not found in configuration", siteKey)
		siteLog.Error(result.Error)
		return result
	}

	target := models.CrawlTarget{
		RootURL:        siteCfg.URL,
		MaxURLs:        config.GetEffectiveMaxURLs(siteCfg, *o.appCfg),
		Timeout:        o.appCfg.Crawl.Timeout,
		SameDomainOnly: o.appCfg.Crawl.SameDomainOnlyEnabled(),
		IncludeContent: config.GetEffectiveIncludeContent(siteCfg),
	}

	siteLog.Infof("Starting crawl of %s", siteCfg.URL)
	crawlResult, err := o.runner.Crawl(ctx, target, nil)
	if err != nil {
		result.Error = err
		siteLog.Errorf("Crawl failed: %v", err)
		return result
	}
	result.Mode = crawlResult.Mode
	result.PagesFetched = crawlResult.Stats.PagesFetched
	result.PagesFailed = crawlResult.Stats.PagesFailed

	switch {
	case crawlResult.Partial:
		result.Error = fmt.Errorf("crawl of '%s' was cancelled", siteKey)
		return result
	case crawlResult.Stats.PagesFetched == 0:
		result.Error = fmt.Errorf("no pages could be crawled from %s", crawlResult.RootURL)
		siteLog.Error(result.Error)
		return result
	}

	genOpts := generate.OptionsFromConfig(config.GetEffectiveGenerator(siteCfg, *o.appCfg))
	rendered := crawler.Render(crawlResult, genOpts, target.IncludeContent)
	result.ContentHash = rendered.ContentHash
	result.Success = true

	if o.opts.Unchanged != nil && o.opts.Unchanged(siteKey, rendered.ContentHash) {
		siteLog.Info("Content unchanged, keeping existing output")
		return result
	}

	om := crawler.NewOutputManager(siteLog, crawler.OutputOptions{
		Dir:          filepath.Join(o.appCfg.OutputDir, utils.SanitizeFilename(siteKey)),
		LLMSFilename: config.GetEffectiveOutputFilename(siteCfg),
		Full:         target.IncludeContent,
		Metadata:     o.opts.Metadata,
		Tree:         o.opts.Tree,
		SiteKey:      siteKey,
	})
	files, err := om.Write(crawlResult, rendered)
	if err != nil {
		result.Success = false
		result.Error = err
		return result
	}
	result.Files = files
	result.Written = true
	return result
}

// logSummary logs a summary of all site results
func (o *Orchestrator) logSummary(results []SiteResult, totalDuration time.Duration) {
	o.log.Info("============================================")
	o.log.Infof("Generation completed in %v", totalDuration.Round(time.Millisecond))
	o.log.Info("Site Results:")

	totalPages := 0
	successCount := 0
	failCount := 0

	for _, r := range results {
		status := "SUCCESS"
		switch {
		case !r.Success:
			status = "FAILED"
			failCount++
		case !r.Written:
			status = "UNCHANGED"
			successCount++
		default:
			successCount++
		}
		totalPages += r.PagesFetched

		o.log.Infof("  %s: %s - %d pages (%s) in %v", r.SiteKey, status, r.PagesFetched, r.Mode, r.Duration.Round(time.Millisecond))
		if r.Error != nil {
			o.log.Infof("    Error: %v", r.Error)
		}
	}

	o.log.Info("--------------------------------------------")
	o.log.Infof("Total: %d sites (%d success, %d failed), %d pages fetched",
		len(results), successCount, failCount, totalPages)
	o.log.Info("============================================")
}

// ValidateSiteKeys checks that all provided site keys exist in the config
func ValidateSiteKeys(appCfg *config.AppConfig, siteKeys []string) error {
	for _, key := range siteKeys {
		if _, exists := appCfg.Sites[key]; !exists {
			return fmt.Errorf("site '%s' not found. Available sites: %v", key, GetAllSiteKeys(appCfg))
		}
	}
	return nil
}

// GetAllSiteKeys returns all site keys from the config, sorted
func GetAllSiteKeys(appCfg *config.AppConfig) []string {
	keys := make([]string, 0, len(appCfg.Sites))
	for k := range appCfg.Sites {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
