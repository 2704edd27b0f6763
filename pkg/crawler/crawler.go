package crawler

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/freellmstxt/llmstxt/pkg/config"
	"github.com/freellmstxt/llmstxt/pkg/detect"
	"github.com/freellmstxt/llmstxt/pkg/fetch"
	"github.com/freellmstxt/llmstxt/pkg/metrics"
	"github.com/freellmstxt/llmstxt/pkg/models"
	"github.com/freellmstxt/llmstxt/pkg/parse"
	"github.com/freellmstxt/llmstxt/pkg/process"
	"github.com/freellmstxt/llmstxt/pkg/sitemap"
	"github.com/freellmstxt/llmstxt/pkg/utils"
)

// ProgressFunc receives advisory progress events on the crawling goroutine. It must not block.
type ProgressFunc func(models.ProgressEvent)

// Crawler discovers and fetches the representative pages of a site.
// One Crawler may run many crawls concurrently; each Crawl has its own Session.
type Crawler struct {
	getter   fetch.Getter
	crawlCfg config.CrawlConfig
	content  config.ContentConfig
	exclude  []*regexp.Regexp
	recorder *metrics.Recorder
	log      *logrus.Entry
}

// NewCrawler creates a Crawler. appCfg should already be validated.
func NewCrawler(getter fetch.Getter, appCfg config.AppConfig, recorder *metrics.Recorder, log *logrus.Entry) (*Crawler, error) {
	exclude, err := utils.CompileRegexPatterns(appCfg.Crawl.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	return &Crawler{
		getter:   getter,
		crawlCfg: appCfg.Crawl,
		content:  appCfg.Content,
		exclude:  exclude,
		recorder: recorder,
		log:      log.WithField("component", "crawler"),
	}, nil
}

// Transport is the shared HTTP stack for crawls: one client, per-host limits and delay
type Transport struct {
	Client   *http.Client
	HostPool *fetch.HostSemaphorePool
	Fetcher  *fetch.Fetcher
}

// NewTransport builds the HTTP stack described by appCfg
func NewTransport(appCfg config.AppConfig, logger *logrus.Logger) *Transport {
	entry := logger.WithField("component", "fetch")
	client := fetch.NewClient(appCfg.HTTPClientSettings, logger)
	pool := fetch.NewHostSemaphorePool(appCfg.Crawl.MaxRequestsPerHost, entry)
	var limiter *fetch.RateLimiter
	if appCfg.Crawl.DelayPerHost > 0 {
		limiter = fetch.NewRateLimiter(appCfg.Crawl.DelayPerHost, entry)
	}
	return &Transport{
		Client:   client,
		HostPool: pool,
		Fetcher: fetch.NewFetcher(client, fetch.Options{
			UserAgent:    appCfg.Crawl.UserAgent,
			MaxBodyBytes: appCfg.Crawl.MaxBodyBytes,
			HostPool:     pool,
			RateLimiter:  limiter,
			DelayPerHost: appCfg.Crawl.DelayPerHost,
		}, entry),
	}
}

type fetchResult struct {
	index int
	page  models.PageInfo
}

// Crawl discovers up to target.MaxURLs pages under target.RootURL and fetches them.
// The only error is one wrapping utils.ErrInvalidTarget. Cancelling ctx returns what was
// fetched so far with Partial set.
func (c *Crawler) Crawl(ctx context.Context, target models.CrawlTarget, progress ProgressFunc) (*models.CrawlResult, error) {
	root, err := parse.NormalizeRoot(target.RootURL)
	if err != nil {
		return nil, err
	}
	if target.MaxURLs <= 0 {
		target.MaxURLs = c.crawlCfg.MaxURLs
	}
	if target.Timeout <= 0 {
		target.Timeout = c.crawlCfg.Timeout
	}

	emit := func(ev models.ProgressEvent) {
		if progress != nil {
			ev.Time = time.Now()
			progress(ev)
		}
	}

	crawlLog := c.log.WithFields(logrus.Fields{"root": root.String(), "max_urls": target.MaxURLs})
	result := &models.CrawlResult{Target: target, RootURL: root.String(), StartedAt: time.Now()}
	c.recorder.CrawlStarted()
	defer func() {
		c.recorder.CrawlFinished(result.Mode, len(result.Discovered))
	}()

	getter := fetch.WithTimeout(c.getter, target.Timeout)
	session := newSession(root, target.MaxURLs, target.SameDomainOnly, c.crawlCfg.IgnoreWWWEnabled(), c.exclude)

	// --- Discovery ---
	result.Mode = models.ModeRootOnly
	if target.MaxURLs > 1 {
		for _, strategy := range c.strategies(getter) {
			if ctx.Err() != nil || session.Exhausted() {
				break
			}
			mode := strategy.Mode()
			emit(models.ProgressEvent{Stage: models.StageDiscovering, Mode: mode, Message: fmt.Sprintf("Trying %s", mode)})
			if mode == models.ModeHTMLFallback {
				session.setOrigin(models.OriginHTMLFallback)
			}
			n := strategy.Attempt(ctx, session)
			crawlLog.WithFields(logrus.Fields{"mode": mode, "added": n}).Info("Discovery strategy finished")
			if n > 0 {
				result.Mode = mode
				break
			}
		}
	} else {
		crawlLog.Debug("Single URL requested, skipping discovery")
	}

	result.Discovered = session.finalize()
	result.Stats.URLsDiscovered = len(result.Discovered)
	result.Stats.SitemapsResolved = session.SitemapsVisited()
	if result.Mode == models.ModeRootOnly {
		crawlLog.Info("No URLs discovered, fetching the root only")
	}

	if ctx.Err() != nil {
		crawlLog.Warn("Crawl cancelled during discovery")
		result.Partial = true
		result.FinishedAt = time.Now()
		emit(models.ProgressEvent{Stage: models.StageDone, Mode: models.ModeDone, Message: "cancelled"})
		return result, nil
	}

	// --- Fetching ---
	total := len(result.Discovered)
	emit(models.ProgressEvent{Stage: models.StageFetching, Mode: models.ModeFetching, Completed: 0, Total: total,
		Message: fmt.Sprintf("fetching 0/%d", total)})

	pf := NewPageFetcher(getter, c.metadataOptions(), c.converter(target), c.recorder, c.log)
	pages, complete := c.fetchAll(ctx, pf, result.Discovered, func(done int) {
		emit(models.ProgressEvent{Stage: models.StageFetching, Mode: models.ModeFetching, Completed: done, Total: total,
			Message: fmt.Sprintf("fetching %d/%d", done, total)})
	})
	result.Pages = pages
	result.Partial = !complete
	for _, p := range pages {
		if p.OK() {
			result.Stats.PagesFetched++
		} else {
			result.Stats.PagesFailed++
		}
	}
	result.FinishedAt = time.Now()

	crawlLog.WithFields(logrus.Fields{
		"mode":     result.Mode,
		"fetched":  result.Stats.PagesFetched,
		"failed":   result.Stats.PagesFailed,
		"partial":  result.Partial,
		"duration": result.FinishedAt.Sub(result.StartedAt).String(),
	}).Info("Crawl finished")
	emit(models.ProgressEvent{Stage: models.StageDone, Mode: models.ModeDone, Completed: len(pages), Total: total})
	return result, nil
}

func (c *Crawler) strategies(getter fetch.Getter) []Strategy {
	resolver := sitemap.NewResolver(getter, c.crawlCfg.SitemapPaths, c.log).WithMaxDepth(c.crawlCfg.MaxSitemapDepth)
	return []Strategy{
		&robotsStrategy{robots: fetch.NewRobotsReader(getter, c.log), resolver: resolver},
		&patternStrategy{resolver: resolver},
		&htmlFallbackStrategy{getter: getter, log: c.log.WithField("strategy", "html_fallback")},
	}
}

func (c *Crawler) metadataOptions() process.MetadataOptions {
	return process.MetadataOptions{
		PreviewMinLength:          c.crawlCfg.PreviewMinLength,
		PreviewMaxLength:          c.crawlCfg.PreviewMaxLength,
		DescriptionFallbackLength: c.crawlCfg.DescriptionFallbackLength,
	}
}

func (c *Crawler) converter(target models.CrawlTarget) *process.ContentConverter {
	if !target.IncludeContent {
		return nil
	}
	return process.NewContentConverter(detect.NewContentDetector(c.log), c.content.MaxTokensPerPage, c.content.ChunkOverlap, c.log)
}

// fetchAll fetches every discovered URL with a bounded worker group and returns the pages in
// discovery order. On cancellation only pages that finished before it are returned, and
// complete is false.
func (c *Crawler) fetchAll(ctx context.Context, pf *PageFetcher, discovered []models.DiscoveredURL, onProgress func(done int)) ([]models.PageInfo, bool) {
	concurrency := c.crawlCfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	results := make(chan fetchResult, len(discovered))
	go func() {
		var g errgroup.Group
		g.SetLimit(concurrency)
		for i, d := range discovered {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				page := pf.Fetch(ctx, d.URL)
				if ctx.Err() != nil {
					return nil
				}
				results <- fetchResult{index: i, page: page}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	pages := make([]models.PageInfo, len(discovered))
	filled := make([]bool, len(discovered))
	done := 0
	for r := range results {
		pages[r.index] = r.page
		filled[r.index] = true
		done++
		onProgress(done)
	}

	if done == len(discovered) {
		return pages, true
	}
	kept := make([]models.PageInfo, 0, done)
	for i, p := range pages {
		if filled[i] {
			kept = append(kept, p)
		}
	}
	return kept, false
}
