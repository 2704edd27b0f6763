package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/freellmstxt/llmstxt/pkg/models"
	"github.com/freellmstxt/llmstxt/pkg/storage"
	"github.com/freellmstxt/llmstxt/pkg/utils"
)

// Runner runs one crawl. *Crawler and *CachingCrawler implement it.
type Runner interface {
	Crawl(ctx context.Context, target models.CrawlTarget, progress ProgressFunc) (*models.CrawlResult, error)
}

// CachingCrawler serves repeated targets from a ResultStore. Only complete crawls with at
// least one fetched page are stored.
type CachingCrawler struct {
	inner Runner
	store storage.ResultStore
	ttl   time.Duration
	log   *logrus.Entry
}

// NewCachingCrawler wraps inner with store. A nil store disables caching.
func NewCachingCrawler(inner Runner, store storage.ResultStore, ttl time.Duration, log *logrus.Entry) *CachingCrawler {
	return &CachingCrawler{inner: inner, store: store, ttl: ttl, log: log.WithField("component", "cache")}
}

// Crawl implements Runner
func (c *CachingCrawler) Crawl(ctx context.Context, target models.CrawlTarget, progress ProgressFunc) (*models.CrawlResult, error) {
	if c.store == nil {
		return c.inner.Crawl(ctx, target, progress)
	}

	key := storage.ResultKey(target)
	cached, err := c.store.GetResult(key)
	switch {
	case err == nil:
		c.log.WithField("url", target.RootURL).Info("Serving crawl result from cache")
		if progress != nil {
			progress(models.ProgressEvent{Stage: models.StageDone, Mode: models.ModeDone, Message: "cached",
				Completed: len(cached.Pages), Total: len(cached.Pages), Time: time.Now()})
		}
		return cached, nil
	case !errors.Is(err, utils.ErrCacheMiss):
		c.log.Warnf("Cache lookup failed, crawling: %v", err)
	}

	result, err := c.inner.Crawl(ctx, target, progress)
	if err != nil {
		return nil, err
	}
	if !result.Partial && result.Stats.PagesFetched > 0 {
		if putErr := c.store.PutResult(key, result, c.ttl); putErr != nil {
			c.log.Warnf("Failed to cache crawl result: %v", putErr)
		}
	}
	return result, nil
}
