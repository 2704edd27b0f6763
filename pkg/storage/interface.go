package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/freellmstxt/llmstxt/pkg/models"
	"github.com/freellmstxt/llmstxt/pkg/parse"
	"github.com/freellmstxt/llmstxt/pkg/utils"
)

// ResultStore caches finished crawl results by target
type ResultStore interface {
	// GetResult returns the cached result for key.
	// The error wraps utils.ErrCacheMiss when the key is absent or expired.
	GetResult(key string) (*models.CrawlResult, error)

	// PutResult stores result under key. ttl <= 0 keeps it until deleted.
	PutResult(key string, result *models.CrawlResult, ttl time.Duration) error

	// DeleteResult removes key; deleting a missing key is not an error
	DeleteResult(key string) error

	// Count returns the number of results written since the store was opened, plus any found on open
	Count() int64

	// RunGC runs periodic garbage collection. Should be run in a goroutine
	RunGC(ctx context.Context, interval time.Duration)

	// Close cleanly closes the database connection
	Close() error
}

// ResultKey derives the cache key for a crawl target. Targets that normalize to the same
// root and crawl the same way share a key.
func ResultKey(target models.CrawlTarget) string {
	root := strings.TrimSpace(target.RootURL)
	if u, err := parse.NormalizeRoot(root); err == nil {
		root = u.String()
	}
	raw := fmt.Sprintf("%s|max=%d|content=%t|same=%t", root, target.MaxURLs, target.IncludeContent, target.SameDomainOnly)
	return utils.CalculateStringSHA256(raw)
}
