package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/freellmstxt/llmstxt/pkg/utils"
)

// Response is a fully read HTTP response
type Response struct {
	StatusCode  int
	FinalURL    *url.URL // URL after redirects
	Body        []byte
	ContentType string
}

// Getter performs a single GET. Non-2xx statuses return the response together with an
// error wrapping utils.ErrClientHTTPError, ErrServerHTTPError or ErrOtherHTTPError.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*Response, error)
}

// GetterFunc adapts a function to the Getter interface
type GetterFunc func(ctx context.Context, rawURL string) (*Response, error)

// Get calls f(ctx, rawURL)
func (f GetterFunc) Get(ctx context.Context, rawURL string) (*Response, error) {
	return f(ctx, rawURL)
}

// Options configures a Fetcher
type Options struct {
	UserAgent    string
	MaxBodyBytes int64              // Bodies are truncated at this size; <= 0 means 10 MiB
	HostPool     *HostSemaphorePool // Optional per-host concurrency bound
	RateLimiter  *RateLimiter       // Optional per-host minimum delay
	DelayPerHost time.Duration
}

// Fetcher issues single-attempt GET requests through a shared http.Client.
// There are no retries; callers treat any error as final.
type Fetcher struct {
	client *http.Client
	opts   Options
	log    *logrus.Entry
}

// NewFetcher creates a Fetcher
func NewFetcher(client *http.Client, opts Options, log *logrus.Entry) *Fetcher {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10 << 20
	}
	return &Fetcher{client: client, opts: opts, log: log}
}

// Get fetches rawURL and reads its body, honoring per-host limits
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrRequestCreation, err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8,*/*;q=0.5")

	host := req.URL.Host
	reqLog := f.log.WithField("url", rawURL)

	if f.opts.HostPool != nil {
		if err := f.opts.HostPool.Acquire(ctx, host); err != nil {
			return nil, fmt.Errorf("waiting for host slot: %w", err)
		}
		defer f.opts.HostPool.Release(host)
	}
	if f.opts.RateLimiter != nil {
		f.opts.RateLimiter.ApplyDelay(ctx, host, f.opts.DelayPerHost)
		defer f.opts.RateLimiter.UpdateLastRequestTime(host)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	httpResp, err := f.client.Do(req)
	if err != nil {
		reqLog.WithField("error_type", utils.CategorizeError(err)).Debugf("Request failed: %v", err)
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrResponseBodyRead, err)
	}

	resp := &Response{
		StatusCode:  httpResp.StatusCode,
		FinalURL:    httpResp.Request.URL,
		Body:        body,
		ContentType: httpResp.Header.Get("Content-Type"),
	}

	code := httpResp.StatusCode
	resLog := reqLog.WithFields(logrus.Fields{"status_code": code, "bytes": len(body)})
	switch {
	case code >= 200 && code < 300:
		resLog.Debug("Fetched")
		return resp, nil
	case code >= 400 && code < 500:
		resLog.Debug("Client error")
		return resp, fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, code, httpResp.Status)
	case code >= 500:
		resLog.Debug("Server error")
		return resp, fmt.Errorf("%w: status %d %s", utils.ErrServerHTTPError, code, httpResp.Status)
	default:
		resLog.Debug("Unexpected status")
		return resp, fmt.Errorf("%w: status %d %s", utils.ErrOtherHTTPError, code, httpResp.Status)
	}
}

type timeoutGetter struct {
	next    Getter
	timeout time.Duration
}

// WithTimeout bounds every Get on next by d. A non-positive d returns next unchanged.
func WithTimeout(next Getter, d time.Duration) Getter {
	if d <= 0 {
		return next
	}
	return &timeoutGetter{next: next, timeout: d}
}

func (t *timeoutGetter) Get(ctx context.Context, rawURL string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Get(ctx, rawURL)
}
