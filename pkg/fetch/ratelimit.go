package fetch

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RateLimiter enforces a minimum delay between requests to the same host
type RateLimiter struct {
	lastRequest   map[string]time.Time // host -> last request attempt
	lastRequestMu sync.Mutex
	defaultDelay  time.Duration
	log           *logrus.Entry
}

// NewRateLimiter creates a RateLimiter. defaultDelay applies when ApplyDelay gets a non-positive delay.
func NewRateLimiter(defaultDelay time.Duration, log *logrus.Entry) *RateLimiter {
	return &RateLimiter{
		lastRequest:  make(map[string]time.Time),
		defaultDelay: defaultDelay,
		log:          log,
	}
}

// ApplyDelay waits until minDelay (+/- 10% jitter) has passed since the last request to host.
// Returns early when ctx is done.
func (rl *RateLimiter) ApplyDelay(ctx context.Context, host string, minDelay time.Duration) {
	if minDelay <= 0 {
		minDelay = rl.defaultDelay
	}
	if minDelay <= 0 {
		return
	}

	rl.lastRequestMu.Lock()
	last, seen := rl.lastRequest[host]
	rl.lastRequestMu.Unlock()
	if !seen {
		return
	}

	elapsed := time.Since(last)
	if elapsed >= minDelay {
		return
	}
	wait := minDelay - elapsed
	if spread := int64(wait) / 5; spread > 0 {
		wait += time.Duration(rand.Int63n(spread)) - wait/10
	}
	if wait <= 0 {
		return
	}

	rl.log.WithFields(logrus.Fields{"host": host, "sleep": wait, "required_delay": minDelay}).Debug("Rate limit sleeping")
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// UpdateLastRequestTime records now as the last request time for host
func (rl *RateLimiter) UpdateLastRequestTime(host string) {
	rl.lastRequestMu.Lock()
	rl.lastRequest[host] = time.Now()
	rl.lastRequestMu.Unlock()
}
