package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/freellmstxt/llmstxt/pkg/parse"
)

type hostSlot struct {
	sem         *semaphore.Weighted
	inUse       int64     // Held plus waiting permits
	lastRelease time.Time // Zero until the first Release
}

// HostSemaphorePool bounds concurrent requests per site. Hosts are keyed by parse.HostKey,
// so "WWW.Docs.test:443" and "docs.test" draw from one bound. Share one pool between
// every Fetcher that talks to the same sites.
type HostSemaphorePool struct {
	mu    sync.Mutex
	slots map[string]*hostSlot
	limit int64
	log   *logrus.Entry
}

// NewHostSemaphorePool creates a pool allowing maxPerHost concurrent requests per host
func NewHostSemaphorePool(maxPerHost int, log *logrus.Entry) *HostSemaphorePool {
	limit := int64(maxPerHost)
	if limit <= 0 {
		limit = 2
		log.Warnf("max_requests_per_host is %d, using %d", maxPerHost, limit)
	}
	return &HostSemaphorePool{
		slots: make(map[string]*hostSlot),
		limit: limit,
		log:   log,
	}
}

// Acquire blocks until host has a free permit or ctx is done
func (p *HostSemaphorePool) Acquire(ctx context.Context, host string) error {
	host = parse.HostKey(host)
	p.mu.Lock()
	slot, ok := p.slots[host]
	if !ok {
		slot = &hostSlot{sem: semaphore.NewWeighted(p.limit)}
		p.slots[host] = slot
	}
	slot.inUse++
	p.mu.Unlock()

	if err := slot.sem.Acquire(ctx, 1); err != nil {
		p.mu.Lock()
		slot.inUse--
		p.mu.Unlock()
		return err
	}
	return nil
}

// Release returns a permit taken by Acquire
func (p *HostSemaphorePool) Release(host string) {
	host = parse.HostKey(host)
	p.mu.Lock()
	slot, ok := p.slots[host]
	if !ok {
		p.mu.Unlock()
		p.log.WithField("host", host).Error("Release for unknown host")
		return
	}
	slot.inUse--
	slot.lastRelease = time.Now()
	p.mu.Unlock()

	slot.sem.Release(1)
}

// RunEviction drops hosts idle for longer than interval, until ctx is done.
// Long-running servers start it in a goroutine.
func (p *HostSemaphorePool) RunEviction(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.evictIdle(interval)
		case <-ctx.Done():
			p.log.Debugf("Host semaphore eviction stopped: %v", ctx.Err())
			return
		}
	}
}

func (p *HostSemaphorePool) evictIdle(maxIdle time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	evicted := 0
	for host, slot := range p.slots {
		if slot.inUse == 0 && !slot.lastRelease.IsZero() && now.Sub(slot.lastRelease) >= maxIdle {
			delete(p.slots, host)
			evicted++
		}
	}
	if evicted > 0 {
		p.log.WithFields(logrus.Fields{"evicted": evicted, "remaining": len(p.slots)}).Debug("Evicted idle host semaphores")
	}
}

// Len returns the number of tracked sites
func (p *HostSemaphorePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}
