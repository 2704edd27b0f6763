package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freellmstxt/llmstxt/pkg/models"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.CrawlStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(r.inFlight))

	r.PageFetched("ok", 120*time.Millisecond)
	r.PageFetched("ok", 80*time.Millisecond)
	r.PageFetched("HTTP_404", 10*time.Millisecond)
	r.CrawlFinished(models.ModeRobotsSitemap, 3)

	assert.Equal(t, 0.0, testutil.ToFloat64(r.inFlight))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.pagesFetched.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.pagesFetched.WithLabelValues("HTTP_404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.crawlsTotal.WithLabelValues("robots_sitemap")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"llmstxt_crawls_total",
		"llmstxt_pages_fetched_total",
		"llmstxt_fetch_duration_seconds",
		"llmstxt_discovered_urls",
		"llmstxt_crawls_in_flight",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.CrawlStarted()
		r.PageFetched("ok", time.Second)
		r.CrawlFinished(models.ModeDone, 1)
	})
}
