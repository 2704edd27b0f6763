package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/freellmstxt/llmstxt/pkg/models"
)

const namespace = "llmstxt"

// Recorder publishes crawl metrics. All methods are safe on a nil *Recorder.
type Recorder struct {
	crawlsTotal   *prometheus.CounterVec
	pagesFetched  *prometheus.CounterVec
	fetchDuration prometheus.Summary
	discovered    prometheus.Histogram
	inFlight      prometheus.Gauge
}

// NewRecorder registers the crawl metrics with reg (prometheus.DefaultRegisterer when nil)
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		crawlsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawls_total",
			Help:      "Finished crawls by the discovery mode that produced the URL set",
		}, []string{"mode"}),
		pagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Page fetches by outcome category",
		}, []string{"result"}),
		fetchDuration: factory.NewSummary(prometheus.SummaryOpts{
			Namespace:  namespace,
			Name:       "fetch_duration_seconds",
			Help:       "Page fetch and extraction time",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}),
		discovered: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discovered_urls",
			Help:      "URLs discovered per crawl",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200, 500},
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "crawls_in_flight",
			Help:      "Crawls currently running",
		}),
	}
}

// CrawlStarted marks a crawl as running
func (r *Recorder) CrawlStarted() {
	if r == nil {
		return
	}
	r.inFlight.Inc()
}

// CrawlFinished records a completed (or cancelled) crawl
func (r *Recorder) CrawlFinished(mode models.DiscoveryMode, discovered int) {
	if r == nil {
		return
	}
	r.inFlight.Dec()
	r.crawlsTotal.WithLabelValues(mode.String()).Inc()
	r.discovered.Observe(float64(discovered))
}

// PageFetched records one page fetch. result is "ok" or an error category.
func (r *Recorder) PageFetched(result string, d time.Duration) {
	if r == nil {
		return
	}
	r.pagesFetched.WithLabelValues(result).Inc()
	r.fetchDuration.Observe(d.Seconds())
}
