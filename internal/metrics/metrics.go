package metrics

import (
	"time"

	"finboard/internal/cache"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes connector, cache and pipeline activity to Prometheus.
// A nil *Recorder drops every observation.
type Recorder struct {
	reg              prometheus.Registerer
	connectorResults *prometheus.CounterVec
	upstreamErrors   *prometheus.CounterVec
	connectorLatency *prometheus.HistogramVec
	pipelineRuns     *prometheus.CounterVec
	articles         *prometheus.CounterVec
	feedErrors       *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		connectorResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finboard_connector_results_total",
				Help: "Connector fetches by the tier that served them",
			},
			[]string{"connector", "tier"},
		),
		upstreamErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finboard_upstream_errors_total",
				Help: "Failed upstream calls per connector and upstream",
			},
			[]string{"connector", "upstream"},
		),
		connectorLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finboard_connector_fetch_seconds",
				Help:    "Connector fetch latency including fallbacks",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"connector"},
		),
		pipelineRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finboard_news_pipeline_runs_total",
				Help: "News pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		articles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finboard_news_articles_total",
				Help: "Articles handled by the news pipeline, by result",
			},
			[]string{"result"},
		),
		feedErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finboard_news_feed_errors_total",
				Help: "Feed fetch failures",
			},
			[]string{"feed"},
		),
		pipelineDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "finboard_news_pipeline_duration_seconds",
			Help:    "Wall time of news pipeline runs",
			Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 90, 120},
		}),
	}
}

func (r *Recorder) ConnectorResult(connector, tier string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.connectorResults.WithLabelValues(connector, tier).Inc()
	r.connectorLatency.WithLabelValues(connector).Observe(elapsed.Seconds())
}

func (r *Recorder) UpstreamError(connector, upstream string) {
	if r == nil {
		return
	}
	r.upstreamErrors.WithLabelValues(connector, upstream).Inc()
}

func (r *Recorder) PipelineRun(outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.pipelineRuns.WithLabelValues(outcome).Inc()
	r.pipelineDuration.Observe(elapsed.Seconds())
}

func (r *Recorder) Article(result string) {
	if r == nil {
		return
	}
	r.articles.WithLabelValues(result).Inc()
}

func (r *Recorder) Articles(result string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.articles.WithLabelValues(result).Add(float64(n))
}

func (r *Recorder) FeedError(feed string) {
	if r == nil {
		return
	}
	r.feedErrors.WithLabelValues(feed).Inc()
}

// WatchCache publishes the stats of a TTL cache under the given name.
func (r *Recorder) WatchCache(name string, c *cache.TTLCache) {
	if r == nil || c == nil {
		return
	}
	labels := prometheus.Labels{"cache": name}
	f := promauto.With(r.reg)
	f.NewCounterFunc(prometheus.CounterOpts{
		Name:        "finboard_cache_hits_total",
		Help:        "Cache hits",
		ConstLabels: labels,
	}, func() float64 { return float64(c.Stats().Hits) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Name:        "finboard_cache_misses_total",
		Help:        "Cache misses, including expired reads",
		ConstLabels: labels,
	}, func() float64 { return float64(c.Stats().Misses) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Name:        "finboard_cache_evictions_total",
		Help:        "Entries dropped on expiry",
		ConstLabels: labels,
	}, func() float64 { return float64(c.Stats().Evictions) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "finboard_cache_entries",
		Help:        "Live cache entries",
		ConstLabels: labels,
	}, func() float64 { return float64(c.Stats().Size) })
}
