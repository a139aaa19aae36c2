package app

import (
	"time"

	"finboard/internal/cache"
	"finboard/internal/config"
	"finboard/internal/indicators"
	"finboard/internal/metrics"
	"finboard/internal/news"
	"finboard/internal/provider"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	Config  *config.Config
	Sources *config.Sources
	Tracer  trace.Tracer
	Metrics *metrics.Recorder
	// Redis enables the last-known-good tier when non-nil.
	Redis *redis.Client
	// DB enables the news pipeline when non-nil.
	DB *pgxpool.Pool
}

// App holds the services shared by the HTTP server, the SSH dashboard and
// the MCP server.
type App struct {
	Cache       *cache.TTLCache
	Indicators  *indicators.Engine
	Pipeline    *news.Pipeline
	Coordinator *news.Coordinator
	News        *news.Service
}

func Build(opts Options) *App {
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	sources := opts.Sources
	if sources == nil {
		sources = config.DefaultSources()
	}

	ttl := cache.NewTTLCache()
	opts.Metrics.WatchCache("shared", ttl)

	var snapshots *cache.SnapshotStore
	if opts.Redis != nil {
		snapshots = cache.NewSnapshotStore(opts.Redis, hours(cfg.SnapshotTTLHours))
	}

	connectors := provider.BuildConnectors(provider.ConnectorDeps{
		Tracer:    opts.Tracer,
		Sources:   sources,
		Timeout:   seconds(cfg.ConnectorTimeoutSecs),
		Snapshots: snapshots,
		Metrics:   opts.Metrics,
	})
	a := &App{
		Cache: ttl,
		Indicators: indicators.NewEngine(opts.Tracer, connectors, ttl, indicators.Config{
			TTLs:          sources.TTLs(),
			Ticker:        sources.Ticker,
			DerivedMaxAge: time.Duration(cfg.DerivedMaxAgeMins) * time.Minute,
		}),
	}

	if opts.DB == nil {
		log.Warn().Msg("no database pool, news pipeline disabled")
		return a
	}

	var classifier news.Classifier = news.NewKeywordClassifier()
	if c := news.NewOpenAIClassifier(cfg.OpenAIAPIKey, cfg.OpenAIModel); c != nil {
		classifier = c
		log.Info().Str("model", cfg.OpenAIModel).Msg("news classification via OpenAI")
	} else {
		log.Warn().Msg("news classification falling back to keyword rules")
	}

	repo := news.NewRepository(opts.DB, opts.Tracer)
	a.Pipeline = news.NewPipeline(opts.Tracer, repo, provider.NewFeedFetcher(opts.Tracer), classifier, opts.Metrics, news.PipelineConfig{
		Feeds:           sources.Feeds,
		Concurrency:     cfg.NewsClassifyConcurrency,
		RequestsPerMin:  cfg.NewsClassifyRPM,
		ClassifyTimeout: seconds(cfg.NewsClassifyTimeoutSecs),
	})
	a.Coordinator = news.NewCoordinator(a.Pipeline, repo,
		time.Duration(cfg.NewsStaleAfterMins)*time.Minute,
		seconds(cfg.NewsRunTimeoutSecs),
	)
	a.News = news.NewService(opts.Tracer, repo, a.Coordinator, ttl, seconds(cfg.NewsCacheTTLSecs))
	return a
}

func (a *App) NewsEnabled() bool { return a.News != nil }

// Wait blocks until any background news refresh has returned.
func (a *App) Wait() {
	if a.Coordinator != nil {
		a.Coordinator.Wait()
	}
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func hours(n int) time.Duration { return time.Duration(n) * time.Hour }
