package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finboard/internal/app"
	"finboard/internal/bot"
	"finboard/internal/cache"
	"finboard/internal/config"
	"finboard/internal/db"
	"finboard/internal/handler"
	"finboard/internal/job"
	"finboard/internal/metrics"
	"finboard/pkg/logger"
	"finboard/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "finboard/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	loadSourcesFunc        = config.LoadSources
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newMetricsFunc         = func() *metrics.Recorder { return metrics.New(prometheus.DefaultRegisterer) }
	metricsHandlerFunc     = promhttp.Handler
	startWarmerFunc        = func(w *job.IndicatorWarmer, ctx context.Context) { go w.Start(ctx) }
	startNewsJobFunc       = func(j *job.NewsJob, ctx context.Context) error { return j.Start(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           finboard API
// @version         1.0
// @description     Argentine financial indicators with source fallback, plus AI-classified financial news.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sources, err := loadSourcesFunc(cfg.SourcesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load sources")
	}

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	recorder := newMetricsFunc()
	a := app.Build(app.Options{
		Config:  cfg,
		Sources: sources,
		Tracer:  tracer,
		Metrics: recorder,
		Redis:   cache.Client,
		DB:      db.Pool,
	})
	go a.Cache.StartJanitor(ctx, time.Minute)

	// Background jobs, stopped by ctx cancel
	startWarmerFunc(job.NewIndicatorWarmer(tracer, a.Indicators, cfg.IndicatorWarmSecs), ctx)

	var newsReader bot.NewsReader
	if a.NewsEnabled() {
		newsReader = a.News
		newsJob := job.NewNewsJob(tracer, a.Coordinator, cfg.NewsCron,
			time.Duration(cfg.NewsRunTimeoutSecs)*time.Second)
		go func() {
			if err := startNewsJobFunc(newsJob, ctx); err != nil {
				log.Error().Err(err).Str("schedule", cfg.NewsCron).Msg("news job not started")
			}
		}()
	}

	// Start Telegram bot
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	startTelegramBotFunc(a.Indicators, newsReader)

	// Create handlers and routes
	h := newHandlerFunc(tracer, a.Indicators)
	if a.NewsEnabled() {
		h.SetNewsService(a.News)
	}
	h.WatchCache("shared", a.Cache)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("finboard"))

	h.RegisterRoutes(r, cfg.APIKey)
	r.GET("/metrics", gin.WrapH(metricsHandlerFunc()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := startHTTPServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	a.Wait()

	log.Info().Msg("Server exiting")
}
