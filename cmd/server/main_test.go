package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"finboard/internal/bot"
	"finboard/internal/config"
	"finboard/internal/job"
	"finboard/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps()
	defer restore()

	var gotNews bot.NewsReader
	startTelegramBotFunc = func(indicators bot.IndicatorReader, news bot.NewsReader) {
		gotNews = news
	}

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
	if gotNews != nil {
		t.Fatal("expected no news reader without a database")
	}
}

func stubServerDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origLoadSources := loadSourcesFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewMetrics := newMetricsFunc
	origMetricsHandler := metricsHandlerFunc
	origStartWarmer := startWarmerFunc
	origStartNewsJob := startNewsJobFunc
	origStartTelegram := startTelegramBotFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{RedisURL: "", DatabaseURL: "", HTTPPort: 8080, IndicatorWarmSecs: 1}
	}
	loadSourcesFunc = func(string) (*config.Sources, error) { return config.DefaultSources(), nil }
	initPostgresFunc = func(context.Context) {}
	initRedisFunc = func(context.Context) {}
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	reg := prometheus.NewRegistry()
	newMetricsFunc = func() *metrics.Recorder { return metrics.New(reg) }
	metricsHandlerFunc = func() http.Handler { return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}) }
	startWarmerFunc = func(*job.IndicatorWarmer, context.Context) {}
	startNewsJobFunc = func(*job.NewsJob, context.Context) error { return nil }
	startTelegramBotFunc = func(bot.IndicatorReader, bot.NewsReader) {}
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		loadSourcesFunc = origLoadSources
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newMetricsFunc = origNewMetrics
		metricsHandlerFunc = origMetricsHandler
		startWarmerFunc = origStartWarmer
		startNewsJobFunc = origStartNewsJob
		startTelegramBotFunc = origStartTelegram
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
	}
}
