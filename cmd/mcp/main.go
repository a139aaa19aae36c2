package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"finboard/internal/app"
	"finboard/internal/cache"
	"finboard/internal/config"
	"finboard/internal/db"
	"finboard/internal/mcpserver"
	"finboard/pkg/logger"
	"finboard/pkg/tracing"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const version = "1.0.0"

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	loadSourcesFunc        = config.LoadSources
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	runStdioFunc           = func(ctx context.Context, srv *mcp.Server) error { return srv.Run(ctx, &mcp.StdioTransport{}) }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()
	// stdout carries the protocol in stdio mode; logs stay on stderr.
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sources, err := loadSourcesFunc(cfg.SourcesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load sources")
	}

	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	a := app.Build(app.Options{
		Config:  cfg,
		Sources: sources,
		Tracer:  tracer,
		Redis:   cache.Client,
		DB:      db.Pool,
	})
	go a.Cache.StartJanitor(ctx, time.Minute)

	var news mcpserver.NewsService
	if a.NewsEnabled() {
		news = a.News
	}
	srv := mcpserver.New(tracer, a.Indicators, news,
		time.Duration(cfg.MCPRequestTimeoutSecs)*time.Second, version).MCP()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)

	var httpSrv *http.Server
	switch cfg.MCPTransport {
	case "http":
		if cfg.MCPAuthToken == "" {
			log.Warn().Msg("MCP_AUTH_TOKEN empty, HTTP transport is unauthenticated")
		}
		httpSrv = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.MCPHTTPBind, cfg.MCPHTTPPort),
			Handler:           mcpserver.HTTPHandler(srv, cfg.MCPAuthToken, cfg.MCPRateLimitPerMin),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info().Str("addr", httpSrv.Addr).Msg("MCP HTTP server listening")
			if err := startHTTPServerFunc(httpSrv); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("MCP listen failed")
			}
		}()
	default:
		go func() {
			log.Info().Msg("MCP server running on stdio")
			if err := runStdioFunc(ctx, srv); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("MCP stdio session ended")
			}
			// Client hung up; shut down as if signalled.
			select {
			case quit <- syscall.SIGTERM:
			default:
			}
		}()
	}

	waitForSignalFunc(quit)
	log.Info().Msg("Shutting down MCP server...")

	cancel()

	if httpSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownHTTPServerFunc(httpSrv, shutdownCtx); err != nil {
			log.Error().Err(err).Msg("MCP HTTP shutdown error")
		}
	}
	a.Wait()

	log.Info().Msg("MCP server exited")
}
