package handler

import (
	"context"
	"errors"
	"net/http"

	"finboard/internal/cache"
	"finboard/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

type IndicatorService interface {
	GetByCategory(ctx context.Context, c domain.Category) ([]domain.Indicator, error)
	GetOverview(ctx context.Context) (domain.Overview, error)
	GetTicker(ctx context.Context) ([]domain.TickerItem, error)
	GetDollarQuotes(ctx context.Context) (domain.DollarQuotes, error)
}

type NewsService interface {
	GetProcessedNews(ctx context.Context, filter domain.NewsFilter) (domain.NewsPage, error)
	GetProcessingStatus(ctx context.Context) (domain.ProcessingStatus, error)
	ProcessAll(ctx context.Context) (domain.PipelineRunResult, error)
	ForceReprocess(ctx context.Context) (domain.PipelineRunResult, error)
	InvalidateCache() int
}

type cacheStatser interface {
	Stats() cache.Stats
}

type Handler struct {
	tracer     trace.Tracer
	indicators IndicatorService
	news       NewsService
	caches     map[string]cacheStatser
}

func New(tracer trace.Tracer, indicators IndicatorService) *Handler {
	return &Handler{
		tracer:     tracer,
		indicators: indicators,
		caches:     make(map[string]cacheStatser),
	}
}

// SetNewsService enables the news routes. Without it they answer 503.
func (h *Handler) SetNewsService(news NewsService) {
	h.news = news
}

// WatchCache exposes the stats of c under name on /api/cache/stats.
func (h *Handler) WatchCache(name string, c cacheStatser) {
	h.caches[name] = c
}

// RegisterRoutes mounts the API. Routes that mutate state sit behind
// APIKeyAuth(apiKey).
func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/indicators/overview", h.GetOverview)
	api.GET("/indicators/ticker", h.GetTicker)
	api.GET("/indicators/dollar", h.GetDollarQuotes)
	api.GET("/indicators/:category", h.GetIndicators)
	api.GET("/news", h.GetNews)
	api.GET("/news/status", h.GetNewsStatus)
	api.GET("/cache/stats", h.GetCacheStats)

	admin := api.Group("", APIKeyAuth(apiKey))
	admin.POST("/news/process", h.ProcessNews)
	admin.POST("/news/reprocess", h.ReprocessNews)
	admin.POST("/news/cache/invalidate", h.InvalidateNewsCache)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownCategory):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
