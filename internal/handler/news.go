package handler

import (
	"context"
	"net/http"
	"strconv"

	"finboard/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

func (h *Handler) newsEnabled(c *gin.Context) bool {
	if h.news == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "news service unavailable"})
		return false
	}
	return true
}

// GetNews godoc
// @Summary      Classified news
// @Description  Returns accepted articles, newest first. A stale store triggers a background refresh; the response never waits for it.
// @Tags         news
// @Produce      json
// @Param        category  query  string  false  "Category slug"
// @Param        limit     query  int     false  "Number of articles (default 50, max 200)"  default(50)
// @Success      200  {object}  domain.NewsPage
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/news [get]
func (h *Handler) GetNews(c *gin.Context) {
	if !h.newsEnabled(c) {
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-news")
	defer span.End()

	filter := domain.NewsFilter{CategorySlug: c.Query("category")}
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit: " + l})
			return
		}
		filter.Limit = n
	}
	span.SetAttributes(attribute.String("category", filter.CategorySlug), attribute.Int("limit", filter.Limit))

	page, err := h.news.GetProcessedNews(ctx, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetNewsStatus godoc
// @Summary      News processing status
// @Description  Returns article counts by outcome, the last run, staleness and whether a run is active
// @Tags         news
// @Produce      json
// @Success      200  {object}  domain.ProcessingStatus
// @Failure      503  {object}  map[string]string
// @Router       /api/news/status [get]
func (h *Handler) GetNewsStatus(c *gin.Context) {
	if !h.newsEnabled(c) {
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-news-status")
	defer span.End()

	status, err := h.news.GetProcessingStatus(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// ProcessNews godoc
// @Summary      Run the news pipeline
// @Description  Fetches and classifies new articles synchronously
// @Tags         news
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  domain.PipelineRunResult
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]interface{}
// @Router       /api/news/process [post]
func (h *Handler) ProcessNews(c *gin.Context) {
	if !h.newsEnabled(c) {
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.process-news")
	defer span.End()

	// The run outlives a dropped client; the coordinator bounds it.
	ctx = context.WithoutCancel(ctx)

	result, err := h.news.ProcessAll(ctx)
	writeRunResult(c, result, err)
}

// ReprocessNews godoc
// @Summary      Reprocess all news
// @Description  Deletes every stored article and runs the pipeline from scratch
// @Tags         news
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  domain.PipelineRunResult
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]interface{}
// @Router       /api/news/reprocess [post]
func (h *Handler) ReprocessNews(c *gin.Context) {
	if !h.newsEnabled(c) {
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.reprocess-news")
	defer span.End()

	ctx = context.WithoutCancel(ctx)

	result, err := h.news.ForceReprocess(ctx)
	writeRunResult(c, result, err)
}

// InvalidateNewsCache godoc
// @Summary      Drop cached news lists
// @Tags         news
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  map[string]int
// @Router       /api/news/cache/invalidate [post]
func (h *Handler) InvalidateNewsCache(c *gin.Context) {
	if !h.newsEnabled(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": h.news.InvalidateCache()})
}

func writeRunResult(c *gin.Context, result domain.PipelineRunResult, err error) {
	if err == nil {
		c.JSON(http.StatusOK, result)
		return
	}
	status := statusFor(err)
	if status == http.StatusConflict {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "result": result})
}
