package handler

import (
	"net/http"

	"finboard/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetOverview godoc
// @Summary      Dashboard overview
// @Description  Returns every indicator grouped by category. Connectors with no data are listed under unavailable.
// @Tags         indicators
// @Produce      json
// @Success      200  {object}  domain.Overview
// @Failure      500  {object}  map[string]string
// @Router       /api/indicators/overview [get]
func (h *Handler) GetOverview(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-overview")
	defer span.End()

	overview, err := h.indicators.GetOverview(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// GetTicker godoc
// @Summary      Ticker strip
// @Description  Returns the configured ticker indicators in display order
// @Tags         indicators
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/indicators/ticker [get]
func (h *Handler) GetTicker(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-ticker")
	defer span.End()

	items, err := h.indicators.GetTicker(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetDollarQuotes godoc
// @Summary      Dollar quotes
// @Description  Returns every dollar rate plus the derived gaps between them
// @Tags         indicators
// @Produce      json
// @Success      200  {object}  domain.DollarQuotes
// @Router       /api/indicators/dollar [get]
func (h *Handler) GetDollarQuotes(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-dollar-quotes")
	defer span.End()

	quotes, err := h.indicators.GetDollarQuotes(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quotes)
}

// GetIndicators godoc
// @Summary      Indicators by category
// @Description  Returns the indicators of one category
// @Tags         indicators
// @Produce      json
// @Param        category  path  string  true  "Category (exchange-rate, interest-rate, inflation, market-index, agro-commodity, crypto)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/indicators/{category} [get]
func (h *Handler) GetIndicators(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-indicators")
	defer span.End()

	raw := c.Param("category")
	span.SetAttributes(attribute.String("category", raw))

	category, ok := domain.ParseCategory(raw)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":                "unsupported category: " + raw,
			"supported_categories": domain.Categories,
		})
		return
	}

	inds, err := h.indicators.GetByCategory(ctx, category)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"category":   category,
		"indicators": inds,
	})
}
