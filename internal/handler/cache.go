package handler

import (
	"net/http"

	"finboard/internal/cache"

	"github.com/gin-gonic/gin"
)

// GetCacheStats godoc
// @Summary      Cache statistics
// @Description  Returns hits, misses, size and evictions for every watched cache
// @Tags         cache
// @Produce      json
// @Success      200  {object}  map[string]cache.Stats
// @Router       /api/cache/stats [get]
func (h *Handler) GetCacheStats(c *gin.Context) {
	out := make(map[string]cache.Stats, len(h.caches))
	for name, cs := range h.caches {
		out[name] = cs.Stats()
	}
	c.JSON(http.StatusOK, out)
}
