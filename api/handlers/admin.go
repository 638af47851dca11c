package handlers

import (
	"blog/db"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ClearCache сбрасывает кеш страниц
func (h *Handler) ClearCache(c *gin.Context) {
	if h.Cache == nil {
		c.JSON(http.StatusOK, gin.H{"status": "cache disabled"})
		return
	}
	if err := h.Cache.Clear(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (h *Handler) Health(c *gin.Context) {
	stats := db.Health(c.Request.Context())
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}
