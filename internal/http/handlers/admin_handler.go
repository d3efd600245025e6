// Admin HTTP handlers.
//
// This file exposes operational endpoints for cache maintenance and quota
// observability:
//   - POST /admin/cache/sweep  (delete expired tiles now)
//   - GET  /admin/cache/stats  (per-data-type cache statistics)
//   - GET  /admin/usage        (hourly upstream usage counters)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/breathsense/go-exposure-backend/internal/utils"
)

// SweepResponse reports how many expired tiles a sweep removed.
type SweepResponse struct {
	Deleted int64 `json:"deleted"`
}

// SweepCache deletes all expired tile rows immediately.
//
// Responses: 200 with deletion count, 500 internal.
func (h *Handlers) SweepCache(c *gin.Context) {
	deleted, err := h.tileSvc.SweepExpired(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, SweepResponse{Deleted: deleted})
}

// CacheStats returns tile counts and access totals grouped by data type.
func (h *Handlers) CacheStats(c *gin.Context) {
	stats, err := h.tileSvc.Stats(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"stats": stats})
}

// Usage returns hourly usage counters, optionally filtered by data_type and
// bounded by a trailing window in hours (default 24).
func (h *Handlers) Usage(c *gin.Context) {
	dataType := c.Query("data_type")
	hours := utils.AtoiDefault(c.Query("hours"), 24)
	if hours < 1 {
		hours = 24
	}

	counters, err := h.tileSvc.Usage(c.Request.Context(), dataType, hours)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"usage": counters, "window_hours": hours})
}
