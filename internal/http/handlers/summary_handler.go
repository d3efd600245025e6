// Daily summary HTTP handlers.
//
// This file exposes REST endpoints for per-device daily summaries:
//   - GET  /summaries/{deviceId}/{date}          (read-only)
//   - POST /summaries/{deviceId}/{date}/refresh  (recompute + return)
//
// Dates use the YYYY-MM-DD layout. Reading a summary never triggers
// recomputation; refresh always re-derives from the underlying sessions and
// readings.
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/breathsense/go-exposure-backend/internal/services"
)

// parseSummaryParams validates the deviceId/date path parameters, failing the
// request on malformed input.
func parseSummaryParams(c *gin.Context) (deviceID, date string, ok bool) {
	deviceID = strings.TrimSpace(c.Param("deviceId"))
	date = c.Param("date")
	if deviceID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "device id required")
		return "", "", false
	}
	if _, err := time.Parse(services.DateLayout, date); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date must be YYYY-MM-DD")
		return "", "", false
	}
	return deviceID, date, true
}

// GetDailySummary returns the stored summary for a device and date.
//
// Responses: 200 summary, 400 bad date, 404 no summary stored.
func (h *Handlers) GetDailySummary(c *gin.Context) {
	deviceID, date, okParams := parseSummaryParams(c)
	if !okParams {
		return
	}

	sum, err := h.summarySvc.Get(c.Request.Context(), deviceID, date)
	if err != nil {
		if errors.Is(err, services.ErrSummaryNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no summary for this device and date")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, sum)
}

// RefreshDailySummary recomputes the summary from scratch and returns it.
// Idempotent: refreshing twice with unchanged data yields the same summary.
//
// Responses: 200 recomputed summary, 400 bad date, 500 internal.
func (h *Handlers) RefreshDailySummary(c *gin.Context) {
	deviceID, date, okParams := parseSummaryParams(c)
	if !okParams {
		return
	}

	sum, err := h.summarySvc.Recompute(c.Request.Context(), deviceID, date)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, sum)
}
