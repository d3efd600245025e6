// Tile HTTP handlers.
//
// This file exposes the tile retrieval endpoint:
//   - GET /tiles/{dataType}/{heatmapType}/{zoom}/{x}/{y}
//
// The handler is transport-thin: it parses and validates the tile address,
// calls the TileService, and streams the binary payload back with cache
// metadata in response headers (X-Cache: HIT|MISS, X-Cache-Expires).
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/breathsense/go-exposure-backend/internal/domain"
	"github.com/breathsense/go-exposure-backend/internal/repo"
	"github.com/breathsense/go-exposure-backend/internal/services"
)

// Response headers carrying cache metadata alongside the tile body.
const (
	HeaderCacheStatus  = "X-Cache"
	HeaderCacheExpires = "X-Cache-Expires"
)

// TileService defines the tile cache operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type TileService interface {
	// GetTile serves one tile cache-aside, fetching upstream on miss.
	GetTile(ctx context.Context, key repo.TileKey) (*services.TileResponse, error)
	// SweepExpired deletes expired cache entries and returns the count.
	SweepExpired(ctx context.Context) (int64, error)
	// Stats returns per-data-type cache statistics.
	Stats(ctx context.Context) ([]repo.TileTypeStats, error)
	// Usage returns hourly usage counters for quota observability.
	Usage(ctx context.Context, dataType string, hours int) ([]domain.UsageCounter, error)
}

// GetTile serves one heatmap tile.
//
// Responses:
//   - 200 binary tile, Content-Type echoing upstream, X-Cache HIT|MISS,
//     X-Cache-Expires in RFC 3339
//   - 400 invalid data type or coordinates
//   - 502 upstream provider failed on a cache miss
func (h *Handlers) GetTile(c *gin.Context) {
	zoom, err1 := strconv.Atoi(c.Param("zoom"))
	x, err2 := strconv.Atoi(c.Param("x"))
	y, err3 := strconv.Atoi(c.Param("y"))
	if err1 != nil || err2 != nil || err3 != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "zoom, x, and y must be integers")
		return
	}

	key := repo.TileKey{
		DataType:    c.Param("dataType"),
		HeatmapType: c.Param("heatmapType"),
		Zoom:        zoom,
		X:           x,
		Y:           y,
	}

	tile, err := h.tileSvc.GetTile(c.Request.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidTileKey):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid tile coordinates or data type")
		case errors.Is(err, services.ErrUpstreamUnavailable):
			fail(c, http.StatusBadGateway, ErrCodeUpstreamUnavailable, "tile unavailable: upstream provider failed")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	c.Header(HeaderCacheStatus, string(tile.Status))
	c.Header(HeaderCacheExpires, tile.ExpiresAt.UTC().Format(time.RFC3339))
	c.Data(http.StatusOK, tile.ContentType, tile.Payload)
}
