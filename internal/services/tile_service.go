// Package services – TileService
//
// This file implements the TileService, which owns the cache-aside protocol
// in front of the upstream heatmap provider: lookup → on miss, fetch upstream
// → store → return. It enforces the per-data-type freshness windows, records
// hourly usage counters, and runs the expiry sweep.
//
// Service-level errors (ErrInvalidTileKey, ErrUpstreamUnavailable) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/breathsense/go-exposure-backend/internal/domain"
	"github.com/breathsense/go-exposure-backend/internal/geo"
	"github.com/breathsense/go-exposure-backend/internal/repo"
	"github.com/breathsense/go-exposure-backend/internal/upstream"
)

// CacheStatus tags a tile response as served from cache or freshly fetched.
type CacheStatus string

const (
	CacheHit  CacheStatus = "HIT"
	CacheMiss CacheStatus = "MISS"
)

// tileEndpoint is the endpoint label under which tile requests are counted
// in the usage counters.
const tileEndpoint = "tiles"

// Freshness windows per data type. These mirror the update cadence of each
// upstream signal: air quality refreshes hourly, pollen forecasts daily, UV
// every half hour. Changing them makes the cache either stale or wasteful.
var tileTTLs = map[string]time.Duration{
	domain.DataTypeAirQuality: 60 * time.Minute,
	domain.DataTypePollen:     1440 * time.Minute,
	domain.DataTypeUV:         30 * time.Minute,
}

var (
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tile_cache_hits_total",
			Help: "Tile requests served from the cache.",
		},
		[]string{"data_type"},
	)
	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tile_cache_misses_total",
			Help: "Tile requests that required an upstream fetch.",
		},
		[]string{"data_type"},
	)
	upstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tile_upstream_errors_total",
			Help: "Upstream fetch failures on cache misses.",
		},
		[]string{"data_type"},
	)
	tilesSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tile_cache_swept_total",
			Help: "Expired tiles removed by the sweep.",
		},
	)
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMisses, upstreamErrors, tilesSwept)
}

// TileTTL returns the freshness window for a data type. Unknown types get
// the shortest window; callers should have validated the type already.
func TileTTL(dataType string) time.Duration {
	if ttl, ok := tileTTLs[dataType]; ok {
		return ttl
	}
	return 30 * time.Minute
}

// TileResponse is the result of a tile lookup.
type TileResponse struct {
	Payload     []byte
	ContentType string
	Status      CacheStatus
	ExpiresAt   time.Time
}

// TileService mediates every tile request between clients and the upstream
// provider. It is safe for concurrent use; note that two concurrent misses
// for the same key may both fetch upstream, with the cache converging to the
// last write. Callers must not assume at-most-one upstream call per key.
type TileService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Provider fetches tiles from the upstream heatmap service on miss.
	Provider upstream.Provider
}

// NewTileService constructs a TileService.
func NewTileService(db *gorm.DB, p upstream.Provider) *TileService {
	return &TileService{DB: db, Provider: p}
}

// GetTile serves one tile, cache-aside. On HIT it bumps the entry's access
// metrics and returns without contacting upstream. On MISS it fetches from
// the provider, stores the payload with a fresh expiry, and returns it. A
// failed upstream fetch returns ErrUpstreamUnavailable and writes nothing.
//
// Every request, hit or miss, increments the hourly usage counter for the
// data type; counter failures are logged but never fail the request.
func (s *TileService) GetTile(ctx context.Context, key repo.TileKey) (*TileResponse, error) {
	if !domain.ValidDataType(key.DataType) {
		return nil, ErrInvalidTileKey
	}
	if err := geo.ValidateTile(key.Zoom, key.X, key.Y); err != nil {
		return nil, ErrInvalidTileKey
	}

	now := time.Now().UTC()
	s.recordUsage(ctx, key.DataType, now)

	if t, err := repo.FindTile(ctx, s.DB, key); err == nil && t.ExpiresAt.After(now) {
		if err := repo.TouchTileAccess(ctx, s.DB, key, now); err != nil && !repo.IsNotFound(err) {
			log.Warn().Err(err).Str("data_type", key.DataType).Msg("tile access touch failed")
		}
		cacheHits.WithLabelValues(key.DataType).Inc()
		return &TileResponse{
			Payload:     t.Payload,
			ContentType: t.ContentType,
			Status:      CacheHit,
			ExpiresAt:   t.ExpiresAt,
		}, nil
	} else if err != nil && !repo.IsNotFound(err) {
		return nil, err
	}

	cacheMisses.WithLabelValues(key.DataType).Inc()
	fetched, err := s.Provider.FetchTile(ctx, upstream.TileRequest{
		DataType:    key.DataType,
		HeatmapType: key.HeatmapType,
		Zoom:        key.Zoom,
		X:           key.X,
		Y:           key.Y,
	})
	if err != nil {
		upstreamErrors.WithLabelValues(key.DataType).Inc()
		if errors.Is(err, upstream.ErrUnavailable) {
			return nil, ErrUpstreamUnavailable
		}
		return nil, err
	}

	expiresAt := now.Add(TileTTL(key.DataType))
	if _, err := repo.UpsertTile(ctx, s.DB, key, fetched.Payload, fetched.ContentType, expiresAt); err != nil {
		return nil, err
	}

	return &TileResponse{
		Payload:     fetched.Payload,
		ContentType: fetched.ContentType,
		Status:      CacheMiss,
		ExpiresAt:   expiresAt,
	}, nil
}

// recordUsage upserts the current hour's usage counter. Purely descriptive:
// requests are never blocked from it, and failures only warn.
func (s *TileService) recordUsage(ctx context.Context, dataType string, at time.Time) {
	if err := repo.IncrementUsage(ctx, s.DB, tileEndpoint, dataType, at); err != nil {
		log.Warn().Err(err).Str("data_type", dataType).Msg("usage counter increment failed")
	}
}

// SweepExpired deletes every cache entry past its expiry and returns the
// count. Idempotent; safe to run concurrently with lookups.
func (s *TileService) SweepExpired(ctx context.Context) (int64, error) {
	deleted, err := repo.DeleteExpiredTiles(ctx, s.DB, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	tilesSwept.Add(float64(deleted))
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("expired tiles swept")
	}
	return deleted, nil
}

// Stats returns per-data-type cache statistics.
func (s *TileService) Stats(ctx context.Context) ([]repo.TileTypeStats, error) {
	return repo.TileStats(ctx, s.DB, time.Now().UTC())
}

// Usage returns hourly usage counters covering the past `hours` hours,
// optionally filtered by data type.
func (s *TileService) Usage(ctx context.Context, dataType string, hours int) ([]domain.UsageCounter, error) {
	if hours <= 0 {
		hours = 24
	}
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	return repo.ListUsage(ctx, s.DB, dataType, since)
}
