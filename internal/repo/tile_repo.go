// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the CachedTile
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Concurrency: every write here is a single atomic statement (INSERT ... ON
// CONFLICT or UPDATE with an SQL-side increment). Two concurrent writers for
// the same tile key converge to the last write; no client-side
// read-modify-write is ever performed.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/breathsense/go-exposure-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// TileKey identifies one cache entry.
type TileKey struct {
	DataType    string
	HeatmapType string
	Zoom        int
	X           int
	Y           int
}

// FindTile fetches the cache entry for key, or ErrNotFound. It does not
// consider expiry; staleness is the service's call.
func FindTile(ctx context.Context, db *gorm.DB, key TileKey) (*domain.CachedTile, error) {
	var t domain.CachedTile
	err := db.WithContext(ctx).
		Where("data_type = ? AND heatmap_type = ? AND zoom = ? AND x = ? AND y = ?",
			key.DataType, key.HeatmapType, key.Zoom, key.X, key.Y).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertTile stores a freshly fetched payload for key, replacing any existing
// row in place. Exactly one row per key exists at any time (unique index
// ux_tile_key); access counters are preserved across replacement so refetch
// after expiry does not erase popularity data.
func UpsertTile(ctx context.Context, db *gorm.DB, key TileKey, payload []byte, contentType string, expiresAt time.Time) (*domain.CachedTile, error) {
	now := time.Now().UTC()
	t := &domain.CachedTile{
		ID:          uuid.NewString(),
		DataType:    key.DataType,
		HeatmapType: key.HeatmapType,
		Zoom:        key.Zoom,
		X:           key.X,
		Y:           key.Y,
		Payload:     payload,
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   expiresAt,
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "data_type"}, {Name: "heatmap_type"},
				{Name: "zoom"}, {Name: "x"}, {Name: "y"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"payload", "content_type", "updated_at", "expires_at",
			}),
		}).
		Create(t).Error
	if err != nil {
		return nil, err
	}
	return t, nil
}

// TouchTileAccess bumps access_count and last_accessed_at for key in a single
// UPDATE. The increment happens SQL-side so concurrent hits never lose
// counts. Returns ErrNotFound if the entry vanished (e.g. swept meanwhile).
func TouchTileAccess(ctx context.Context, db *gorm.DB, key TileKey, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.CachedTile{}).
		Where("data_type = ? AND heatmap_type = ? AND zoom = ? AND x = ? AND y = ?",
			key.DataType, key.HeatmapType, key.Zoom, key.X, key.Y).
		Updates(map[string]interface{}{
			"access_count":     gorm.Expr("access_count + 1"),
			"last_accessed_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteExpiredTiles removes every entry with expires_at < now and returns
// how many rows were deleted. Idempotent and safe to interleave with
// concurrent lookups and upserts.
func DeleteExpiredTiles(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&domain.CachedTile{})
	return res.RowsAffected, res.Error
}

// TileTypeStats is the per-data-type cache statistics row returned by
// TileStats.
type TileTypeStats struct {
	DataType       string     `json:"data_type"`
	TotalTiles     int64      `json:"total_tiles"`
	ActiveTiles    int64      `json:"active_tiles"`
	ExpiredTiles   int64      `json:"expired_tiles"`
	TotalAccesses  int64      `json:"total_accesses"`
	AvgAccesses    float64    `json:"avg_accesses_per_tile"`
	OldestCreated  *time.Time `json:"oldest_entry,omitempty"`
	NewestCreated  *time.Time `json:"newest_entry,omitempty"`
}

// TileStats aggregates cache statistics grouped by data type.
func TileStats(ctx context.Context, db *gorm.DB, now time.Time) ([]TileTypeStats, error) {
	var rows []struct {
		DataType      string
		TotalTiles    int64
		ActiveTiles   int64
		TotalAccesses int64
		OldestCreated *time.Time
		NewestCreated *time.Time
	}
	err := db.WithContext(ctx).
		Model(&domain.CachedTile{}).
		Select(`data_type,
			COUNT(*) AS total_tiles,
			SUM(CASE WHEN expires_at >= ? THEN 1 ELSE 0 END) AS active_tiles,
			SUM(access_count) AS total_accesses,
			MIN(created_at) AS oldest_created,
			MAX(created_at) AS newest_created`, now).
		Group("data_type").
		Order("data_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]TileTypeStats, 0, len(rows))
	for _, r := range rows {
		s := TileTypeStats{
			DataType:      r.DataType,
			TotalTiles:    r.TotalTiles,
			ActiveTiles:   r.ActiveTiles,
			ExpiredTiles:  r.TotalTiles - r.ActiveTiles,
			TotalAccesses: r.TotalAccesses,
			OldestCreated: r.OldestCreated,
			NewestCreated: r.NewestCreated,
		}
		if r.TotalTiles > 0 {
			s.AvgAccesses = float64(r.TotalAccesses) / float64(r.TotalTiles)
		}
		out = append(out, s)
	}
	return out, nil
}

// IsNotFound reports whether err is the repo/GORM missing-record sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
