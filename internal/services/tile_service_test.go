package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/breathsense/go-exposure-backend/internal/domain"
	"github.com/breathsense/go-exposure-backend/internal/repo"
	"github.com/breathsense/go-exposure-backend/internal/upstream"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("service_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// fakeProvider serves canned payloads and counts fetches; Err short-circuits.
type fakeProvider struct {
	payload []byte
	err     error
	calls   int
}

func (p *fakeProvider) FetchTile(ctx context.Context, req upstream.TileRequest) (*upstream.TileResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &upstream.TileResult{Payload: p.payload, ContentType: "image/png"}, nil
}

func testKey() repo.TileKey {
	return repo.TileKey{DataType: domain.DataTypeAirQuality, HeatmapType: "US_AQI", Zoom: 10, X: 509, Y: 338}
}

func TestGetTile_MissThenHit(t *testing.T) {
	db := newServiceDB(t)
	p := &fakeProvider{payload: []byte("tile-v1")}
	svc := NewTileService(db, p)
	ctx := context.Background()

	before := time.Now().UTC()
	first, err := svc.GetTile(ctx, testKey())
	if err != nil {
		t.Fatalf("GetTile: %v", err)
	}
	if first.Status != CacheMiss {
		t.Fatalf("first request must be a MISS, got %s", first.Status)
	}
	if string(first.Payload) != "tile-v1" || first.ContentType != "image/png" {
		t.Fatalf("unexpected payload: %+v", first)
	}
	// Air quality tiles stay fresh for 60 minutes.
	if got := first.ExpiresAt.Sub(before); got < 59*time.Minute || got > 61*time.Minute {
		t.Fatalf("expected ~60m expiry, got %v", got)
	}

	second, err := svc.GetTile(ctx, testKey())
	if err != nil {
		t.Fatalf("second GetTile: %v", err)
	}
	if second.Status != CacheHit {
		t.Fatalf("second request must be a HIT, got %s", second.Status)
	}
	if string(second.Payload) != "tile-v1" {
		t.Fatalf("hit must serve cached payload")
	}
	if p.calls != 1 {
		t.Fatalf("hit must not contact upstream, calls=%d", p.calls)
	}

	// Hit path bumps the access counter.
	row, err := repo.FindTile(ctx, db, testKey())
	if err != nil {
		t.Fatalf("FindTile: %v", err)
	}
	if row.AccessCount != 1 {
		t.Fatalf("expected access_count=1 after one hit, got %d", row.AccessCount)
	}
}

func TestGetTile_ExpiredEntryRefetches(t *testing.T) {
	db := newServiceDB(t)
	p := &fakeProvider{payload: []byte("tile-v2")}
	svc := NewTileService(db, p)
	ctx := context.Background()

	// Seed a stale row directly: expired entries must read as misses.
	if _, err := repo.UpsertTile(ctx, db, testKey(), []byte("old"), "image/png",
		time.Now().UTC().Add(-time.Minute)); err != nil {
		t.Fatalf("seed stale tile: %v", err)
	}

	res, err := svc.GetTile(ctx, testKey())
	if err != nil {
		t.Fatalf("GetTile: %v", err)
	}
	if res.Status != CacheMiss || string(res.Payload) != "tile-v2" {
		t.Fatalf("expired entry must refetch, got %s %q", res.Status, res.Payload)
	}
	if p.calls != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", p.calls)
	}

	// The stale row was replaced, not duplicated.
	var count int64
	if err := db.Model(&domain.CachedTile{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one row after refetch, got %d", count)
	}
}

func TestGetTile_UpstreamFailureWritesNothing(t *testing.T) {
	db := newServiceDB(t)
	p := &fakeProvider{err: fmt.Errorf("%w: boom", upstream.ErrUnavailable)}
	svc := NewTileService(db, p)
	ctx := context.Background()

	_, err := svc.GetTile(ctx, testKey())
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}

	// No poisoned cache entry.
	if _, err := repo.FindTile(ctx, db, testKey()); !repo.IsNotFound(err) {
		t.Fatalf("failed fetch must not cache anything, got %v", err)
	}

	// Recovery: once upstream works, the same key serves normally.
	p.err = nil
	p.payload = []byte("recovered")
	res, err := svc.GetTile(ctx, testKey())
	if err != nil || res.Status != CacheMiss {
		t.Fatalf("expected recovery MISS, got %v %v", res, err)
	}
}

func TestGetTile_InvalidKeyRejectedBeforeUpstream(t *testing.T) {
	db := newServiceDB(t)
	p := &fakeProvider{payload: []byte("x")}
	svc := NewTileService(db, p)
	ctx := context.Background()

	bad := []repo.TileKey{
		{DataType: "plutonium", HeatmapType: "H", Zoom: 3, X: 0, Y: 0},
		{DataType: domain.DataTypeUV, HeatmapType: "UV_INDEX", Zoom: 3, X: 8, Y: 0},  // x == 2^3
		{DataType: domain.DataTypeUV, HeatmapType: "UV_INDEX", Zoom: 3, X: 0, Y: -1},
		{DataType: domain.DataTypeUV, HeatmapType: "UV_INDEX", Zoom: 23, X: 0, Y: 0},
	}
	for _, key := range bad {
		if _, err := svc.GetTile(ctx, key); !errors.Is(err, ErrInvalidTileKey) {
			t.Fatalf("key %+v: expected ErrInvalidTileKey, got %v", key, err)
		}
	}
	if p.calls != 0 {
		t.Fatalf("invalid keys must never reach upstream, calls=%d", p.calls)
	}
}

func TestTileTTL_PerDataType(t *testing.T) {
	if TileTTL(domain.DataTypeAirQuality) != 60*time.Minute {
		t.Fatalf("airquality ttl wrong")
	}
	if TileTTL(domain.DataTypePollen) != 1440*time.Minute {
		t.Fatalf("pollen ttl wrong")
	}
	if TileTTL(domain.DataTypeUV) != 30*time.Minute {
		t.Fatalf("uv ttl wrong")
	}
}

func TestSweepExpired_And_Stats(t *testing.T) {
	db := newServiceDB(t)
	svc := NewTileService(db, &fakeProvider{payload: []byte("x")})
	ctx := context.Background()
	now := time.Now().UTC()

	stale := repo.TileKey{DataType: domain.DataTypePollen, HeatmapType: "TREE_UPI", Zoom: 4, X: 1, Y: 1}
	if _, err := repo.UpsertTile(ctx, db, testKey(), []byte("f"), "image/png", now.Add(time.Hour)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := repo.UpsertTile(ctx, db, stale, []byte("s"), "image/png", now.Add(-time.Hour)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	deleted, err := svc.SweepExpired(ctx)
	if err != nil || deleted != 1 {
		t.Fatalf("SweepExpired = %d, %v; want 1", deleted, err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 1 || stats[0].DataType != domain.DataTypeAirQuality || stats[0].ActiveTiles != 1 {
		t.Fatalf("unexpected stats after sweep: %+v", stats)
	}
}

func TestUsage_CountsTileRequests(t *testing.T) {
	db := newServiceDB(t)
	svc := NewTileService(db, &fakeProvider{payload: []byte("x")})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.GetTile(ctx, testKey()); err != nil {
			t.Fatalf("GetTile: %v", err)
		}
	}

	counters, err := svc.Usage(ctx, domain.DataTypeAirQuality, 24)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if len(counters) != 1 || counters[0].RequestCount != 3 {
		t.Fatalf("expected one counter with 3 requests, got %+v", counters)
	}

	// hours <= 0 falls back to a 24h window rather than an empty one.
	counters, err = svc.Usage(ctx, "", 0)
	if err != nil || len(counters) != 1 {
		t.Fatalf("default window lookup failed: %v %v", counters, err)
	}
}
