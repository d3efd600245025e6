// Package domain defines the persistence models for cached tiles, usage
// counters, exposure sessions, readings, and daily summaries. These types are
// mapped with GORM and form the core data layer of the exposure backend.
package domain

import "time"

// Data types served by the tile cache. Each maps to one upstream signal with
// its own refresh cadence.
const (
	DataTypeAirQuality = "airquality"
	DataTypePollen     = "pollen"
	DataTypeUV         = "uv"
)

// ValidDataType reports whether s names a known tile data type.
func ValidDataType(s string) bool {
	switch s {
	case DataTypeAirQuality, DataTypePollen, DataTypeUV:
		return true
	}
	return false
}

// CachedTile is one cached upstream tile image, uniquely identified by
// (data_type, heatmap_type, zoom, x, y). The row is created on the first
// successful upstream fetch, replaced in place on refetch after expiry, and
// removed by the periodic sweep once expired.
//
// AccessCount and LastAccessedAt are touched on every cache hit and survive
// payload replacement, so they reflect the lifetime popularity of the key.
type CachedTile struct {
	ID             string     `json:"id"           gorm:"type:char(36);primaryKey"`
	DataType       string     `json:"data_type"    gorm:"type:varchar(16);not null;uniqueIndex:ux_tile_key,priority:1;check:data_type IN ('airquality','pollen','uv')"`
	HeatmapType    string     `json:"heatmap_type" gorm:"type:varchar(64);not null;uniqueIndex:ux_tile_key,priority:2"`
	Zoom           int        `json:"zoom"         gorm:"not null;uniqueIndex:ux_tile_key,priority:3"`
	X              int        `json:"x"            gorm:"not null;uniqueIndex:ux_tile_key,priority:4"`
	Y              int        `json:"y"            gorm:"not null;uniqueIndex:ux_tile_key,priority:5"`
	Payload        []byte     `json:"-"            gorm:"type:blob;not null"`
	ContentType    string     `json:"content_type" gorm:"type:varchar(64);not null"`
	AccessCount    int64      `json:"access_count" gorm:"not null;default:0"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ExpiresAt      time.Time  `json:"expires_at"   gorm:"not null;index"`
}

// TableName returns the database table name for CachedTile.
func (CachedTile) TableName() string { return "cached_tiles" }

// UsageCounter accumulates request counts per (endpoint, data_type, hour).
// HourBucket is the request timestamp truncated to the hour (UTC). Rows are
// written with an atomic upsert-increment so concurrent requests never lose
// updates. The counter is descriptive only; no request is rejected from it.
type UsageCounter struct {
	ID            string    `json:"id"              gorm:"type:char(36);primaryKey"`
	Endpoint      string    `json:"endpoint"        gorm:"type:varchar(32);not null;uniqueIndex:ux_usage_hour,priority:1"`
	DataType      string    `json:"data_type"       gorm:"type:varchar(16);not null;uniqueIndex:ux_usage_hour,priority:2"`
	HourBucket    time.Time `json:"hour_bucket"     gorm:"not null;uniqueIndex:ux_usage_hour,priority:3"`
	RequestCount  int64     `json:"request_count"   gorm:"not null;default:0"`
	LastRequestAt time.Time `json:"last_request_at" gorm:"not null"`
}

// TableName returns the database table name for UsageCounter.
func (UsageCounter) TableName() string { return "usage_counters" }

// ExposureSession is one tracked outdoor session for a device. It is created
// by start, mutated exactly once by end, and never touched afterwards. A
// session owns zero or more readings.
type ExposureSession struct {
	ID              string     `json:"id"                 gorm:"type:char(36);primaryKey"`
	DeviceID        string     `json:"device_id"          gorm:"type:varchar(64);not null;index:idx_device_sessions"`
	UserID          *string    `json:"user_id,omitempty"  gorm:"type:varchar(64)"`
	StartLat        *float64   `json:"start_lat,omitempty"`
	StartLng        *float64   `json:"start_lng,omitempty"`
	StartTime       time.Time  `json:"start_time"         gorm:"not null;index"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationMinutes *float64   `json:"duration_minutes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName returns the database table name for ExposureSession.
func (ExposureSession) TableName() string { return "exposure_sessions" }

// ExposureReading is a single environmental sample recorded against a
// session. Raw fields are nullable (devices report whatever their sensors
// and providers gave them) but the four derived scores are always present:
// a reading is persisted only after scoring succeeded.
type ExposureReading struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	SessionID   string    `json:"session_id"   gorm:"type:char(36);not null;index:idx_session_readings,priority:1"`
	ReadingTime time.Time `json:"reading_time" gorm:"not null;index:idx_session_readings,priority:2"`
	Lat         *float64  `json:"lat,omitempty"`
	Lng         *float64  `json:"lng,omitempty"`

	AirQualityIndex  *float64 `json:"air_quality_index,omitempty"`
	PM25             *float64 `json:"pm25,omitempty"`
	PM10             *float64 `json:"pm10,omitempty"`
	Ozone            *float64 `json:"ozone,omitempty"`
	NO2              *float64 `json:"no2,omitempty"`
	CO               *float64 `json:"co,omitempty"`
	TreePollenIndex  *float64 `json:"tree_pollen_index,omitempty"`
	GrassPollenIndex *float64 `json:"grass_pollen_index,omitempty"`
	WeedPollenIndex  *float64 `json:"weed_pollen_index,omitempty"`
	TotalPollenIndex *float64 `json:"total_pollen_index,omitempty"`
	UVIndex          *float64 `json:"uv_index,omitempty"`
	TemperatureC     *float64 `json:"temperature_c,omitempty"`
	Humidity         *float64 `json:"humidity,omitempty"`
	WindSpeed        *float64 `json:"wind_speed,omitempty"`

	AirQualityScore int `json:"air_quality_score" gorm:"not null"`
	PollenScore     int `json:"pollen_score"      gorm:"not null"`
	UVScore         int `json:"uv_score"          gorm:"not null"`
	OverallScore    int `json:"overall_score"     gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`

	// Session is the owning session. Readings are cascade-deleted if their
	// session is removed.
	Session ExposureSession `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ExposureReading.
func (ExposureReading) TableName() string { return "exposure_readings" }

// DailySummary aggregates all of a device's readings for one calendar day,
// keyed uniquely by (device_id, date). It is always recomputed from scratch
// and upserted, never incrementally accumulated, so retried or out-of-order
// recomputation is safe.
//
// The Minutes* fields count distinct reading minutes spent in each band.
type DailySummary struct {
	ID       string `json:"id"        gorm:"type:char(36);primaryKey"`
	DeviceID string `json:"device_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_device_date,priority:1"`
	Date     string `json:"date"      gorm:"type:char(10);not null;uniqueIndex:ux_device_date,priority:2"`

	SessionCount         int     `json:"session_count"          gorm:"not null;default:0"`
	ReadingCount         int     `json:"reading_count"          gorm:"not null;default:0"`
	TotalDurationMinutes float64 `json:"total_duration_minutes" gorm:"not null;default:0"`

	AvgAQI          *float64 `json:"avg_aqi,omitempty"`
	MaxAQI          *float64 `json:"max_aqi,omitempty"`
	AvgPM25         *float64 `json:"avg_pm25,omitempty"`
	MaxPM25         *float64 `json:"max_pm25,omitempty"`
	AvgTotalPollen  *float64 `json:"avg_total_pollen,omitempty"`
	MaxTotalPollen  *float64 `json:"max_total_pollen,omitempty"`
	AvgUVIndex      *float64 `json:"avg_uv_index,omitempty"`
	MaxUVIndex      *float64 `json:"max_uv_index,omitempty"`
	AvgOverallScore *float64 `json:"avg_overall_score,omitempty"`
	MaxOverallScore *int     `json:"max_overall_score,omitempty"`

	MinutesAirGood      int `json:"minutes_air_good"      gorm:"not null;default:0"`
	MinutesAirModerate  int `json:"minutes_air_moderate"  gorm:"not null;default:0"`
	MinutesAirUnhealthy int `json:"minutes_air_unhealthy" gorm:"not null;default:0"`
	MinutesPollenLow    int `json:"minutes_pollen_low"    gorm:"not null;default:0"`
	MinutesPollenHigh   int `json:"minutes_pollen_high"   gorm:"not null;default:0"`
	MinutesUVLow        int `json:"minutes_uv_low"        gorm:"not null;default:0"`
	MinutesUVHigh       int `json:"minutes_uv_high"       gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for DailySummary.
func (DailySummary) TableName() string { return "daily_summaries" }
