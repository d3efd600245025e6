// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// DailySummary model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/breathsense/go-exposure-backend/internal/domain"
)

// summaryUpdateColumns is every DailySummary column replaced on recompute.
// The row identity (id, device_id, date, created_at) is preserved.
var summaryUpdateColumns = []string{
	"session_count", "reading_count", "total_duration_minutes",
	"avg_aqi", "max_aqi", "avg_pm25", "max_pm25",
	"avg_total_pollen", "max_total_pollen",
	"avg_uv_index", "max_uv_index",
	"avg_overall_score", "max_overall_score",
	"minutes_air_good", "minutes_air_moderate", "minutes_air_unhealthy",
	"minutes_pollen_low", "minutes_pollen_high",
	"minutes_uv_low", "minutes_uv_high",
	"updated_at",
}

// UpsertDailySummary stores a recomputed summary, replacing every aggregate
// column of an existing (device_id, date) row in one atomic statement.
func UpsertDailySummary(ctx context.Context, db *gorm.DB, s *domain.DailySummary) error {
	now := time.Now().UTC()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns(summaryUpdateColumns),
		}).
		Create(s).Error
}

// GetDailySummary fetches the summary for (deviceID, date), or ErrNotFound.
// It never triggers recomputation.
func GetDailySummary(ctx context.Context, db *gorm.DB, deviceID, date string) (*domain.DailySummary, error) {
	var s domain.DailySummary
	err := db.WithContext(ctx).
		Where("device_id = ? AND date = ?", deviceID, date).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}
