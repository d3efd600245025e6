// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ExposureReading model. Readings are immutable: insert and read only.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/breathsense/go-exposure-backend/internal/domain"
)

// CreateReading inserts a fully scored reading. The caller is responsible for
// having computed the four score fields; this function persists verbatim.
func CreateReading(ctx context.Context, db *gorm.DB, r *domain.ExposureReading) error {
	return db.WithContext(ctx).Create(r).Error
}

// ReadingsForSessions returns all readings belonging to the given sessions,
// ordered by reading time ascending. An empty session list yields an empty
// result without touching the database.
func ReadingsForSessions(ctx context.Context, db *gorm.DB, sessionIDs []string) ([]domain.ExposureReading, error) {
	if len(sessionIDs) == 0 {
		return []domain.ExposureReading{}, nil
	}
	var out []domain.ExposureReading
	err := db.WithContext(ctx).
		Where("session_id IN ?", sessionIDs).
		Order("reading_time asc").
		Find(&out).Error
	return out, err
}

// CountReadings returns the number of readings recorded against a session.
func CountReadings(ctx context.Context, db *gorm.DB, sessionID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ExposureReading{}).
		Where("session_id = ?", sessionID).
		Count(&total).Error
	return total, err
}
