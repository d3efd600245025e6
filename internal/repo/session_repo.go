// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ExposureSession model.
//
// Error semantics:
//   - When a session is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - EndSession additionally distinguishes "exists but already ended" via
//     ErrAlreadyEnded so the service can map it to a conflict.
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/breathsense/go-exposure-backend/internal/domain"
)

// ErrAlreadyEnded is returned by EndSession when the session exists but its
// end time is already set.
var ErrAlreadyEnded = errors.New("session already ended")

// CreateSession inserts a new session row for deviceID starting now. The
// session ID is a randomly generated UUID, unique per call even under
// concurrent starts from the same device.
func CreateSession(ctx context.Context, db *gorm.DB, deviceID string, userID *string, lat, lng *float64) (*domain.ExposureSession, error) {
	now := time.Now().UTC()
	s := &domain.ExposureSession{
		ID:        uuid.NewString(),
		DeviceID:  deviceID,
		UserID:    userID,
		StartLat:  lat,
		StartLng:  lng,
		StartTime: now,
		CreatedAt: now,
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession fetches a session by ID, or ErrNotFound.
func GetSession(ctx context.Context, db *gorm.DB, id string) (*domain.ExposureSession, error) {
	var s domain.ExposureSession
	if err := db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// EndSession sets end_time and duration_minutes. The UPDATE is guarded by
// "end_time IS NULL" so a session transitions to ended exactly once even
// under concurrent end calls: the loser of a race sees zero rows affected and
// gets ErrAlreadyEnded.
func EndSession(ctx context.Context, db *gorm.DB, id string, endTime time.Time) (*domain.ExposureSession, error) {
	s, err := GetSession(ctx, db, id)
	if err != nil {
		return nil, err // ErrNotFound
	}
	if s.EndTime != nil {
		return nil, ErrAlreadyEnded
	}

	duration := endTime.Sub(s.StartTime).Minutes()
	res := db.WithContext(ctx).
		Model(&domain.ExposureSession{}).
		Where("id = ? AND end_time IS NULL", id).
		Updates(map[string]interface{}{
			"end_time":         endTime,
			"duration_minutes": duration,
			"updated_at":       endTime,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyEnded
	}

	s.EndTime = &endTime
	s.DurationMinutes = &duration
	s.UpdatedAt = endTime
	return s, nil
}

// CountSessions returns the total number of sessions for deviceID.
func CountSessions(ctx context.Context, db *gorm.DB, deviceID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ExposureSession{}).
		Where("device_id = ?", deviceID).
		Count(&total).Error
	return total, err
}

// ListSessionsPage returns a paginated slice of a device's sessions, ordered
// by start time descending. The caller computes offset and limit.
func ListSessionsPage(ctx context.Context, db *gorm.DB, deviceID string, offset, limit int) ([]domain.ExposureSession, error) {
	var out []domain.ExposureSession
	err := db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("start_time desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SessionsStartedOn returns all sessions for deviceID whose start time falls
// inside the UTC calendar day beginning at dayStart.
func SessionsStartedOn(ctx context.Context, db *gorm.DB, deviceID string, dayStart time.Time) ([]domain.ExposureSession, error) {
	dayEnd := dayStart.Add(24 * time.Hour)
	var out []domain.ExposureSession
	err := db.WithContext(ctx).
		Where("device_id = ? AND start_time >= ? AND start_time < ?", deviceID, dayStart, dayEnd).
		Order("start_time asc").
		Find(&out).Error
	return out, err
}
