// Package services – SessionService
//
// This file implements the SessionService, which owns the exposure session
// lifecycle (start → active → ended) and reading ingestion. Readings are
// scored at ingestion time via the scoring package and persisted with their
// four derived scores; a reading without scores never reaches the store.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/breathsense/go-exposure-backend/internal/domain"
	"github.com/breathsense/go-exposure-backend/internal/repo"
	"github.com/breathsense/go-exposure-backend/internal/scoring"
)

// RawReading carries the nullable environmental fields of one sample as
// reported by a device. Missing signals score zero for their component.
type RawReading struct {
	ReadingTime      *time.Time
	Lat              *float64
	Lng              *float64
	AirQualityIndex  *float64
	PM25             *float64
	PM10             *float64
	Ozone            *float64
	NO2              *float64
	CO               *float64
	TreePollenIndex  *float64
	GrassPollenIndex *float64
	WeedPollenIndex  *float64
	TotalPollenIndex *float64
	UVIndex          *float64
	TemperatureC     *float64
	Humidity         *float64
	WindSpeed        *float64
}

// SessionService provides session lifecycle and reading ingestion operations.
type SessionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewSessionService constructs a SessionService.
func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{DB: db}
}

// Start creates a new session for deviceID and returns it. Session IDs are
// UUIDs, unique per call even under concurrent starts from one device.
func (s *SessionService) Start(ctx context.Context, deviceID string, userID *string, lat, lng *float64) (*domain.ExposureSession, error) {
	return repo.CreateSession(ctx, s.DB, deviceID, userID, lat, lng)
}

// End transitions a session to ended, computing its duration in minutes.
// Ending an unknown session yields ErrSessionNotFound; ending twice yields
// ErrSessionAlreadyEnded. A session never returns to active.
func (s *SessionService) End(ctx context.Context, sessionID string) (*domain.ExposureSession, error) {
	sess, err := repo.EndSession(ctx, s.DB, sessionID, time.Now().UTC())
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		if errors.Is(err, repo.ErrAlreadyEnded) {
			return nil, ErrSessionAlreadyEnded
		}
		return nil, err
	}
	return sess, nil
}

// Get fetches a session by ID.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*domain.ExposureSession, error) {
	sess, err := repo.GetSession(ctx, s.DB, sessionID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

// ListPage returns a page of a device's sessions and the total count. It
// applies defaults for invalid page/pageSize.
func (s *SessionService) ListPage(ctx context.Context, deviceID string, page, pageSize int) ([]domain.ExposureSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountSessions(ctx, s.DB, deviceID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ExposureSession{}, 0, nil
	}

	items, err := repo.ListSessionsPage(ctx, s.DB, deviceID, offset, pageSize)
	return items, total, err
}

// Record scores a raw reading and persists it against sessionID. The session
// must exist but is not required to still be active: late readings against an
// ended session are accepted.
func (s *SessionService) Record(ctx context.Context, sessionID string, raw RawReading) (*domain.ExposureReading, error) {
	if _, err := repo.GetSession(ctx, s.DB, sessionID); err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	result := scoring.Score(
		deref(raw.AirQualityIndex),
		deref(raw.TotalPollenIndex),
		deref(raw.UVIndex),
	)

	now := time.Now().UTC()
	readingTime := now
	if raw.ReadingTime != nil {
		readingTime = raw.ReadingTime.UTC()
	}

	r := &domain.ExposureReading{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		ReadingTime: readingTime,
		Lat:         raw.Lat,
		Lng:         raw.Lng,

		AirQualityIndex:  raw.AirQualityIndex,
		PM25:             raw.PM25,
		PM10:             raw.PM10,
		Ozone:            raw.Ozone,
		NO2:              raw.NO2,
		CO:               raw.CO,
		TreePollenIndex:  raw.TreePollenIndex,
		GrassPollenIndex: raw.GrassPollenIndex,
		WeedPollenIndex:  raw.WeedPollenIndex,
		TotalPollenIndex: raw.TotalPollenIndex,
		UVIndex:          raw.UVIndex,
		TemperatureC:     raw.TemperatureC,
		Humidity:         raw.Humidity,
		WindSpeed:        raw.WindSpeed,

		AirQualityScore: result.AirQuality,
		PollenScore:     result.Pollen,
		UVScore:         result.UV,
		OverallScore:    result.Overall,

		CreatedAt: now,
	}
	if err := repo.CreateReading(ctx, s.DB, r); err != nil {
		return nil, err
	}
	return r, nil
}

// deref returns the pointed-to value, or 0 for a missing signal.
func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
