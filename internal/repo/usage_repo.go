// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the UsageCounter
// model used for upstream quota observability.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/breathsense/go-exposure-backend/internal/domain"
)

// IncrementUsage bumps the counter for (endpoint, dataType) in the hour
// bucket containing at. The write is a single INSERT ... ON CONFLICT with an
// SQL-side increment, so concurrent callers never lose updates and at most
// one row exists per hour bucket.
func IncrementUsage(ctx context.Context, db *gorm.DB, endpoint, dataType string, at time.Time) error {
	at = at.UTC()
	rec := &domain.UsageCounter{
		ID:            uuid.NewString(),
		Endpoint:      endpoint,
		DataType:      dataType,
		HourBucket:    at.Truncate(time.Hour),
		RequestCount:  1,
		LastRequestAt: at,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "endpoint"}, {Name: "data_type"}, {Name: "hour_bucket"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"request_count":   gorm.Expr("request_count + 1"),
				"last_request_at": at,
			}),
		}).
		Create(rec).Error
}

// ListUsage returns hourly counters since the given cutoff, newest first,
// optionally filtered by data type (empty string matches all).
func ListUsage(ctx context.Context, db *gorm.DB, dataType string, since time.Time) ([]domain.UsageCounter, error) {
	q := db.WithContext(ctx).
		Where("hour_bucket >= ?", since.UTC()).
		Order("hour_bucket desc")
	if dataType != "" {
		q = q.Where("data_type = ?", dataType)
	}
	var out []domain.UsageCounter
	err := q.Find(&out).Error
	return out, err
}
