// Handler wiring.
//
// Handlers groups the HTTP endpoints for tiles, sessions, readings, and
// summaries. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
package handlers

import (
	"context"

	"github.com/breathsense/go-exposure-backend/internal/domain"
	"github.com/breathsense/go-exposure-backend/internal/services"
)

// SessionService defines session lifecycle and reading ingestion operations
// consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SessionService interface {
	// Start creates a new exposure session for a device.
	Start(ctx context.Context, deviceID string, userID *string, lat, lng *float64) (*domain.ExposureSession, error)
	// End transitions a session to ended exactly once.
	End(ctx context.Context, sessionID string) (*domain.ExposureSession, error)
	// Get fetches a session by ID.
	Get(ctx context.Context, sessionID string) (*domain.ExposureSession, error)
	// ListPage returns a page of a device's sessions and the total count.
	ListPage(ctx context.Context, deviceID string, page, pageSize int) ([]domain.ExposureSession, int64, error)
	// Record scores and persists a reading against a session.
	Record(ctx context.Context, sessionID string, raw services.RawReading) (*domain.ExposureReading, error)
}

// SummaryService defines daily summary operations consumed by HTTP handlers.
type SummaryService interface {
	// Get returns the stored summary without recomputing.
	Get(ctx context.Context, deviceID, date string) (*domain.DailySummary, error)
	// Recompute re-derives and upserts the summary for a device and date.
	Recompute(ctx context.Context, deviceID, date string) (*domain.DailySummary, error)
}

// Handlers groups HTTP endpoints for tiles, sessions, and summaries.
type Handlers struct {
	tileSvc    TileService
	sessionSvc SessionService
	summarySvc SummaryService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(tileSvc TileService, sessionSvc SessionService, summarySvc SummaryService) *Handlers {
	return &Handlers{tileSvc: tileSvc, sessionSvc: sessionSvc, summarySvc: summarySvc}
}
