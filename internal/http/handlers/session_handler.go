// Session HTTP handlers.
//
// This file exposes REST endpoints for exposure sessions and readings:
//   - POST /sessions                  (start)
//   - POST /sessions/{id}/end         (end)
//   - GET  /sessions/{id}             (fetch)
//   - GET  /sessions?device_id=…      (list, paginated)
//   - POST /sessions/{id}/readings    (record a scored reading)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/breathsense/go-exposure-backend/internal/domain"
	"github.com/breathsense/go-exposure-backend/internal/services"
	"github.com/breathsense/go-exposure-backend/internal/utils"
)

//
// DTOs
//

// LocationDTO is an optional coordinate pair on session start.
type LocationDTO struct {
	Lat float64 `json:"lat" binding:"gte=-90,lte=90"`
	Lng float64 `json:"lng" binding:"gte=-180,lte=180"`
}

// StartSessionRequest is the JSON payload for starting a session.
type StartSessionRequest struct {
	// DeviceID identifies the reporting device (required).
	DeviceID string `json:"device_id" binding:"required,max=64" example:"device-42"`
	// UserID optionally ties the session to a user account.
	UserID *string `json:"user_id,omitempty" example:"user123"`
	// Location optionally records where the session started.
	Location *LocationDTO `json:"location,omitempty"`
}

// RecordReadingRequest is the JSON payload for recording a reading. All
// numeric fields are optional; missing signals score zero for their
// component.
type RecordReadingRequest struct {
	ReadingTime      *time.Time `json:"reading_time,omitempty"`
	Lat              *float64   `json:"lat,omitempty" binding:"omitempty,gte=-90,lte=90"`
	Lng              *float64   `json:"lng,omitempty" binding:"omitempty,gte=-180,lte=180"`
	AirQualityIndex  *float64   `json:"air_quality_index,omitempty"`
	PM25             *float64   `json:"pm25,omitempty"`
	PM10             *float64   `json:"pm10,omitempty"`
	Ozone            *float64   `json:"ozone,omitempty"`
	NO2              *float64   `json:"no2,omitempty"`
	CO               *float64   `json:"co,omitempty"`
	TreePollenIndex  *float64   `json:"tree_pollen_index,omitempty"`
	GrassPollenIndex *float64   `json:"grass_pollen_index,omitempty"`
	WeedPollenIndex  *float64   `json:"weed_pollen_index,omitempty"`
	TotalPollenIndex *float64   `json:"total_pollen_index,omitempty"`
	UVIndex          *float64   `json:"uv_index,omitempty"`
	TemperatureC     *float64   `json:"temperature_c,omitempty"`
	Humidity         *float64   `json:"humidity,omitempty"`
	WindSpeed        *float64   `json:"wind_speed,omitempty"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListSessionsResponse wraps a page of sessions and pagination information.
type ListSessionsResponse struct {
	Sessions   []domain.ExposureSession `json:"sessions"`
	Pagination Pagination               `json:"pagination"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// StartSession creates a new exposure session.
//
// Responses: 201 session, 400 missing device id, 500 internal.
func (h *Handlers) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.DeviceID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "device_id required")
		return
	}

	var lat, lng *float64
	if req.Location != nil {
		lat, lng = &req.Location.Lat, &req.Location.Lng
	}

	sess, err := h.sessionSvc.Start(c.Request.Context(), strings.TrimSpace(req.DeviceID), req.UserID, lat, lng)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusCreated, sess)
}

// EndSession ends an active session and returns the updated record.
//
// Responses: 200 session, 400 bad id, 404 unknown session, 409 already ended.
func (h *Handlers) EndSession(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	sess, err := h.sessionSvc.End(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		case errors.Is(err, services.ErrSessionAlreadyEnded):
			fail(c, http.StatusConflict, ErrCodeConflict, "session already ended")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, sess)
}

// GetSession fetches one session by ID.
func (h *Handlers) GetSession(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	sess, err := h.sessionSvc.Get(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, sess)
}

// ListSessions returns a page of a device's sessions.
//
// Responses: 200 page, 400 missing device_id, 500 internal.
func (h *Handlers) ListSessions(c *gin.Context) {
	deviceID := strings.TrimSpace(c.Query("device_id"))
	if deviceID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "device_id query parameter required")
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.sessionSvc.ListPage(c.Request.Context(), deviceID, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListSessionsResponse{
		Sessions: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// RecordReading scores and persists one reading against a session. The
// session must exist; it is not required to still be active.
//
// Responses: 201 reading with scores, 400 bad payload, 404 unknown session.
func (h *Handlers) RecordReading(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	var req RecordReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	reading, err := h.sessionSvc.Record(c.Request.Context(), sessionID, services.RawReading{
		ReadingTime:      req.ReadingTime,
		Lat:              req.Lat,
		Lng:              req.Lng,
		AirQualityIndex:  req.AirQualityIndex,
		PM25:             req.PM25,
		PM10:             req.PM10,
		Ozone:            req.Ozone,
		NO2:              req.NO2,
		CO:               req.CO,
		TreePollenIndex:  req.TreePollenIndex,
		GrassPollenIndex: req.GrassPollenIndex,
		WeedPollenIndex:  req.WeedPollenIndex,
		TotalPollenIndex: req.TotalPollenIndex,
		UVIndex:          req.UVIndex,
		TemperatureC:     req.TemperatureC,
		Humidity:         req.Humidity,
		WindSpeed:        req.WindSpeed,
	})
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusCreated, reading)
}
