// Package services defines the business logic for tile caching, exposure
// sessions, and daily summaries. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

var (
	// ErrInvalidTileKey is returned when a tile request carries an unknown
	// data type or coordinates outside the zoom level's grid.
	ErrInvalidTileKey = errors.New("invalid tile key")

	// ErrUpstreamUnavailable indicates the upstream tile provider failed or
	// timed out on a cache miss. Nothing is cached on this error.
	ErrUpstreamUnavailable = errors.New("upstream tile provider unavailable")

	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionAlreadyEnded is returned when end is called on a session
	// whose end time is already set.
	ErrSessionAlreadyEnded = errors.New("session already ended")

	// ErrSummaryNotFound indicates no daily summary exists for the requested
	// device and date.
	ErrSummaryNotFound = errors.New("daily summary not found")
)
