// Package geo implements the spherical (Web-Mercator) tiling scheme used to
// address heatmap tiles: (lat, lng, zoom) → tile (x, y) and tile → bounding
// box. All functions are pure; no state, no side effects.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// MaxZoom is the deepest zoom level the API accepts. Upstream heatmap
// providers do not serve tiles beyond this depth.
const MaxZoom = 22

// ErrOutOfRange indicates coordinates outside the domain of the projection
// or a tile address outside the zoom level's grid.
var ErrOutOfRange = errors.New("coordinates out of range")

// TileBounds is the geographic bounding box of one tile, in degrees.
type TileBounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// ToTile converts a geographic coordinate to the (x, y) address of the tile
// containing it at the given zoom level.
//
// Latitude must lie strictly inside (-90, 90): the Mercator projection is
// singular at the poles. Longitude must lie in [-180, 180].
func ToTile(lat, lng float64, zoom int) (x, y int, err error) {
	if zoom < 0 || zoom > MaxZoom {
		return 0, 0, fmt.Errorf("%w: zoom %d", ErrOutOfRange, zoom)
	}
	if lat <= -90 || lat >= 90 {
		return 0, 0, fmt.Errorf("%w: lat %v", ErrOutOfRange, lat)
	}
	if lng < -180 || lng > 180 {
		return 0, 0, fmt.Errorf("%w: lng %v", ErrOutOfRange, lng)
	}

	n := float64(int(1) << uint(zoom))
	x = int(math.Floor((lng + 180) / 360 * n))
	latRad := lat * math.Pi / 180
	y = int(math.Floor((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n))

	// lng == 180 and extreme latitudes land exactly on the grid edge; clamp
	// into the last tile rather than reporting an address one past the end.
	max := int(n) - 1
	if x > max {
		x = max
	}
	if y > max {
		y = max
	}
	if y < 0 {
		y = 0
	}
	return x, y, nil
}

// Bounds returns the geographic bounding box of tile (x, y) at zoom. It is
// the inverse of ToTile and is used for client display only; cache keys are
// derived from the raw tile address, never from bounds.
func Bounds(x, y, zoom int) (TileBounds, error) {
	if err := ValidateTile(zoom, x, y); err != nil {
		return TileBounds{}, err
	}
	n := float64(int(1) << uint(zoom))
	return TileBounds{
		West:  float64(x)/n*360 - 180,
		East:  float64(x+1)/n*360 - 180,
		North: tileLat(float64(y), n),
		South: tileLat(float64(y+1), n),
	}, nil
}

// ValidateTile reports whether (zoom, x, y) addresses a tile inside the zoom
// level's grid (0 ≤ x,y < 2^zoom).
func ValidateTile(zoom, x, y int) error {
	if zoom < 0 || zoom > MaxZoom {
		return fmt.Errorf("%w: zoom %d", ErrOutOfRange, zoom)
	}
	tilesPerAxis := 1 << uint(zoom)
	if x < 0 || x >= tilesPerAxis {
		return fmt.Errorf("%w: x %d at zoom %d", ErrOutOfRange, x, zoom)
	}
	if y < 0 || y >= tilesPerAxis {
		return fmt.Errorf("%w: y %d at zoom %d", ErrOutOfRange, y, zoom)
	}
	return nil
}

// tileLat converts a fractional tile row to latitude via the inverse Mercator
// projection.
func tileLat(y, n float64) float64 {
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*y/n)))
	return latRad * 180 / math.Pi
}
