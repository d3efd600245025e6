// Package services – SummaryService
//
// This file implements the SummaryService, which derives per-device daily
// summaries from the underlying sessions and readings. A summary is always
// recomputed from scratch and upserted by (device, date), never incrementally
// accumulated, so retried or out-of-order recomputation never corrupts the
// aggregates.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/breathsense/go-exposure-backend/internal/domain"
	"github.com/breathsense/go-exposure-backend/internal/repo"
)

// Band thresholds for the time-in-band minute counters, applied to the raw
// index values of each reading.
const (
	aqiGoodMax     = 50  // raw AQI; at or below is "good"
	aqiModerateMax = 100 // above good, at or below is "moderate"
	pollenHighMin  = 4.8 // total pollen index; at or above is "high"
	uvHighMin      = 6.0 // UV index; at or above is "high"
)

// DateLayout is the wire and storage format for summary dates.
const DateLayout = "2006-01-02"

// SummaryService provides daily summary recomputation and lookup.
type SummaryService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewSummaryService constructs a SummaryService.
func NewSummaryService(db *gorm.DB) *SummaryService {
	return &SummaryService{DB: db}
}

// Get returns the stored summary for (deviceID, date) without recomputing.
func (s *SummaryService) Get(ctx context.Context, deviceID, date string) (*domain.DailySummary, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, err
	}
	sum, err := repo.GetDailySummary(ctx, s.DB, deviceID, date)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrSummaryNotFound
		}
		return nil, err
	}
	return sum, nil
}

// Recompute joins all of deviceID's sessions started on date (UTC) with
// their readings, re-derives every summary field from scratch, and upserts
// the result. Calling it twice with unchanged underlying data produces the
// same summary.
func (s *SummaryService) Recompute(ctx context.Context, deviceID, date string) (*domain.DailySummary, error) {
	dayStart, err := time.Parse(DateLayout, date)
	if err != nil {
		return nil, err
	}
	dayStart = dayStart.UTC()

	sessions, err := repo.SessionsStartedOn(ctx, s.DB, deviceID, dayStart)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
	}
	readings, err := repo.ReadingsForSessions(ctx, s.DB, ids)
	if err != nil {
		return nil, err
	}

	sum := buildSummary(deviceID, date, sessions, readings)
	if err := repo.UpsertDailySummary(ctx, s.DB, sum); err != nil {
		return nil, err
	}
	return sum, nil
}

// buildSummary computes every DailySummary field from the day's sessions and
// readings. Pure; extracted so tests can exercise the aggregation directly.
func buildSummary(deviceID, date string, sessions []domain.ExposureSession, readings []domain.ExposureReading) *domain.DailySummary {
	sum := &domain.DailySummary{
		DeviceID:     deviceID,
		Date:         date,
		SessionCount: len(sessions),
		ReadingCount: len(readings),
	}
	for _, sess := range sessions {
		if sess.DurationMinutes != nil {
			sum.TotalDurationMinutes += *sess.DurationMinutes
		}
	}

	var aqi, pm25, pollen, uv, overall meanMax
	// Worst band observed per minute bucket, per signal. Counting distinct
	// minutes keeps recomputation independent of reading order.
	airBand := map[time.Time]int{}
	pollenBand := map[time.Time]int{}
	uvBand := map[time.Time]int{}

	for _, r := range readings {
		aqi.add(r.AirQualityIndex)
		pm25.add(r.PM25)
		pollen.add(r.TotalPollenIndex)
		uv.add(r.UVIndex)
		o := float64(r.OverallScore)
		overall.add(&o)

		minute := r.ReadingTime.UTC().Truncate(time.Minute)
		if r.AirQualityIndex != nil {
			maxBand(airBand, minute, airBandOf(*r.AirQualityIndex))
		}
		if r.TotalPollenIndex != nil {
			maxBand(pollenBand, minute, highLowBandOf(*r.TotalPollenIndex, pollenHighMin))
		}
		if r.UVIndex != nil {
			maxBand(uvBand, minute, highLowBandOf(*r.UVIndex, uvHighMin))
		}
	}

	sum.AvgAQI, sum.MaxAQI = aqi.results()
	sum.AvgPM25, sum.MaxPM25 = pm25.results()
	sum.AvgTotalPollen, sum.MaxTotalPollen = pollen.results()
	sum.AvgUVIndex, sum.MaxUVIndex = uv.results()
	avgOverall, maxOverall := overall.results()
	sum.AvgOverallScore = avgOverall
	if maxOverall != nil {
		m := int(*maxOverall)
		sum.MaxOverallScore = &m
	}

	for _, band := range airBand {
		switch band {
		case 0:
			sum.MinutesAirGood++
		case 1:
			sum.MinutesAirModerate++
		default:
			sum.MinutesAirUnhealthy++
		}
	}
	for _, band := range pollenBand {
		if band == 0 {
			sum.MinutesPollenLow++
		} else {
			sum.MinutesPollenHigh++
		}
	}
	for _, band := range uvBand {
		if band == 0 {
			sum.MinutesUVLow++
		} else {
			sum.MinutesUVHigh++
		}
	}
	return sum
}

// airBandOf classifies a raw AQI: 0 good, 1 moderate, 2 unhealthy.
func airBandOf(aqi float64) int {
	switch {
	case aqi <= aqiGoodMax:
		return 0
	case aqi <= aqiModerateMax:
		return 1
	default:
		return 2
	}
}

// highLowBandOf classifies a value against a high threshold: 0 low, 1 high.
func highLowBandOf(v, highMin float64) int {
	if v >= highMin {
		return 1
	}
	return 0
}

// maxBand records the worst band seen for a minute bucket.
func maxBand(m map[time.Time]int, minute time.Time, band int) {
	if cur, ok := m[minute]; !ok || band > cur {
		m[minute] = band
	}
}

// meanMax accumulates a nullable series into average and maximum.
type meanMax struct {
	sum   float64
	max   float64
	count int
}

func (m *meanMax) add(v *float64) {
	if v == nil {
		return
	}
	if m.count == 0 || *v > m.max {
		m.max = *v
	}
	m.sum += *v
	m.count++
}

func (m *meanMax) results() (avg, max *float64) {
	if m.count == 0 {
		return nil, nil
	}
	a := m.sum / float64(m.count)
	mx := m.max
	return &a, &mx
}
