// Package scoring converts raw environmental indices into bounded integer
// exposure scores. Score is a pure function: identical inputs always produce
// identical integer outputs, with band boundaries belonging to the lower
// segment so results never depend on floating-point edge behavior.
package scoring

import "math"

// Weights applied when combining sub-scores into the overall score.
const (
	weightAirQuality = 0.4
	weightPollen     = 0.3
	weightUV         = 0.3
)

// Result holds the four derived scores for one reading. Sub-scores can exceed
// 100 on severe inputs (air quality saturates at 500, pollen at 130, UV at
// 300); the weighting keeps typical overall scores in the 0–100 range.
type Result struct {
	AirQuality int `json:"air_quality_score"`
	Pollen     int `json:"pollen_score"`
	UV         int `json:"uv_score"`
	Overall    int `json:"overall_score"`
}

// Score maps raw index values to exposure scores via piecewise-linear bands.
// Callers pass 0 for signals a reading did not include; every band maps 0 to
// a zero score.
func Score(aqi, pollen, uv float64) Result {
	a := AirQualityScore(aqi)
	p := PollenScore(pollen)
	u := UVScore(uv)
	return Result{
		AirQuality: a,
		Pollen:     p,
		UV:         u,
		Overall:    Overall(a, p, u),
	}
}

// AirQualityScore scores a raw AQI value. Zero through 50 is clean air;
// beyond that the score climbs at twice the index until it saturates at 500
// for AQI above 300.
func AirQualityScore(aqi float64) int {
	switch {
	case aqi <= 50:
		return 0
	case aqi <= 300:
		return round((aqi - 50) * 2)
	default:
		return 500
	}
}

// PollenScore scores a total pollen index. Indices at or below 2.4 do not
// register; three linear segments cover 2.4–12.0 and the score plateaus at
// 130 above that.
func PollenScore(p float64) int {
	switch {
	case p <= 2.4:
		return 0
	case p <= 4.8:
		return round((p - 2.4) * 50 / 2.4)
	case p <= 7.2:
		return round(50 + (p-4.8)*50/2.4)
	case p <= 12.0:
		return round(100 + (p-7.2)*30/4.8)
	default:
		return 130
	}
}

// UVScore scores a UV index. Values at or below 2 are low exposure; three
// linear segments cover 2–10 and the score plateaus at 300 above that.
func UVScore(u float64) int {
	switch {
	case u <= 2:
		return 0
	case u <= 5:
		return round((u - 2) * 100 / 3)
	case u <= 8:
		return round(100 + (u-5)*100/3)
	case u <= 10:
		return round(200 + (u-8)*50)
	default:
		return 300
	}
}

// Overall combines the three sub-scores with fixed weights.
func Overall(airQuality, pollen, uv int) int {
	return round(weightAirQuality*float64(airQuality) +
		weightPollen*float64(pollen) +
		weightUV*float64(uv))
}

func round(v float64) int { return int(math.Round(v)) }
