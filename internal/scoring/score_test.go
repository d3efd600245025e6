package scoring

import (
	"math"
	"math/rand"
	"testing"
)

func TestAirQualityScore_Bands(t *testing.T) {
	cases := []struct {
		aqi  float64
		want int
	}{
		{0, 0},
		{25, 0},
		{50, 0},  // boundary belongs to the lower band
		{51, 2},  // first step above clean air
		{100, 100},
		{120, 140},
		{300, 500}, // boundary belongs to the linear band
		{301, 500},
		{1000, 500}, // saturation
	}
	for _, tc := range cases {
		if got := AirQualityScore(tc.aqi); got != tc.want {
			t.Fatalf("AirQualityScore(%v) = %d; want %d", tc.aqi, got, tc.want)
		}
	}
}

func TestPollenScore_Bands(t *testing.T) {
	cases := []struct {
		p    float64
		want int
	}{
		{0, 0},
		{2.4, 0}, // boundary belongs to the lower band
		{3.6, 25},
		{4.8, 50},
		{6.0, 75},
		{7.2, 100},
		{9.6, 115},
		{12.0, 130},
		{50, 130}, // saturation
	}
	for _, tc := range cases {
		if got := PollenScore(tc.p); got != tc.want {
			t.Fatalf("PollenScore(%v) = %d; want %d", tc.p, got, tc.want)
		}
	}
}

func TestUVScore_Bands(t *testing.T) {
	cases := []struct {
		u    float64
		want int
	}{
		{0, 0},
		{2, 0}, // boundary belongs to the lower band
		{3.5, 50},
		{5, 100},
		{6.5, 150},
		{8, 200},
		{9, 250},
		{10, 300},
		{15, 300}, // saturation
	}
	for _, tc := range cases {
		if got := UVScore(tc.u); got != tc.want {
			t.Fatalf("UVScore(%v) = %d; want %d", tc.u, got, tc.want)
		}
	}
}

func TestScore_MissingSignalsScoreZero(t *testing.T) {
	// A reading with only AQI present: pollen and UV default to 0.
	res := Score(120, 0, 0)
	if res.AirQuality != 140 {
		t.Fatalf("air quality score = %d; want 140", res.AirQuality)
	}
	if res.Pollen != 0 || res.UV != 0 {
		t.Fatalf("missing signals must score zero, got %+v", res)
	}
	if want := 56; res.Overall != want { // round(0.4*140)
		t.Fatalf("overall = %d; want %d", res.Overall, want)
	}
}

func TestScore_TypicalReading(t *testing.T) {
	// aqi=120, pollen=5, uv absent
	res := Score(120, 5, 0)
	if res.AirQuality != 140 {
		t.Fatalf("air quality score = %d; want 140", res.AirQuality)
	}
	if res.Pollen != 54 { // round(50 + 0.2*50/2.4)
		t.Fatalf("pollen score = %d; want 54", res.Pollen)
	}
	if res.UV != 0 {
		t.Fatalf("uv score = %d; want 0", res.UV)
	}
	if want := round(0.4*140 + 0.3*54); res.Overall != want {
		t.Fatalf("overall = %d; want %d", res.Overall, want)
	}
}

func TestScore_Deterministic(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		aqi := r.Float64() * 600
		p := r.Float64() * 20
		u := r.Float64() * 15

		first := Score(aqi, p, u)
		second := Score(aqi, p, u)
		if first != second {
			t.Fatalf("Score not deterministic for (%v,%v,%v): %+v vs %+v", aqi, p, u, first, second)
		}

		want := int(math.Round(0.4*float64(first.AirQuality) +
			0.3*float64(first.Pollen) +
			0.3*float64(first.UV)))
		if first.Overall != want {
			t.Fatalf("overall mismatch for (%v,%v,%v): got %d want %d", aqi, p, u, first.Overall, want)
		}
	}
}

func TestScore_Bounds(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		res := Score(r.Float64()*2000, r.Float64()*100, r.Float64()*50)
		if res.AirQuality < 0 || res.AirQuality > 500 {
			t.Fatalf("air quality score out of bounds: %d", res.AirQuality)
		}
		if res.Pollen < 0 || res.Pollen > 130 {
			t.Fatalf("pollen score out of bounds: %d", res.Pollen)
		}
		if res.UV < 0 || res.UV > 300 {
			t.Fatalf("uv score out of bounds: %d", res.UV)
		}
	}
}
