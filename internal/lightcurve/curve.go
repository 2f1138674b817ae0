package lightcurve

import "math"

// DefaultLimit is how many rows are charted.
const DefaultLimit = 100

// Generator supplies uniform values in [0, 1). *rand.Rand satisfies it.
type Generator interface {
	Float64() float64
}

// Point is one charted sample; Time is the row index.
type Point struct {
	Time float64 `json:"time"`
	Flux float64 `json:"flux"`
}

// Curve charts the first limit rows. A row without a usable flux value gets a
// synthetic one drawn from gen. limit <= 0 means DefaultLimit.
func Curve(rows []Row, limit int, gen Generator) []Point {
	if limit <= 0 {
		limit = DefaultLimit
	}
	n := min(limit, len(rows))
	out := make([]Point, n)
	for i := 0; i < n; i++ {
		out[i] = Point{Time: float64(i), Flux: flux(rows[i], gen)}
	}
	return out
}

// flux prefers FLUX, then flux. Zero and non-numeric values count as missing.
func flux(row Row, gen Generator) float64 {
	for _, key := range []string{"FLUX", "flux"} {
		if f, ok := row[key].(float64); ok && f != 0 && !math.IsNaN(f) {
			return f
		}
	}
	return gen.Float64()*1000 + 4000
}

// DemoMetrics are placeholder figures shown when no backend is configured.
type DemoMetrics struct {
	TransitDepth     float64 `json:"transitDepth"`
	OrbitalPeriod    float64 `json:"orbitalPeriod"`
	PlanetRadius     float64 `json:"planetRadius"`
	StellarMagnitude float64 `json:"stellarMagnitude"`
}

// DemoResult is the offline analysis of an upload.
type DemoResult struct {
	IsExoplanet bool        `json:"isExoplanet"`
	Confidence  float64     `json:"confidence"`
	Metrics     DemoMetrics `json:"metrics"`
	LightCurve  []Point     `json:"lightCurve"`
}

// Demo produces a non-scientific analysis from gen. It does not look at the
// data beyond charting it.
func Demo(rows []Row, gen Generator) DemoResult {
	p := gen.Float64()
	res := DemoResult{
		IsExoplanet: p > 0.5,
		Confidence:  round(p*100, 2),
		Metrics: DemoMetrics{
			TransitDepth:     round(gen.Float64()*2+0.5, 3),
			OrbitalPeriod:    round(gen.Float64()*100+10, 2),
			PlanetRadius:     round(gen.Float64()*3+0.5, 2),
			StellarMagnitude: round(gen.Float64()*5+10, 2),
		},
	}
	res.LightCurve = Curve(rows, DefaultLimit, gen)
	return res
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
