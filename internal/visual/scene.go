// Package visual describes the 3D comparison scene shown with a prediction:
// host star, exoplanet and a reference Earth, sized and colored from the KOI
// features. The server only describes the scene; the client renders it and
// frees the listed resources when the scene is disposed.
package visual

import (
	"fmt"
	"math"
)

// Generator supplies uniform values in [0, 1). *rand.Rand satisfies it.
type Generator interface {
	Float64() float64
}

// Scene constants.
const (
	StarX           = -15.0
	PlanetX         = 0.0
	EarthX          = 15.0
	EarthRadius     = 0.8
	GlowScale       = 1.2
	GlowOpacity     = 0.3
	BackgroundStars = 2000
	BackgroundSpan  = 200.0
)

// Color is a 0xRRGGBB value.
type Color uint32

func (c Color) String() string { return fmt.Sprintf("#%06x", uint32(c)) }

const (
	ColorOrangeStar Color = 0xff8c00
	ColorGoldStar   Color = 0xffd700
	ColorBlueStar   Color = 0xe0ffff
	ColorIcy        Color = 0xadd8e6
	ColorTemperate  Color = 0x2e8b57
	ColorHot        Color = 0xff4500
	ColorEarth      Color = 0x4a9eff
	ColorWhite      Color = 0xffffff
)

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Body is a sphere in the scene.
type Body struct {
	Name     string    `json:"name"`
	Radius   float64   `json:"radius"`
	Color    Color     `json:"color"`
	Opacity  float64   `json:"opacity"`
	Position Vec3      `json:"position"`
	Spin     float64   `json:"spin"`
	Geometry *Resource `json:"geometry"`
	Material *Resource `json:"material"`
}

type Light struct {
	Kind      string  `json:"kind"`
	Color     Color   `json:"color"`
	Intensity float64 `json:"intensity"`
	Distance  float64 `json:"distance,omitempty"`
	Position  Vec3    `json:"position"`
}

type Label struct {
	Text     string    `json:"text"`
	Position Vec3      `json:"position"`
	Scale    float64   `json:"scale"`
	Texture  *Resource `json:"texture"`
	Material *Resource `json:"material"`
}

type StarField struct {
	Positions []Vec3    `json:"positions"`
	Size      float64   `json:"size"`
	Geometry  *Resource `json:"geometry"`
	Material  *Resource `json:"material"`
}

type Camera struct {
	FOV      float64 `json:"fov"`
	Near     float64 `json:"near"`
	Far      float64 `json:"far"`
	Position Vec3    `json:"position"`
}

// Scene is everything the client needs to draw one comparison.
type Scene struct {
	Star        Body      `json:"star"`
	Glow        Body      `json:"glow"`
	Planet      Body      `json:"planet"`
	Earth       Body      `json:"earth"`
	Lights      []Light   `json:"lights"`
	Background  StarField `json:"background"`
	Labels      []Label   `json:"labels"`
	Camera      Camera    `json:"camera"`
	Description string    `json:"description"`
	Overlay     string    `json:"overlay,omitempty"`

	res *tracker
}

// Resources lists every tracked allocation in creation order.
func (s *Scene) Resources() []*Resource { return s.res.list() }

// Dispose releases every resource. Only the first call has an effect; it
// returns the number of resources released.
func (s *Scene) Dispose() int { return s.res.dispose() }

// feature reads a value the way the client does: missing, zero and NaN all
// fall through to the next candidate.
func feature(features map[string]float64, fallback float64, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := features[k]; ok && v != 0 && !math.IsNaN(v) {
			return v
		}
	}
	return fallback
}

// Classification of the planet's equilibrium temperature.
func planetClimate(teq float64) (Color, string) {
	switch {
	case teq < 273:
		return ColorIcy, "Icy"
	case teq <= 373:
		return ColorTemperate, "Temperate"
	default:
		return ColorHot, "Hot"
	}
}

func starColor(steff float64) Color {
	switch {
	case steff < 4000:
		return ColorOrangeStar
	case steff <= 6000:
		return ColorGoldStar
	default:
		return ColorBlueStar
	}
}

// roundHalfUp matches the client's rounding of negative halves toward +Inf.
func roundHalfUp(v float64) float64 { return math.Floor(v + 0.5) }

// Build describes the scene for features. features may be nil.
func Build(features map[string]float64, gen Generator) *Scene {
	prad := feature(features, 1, "koi_prad", "planetRadius")
	srad := feature(features, 1, "koi_srad")
	teq := feature(features, 273, "koi_teq")
	steff := feature(features, 5700, "koi_steff")

	res := &tracker{}
	sphere := func(name string, radius float64, color Color, opacity float64, x, spin float64) Body {
		return Body{
			Name:     name,
			Radius:   radius,
			Color:    color,
			Opacity:  opacity,
			Position: Vec3{X: x},
			Spin:     spin,
			Geometry: res.alloc(KindGeometry, name),
			Material: res.alloc(KindMaterial, name),
		}
	}

	sc := starColor(steff)
	starRadius := math.Max(3, srad*3)
	planetRadius := math.Max(0.8, prad*0.8)
	pColor, climate := planetClimate(teq)

	s := &Scene{res: res}
	s.Star = sphere("star", starRadius, sc, 1, StarX, 0.002)
	s.Glow = sphere("glow", starRadius*GlowScale, sc, GlowOpacity, StarX, -0.001)
	s.Planet = sphere("planet", planetRadius, pColor, 1, PlanetX, 0.01)
	s.Earth = sphere("earth", EarthRadius, ColorEarth, 1, EarthX, 0.01)

	s.Lights = []Light{
		{Kind: "ambient", Color: ColorWhite, Intensity: 1.5},
		{Kind: "point", Color: sc, Intensity: 5, Distance: 200, Position: Vec3{X: StarX}},
		{Kind: "directional", Color: ColorWhite, Intensity: 1, Position: Vec3{Y: 10, Z: 10}},
	}

	positions := make([]Vec3, BackgroundStars)
	for i := range positions {
		positions[i] = Vec3{
			X: (gen.Float64() - 0.5) * BackgroundSpan,
			Y: (gen.Float64() - 0.5) * BackgroundSpan,
			Z: (gen.Float64() - 0.5) * BackgroundSpan,
		}
	}
	s.Background = StarField{
		Positions: positions,
		Size:      0.05,
		Geometry:  res.alloc(KindGeometry, "background"),
		Material:  res.alloc(KindMaterial, "background"),
	}

	s.Description = fmt.Sprintf("%.0f°C (%s)", roundHalfUp(teq-273), climate)

	label := func(text string, x, y, scale float64) Label {
		name := fmt.Sprintf("label-%d", len(s.Labels))
		return Label{
			Text:     text,
			Position: Vec3{X: x, Y: y},
			Scale:    scale,
			Texture:  res.alloc(KindTexture, name),
			Material: res.alloc(KindMaterial, name),
		}
	}
	add := func(text string, x, y, scale float64) { s.Labels = append(s.Labels, label(text, x, y, scale)) }
	add("Host Star", StarX, starRadius+3, 15)
	add(fmt.Sprintf("%.2f x Sun", srad), StarX, -starRadius-2.5, 12)
	add("Exoplanet", PlanetX, planetRadius+3, 15)
	add(fmt.Sprintf("%.2f x Earth", prad), PlanetX, -planetRadius-2.5, 12)
	add(s.Description, PlanetX, -planetRadius-4.5, 10)
	add("Earth", EarthX, EarthRadius+3, 15)
	add("(Reference)", EarthX, -EarthRadius-2.5, 12)

	s.Camera = Camera{FOV: 75, Near: 0.1, Far: 1000, Position: Vec3{Y: 2, Z: 30}}

	if period := feature(features, 0, "koi_period"); period != 0 {
		s.Overlay = fmt.Sprintf("One year on this planet lasts %.1f Earth days", period)
	}
	return s
}
