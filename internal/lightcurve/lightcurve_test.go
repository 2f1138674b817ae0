package lightcurve

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seq returns its values in order, then repeats the last one.
type seq struct {
	vals []float64
	i    int
}

func (s *seq) Float64() float64 {
	v := s.vals[min(s.i, len(s.vals)-1)]
	s.i++
	return v
}

func TestParseDynamicTyping(t *testing.T) {
	in := "\ufeffTIME,FLUX,label,ok\n1,4001.5,a,true\n\n2,,b,FALSE\n3,1e3,\"c, d\",\n"
	tbl, err := Parse(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"TIME", "FLUX", "label", "ok"}, tbl.Columns)
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, 1.0, tbl.Rows[0]["TIME"])
	assert.Equal(t, 4001.5, tbl.Rows[0]["FLUX"])
	assert.Equal(t, "a", tbl.Rows[0]["label"])
	assert.Equal(t, true, tbl.Rows[0]["ok"])
	assert.Nil(t, tbl.Rows[1]["FLUX"])
	assert.Equal(t, false, tbl.Rows[1]["ok"])
	assert.Equal(t, 1000.0, tbl.Rows[2]["FLUX"])
	assert.Equal(t, "c, d", tbl.Rows[2]["label"])
}

func TestParseShortRows(t *testing.T) {
	tbl, err := Parse(strings.NewReader("flux,quality\n12\n"))
	require.NoError(t, err)
	v, present := tbl.Rows[0]["quality"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingHeader)

	_, err = Parse(strings.NewReader("time,brightness\n1,2\n"))
	assert.ErrorIs(t, err, ErrMissingFluxColumn)

	_, err = Parse(strings.NewReader("FLUX\n\n\n"))
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestCurvePrefersUpperCaseFlux(t *testing.T) {
	rows := []Row{
		{"FLUX": 10.0, "flux": 20.0},
		{"flux": 30.0},
		{"FLUX": 0.0},
		{"FLUX": "n/a"},
	}
	pts := Curve(rows, 0, &seq{vals: []float64{0.5}})
	assert.Equal(t, []Point{
		{Time: 0, Flux: 10},
		{Time: 1, Flux: 30},
		{Time: 2, Flux: 4500},
		{Time: 3, Flux: 4500},
	}, pts)
}

func TestCurveLimit(t *testing.T) {
	rows := make([]Row, 250)
	for i := range rows {
		rows[i] = Row{"FLUX": float64(i + 1)}
	}
	assert.Len(t, Curve(rows, 0, &seq{vals: []float64{0}}), DefaultLimit)
	assert.Len(t, Curve(rows, 7, &seq{vals: []float64{0}}), 7)
	assert.Len(t, Curve(rows[:3], 10, &seq{vals: []float64{0}}), 3)
}

func TestDemo(t *testing.T) {
	gen := &seq{vals: []float64{0.73456, 0.5, 0.25, 0.1, 0.9, 0.0}}
	res := Demo([]Row{{"FLUX": 1.0}, {"other": 1.0}}, gen)

	assert.True(t, res.IsExoplanet)
	assert.Equal(t, 73.46, res.Confidence)
	assert.Equal(t, DemoMetrics{
		TransitDepth:     1.5,
		OrbitalPeriod:    35,
		PlanetRadius:     0.8,
		StellarMagnitude: 14.5,
	}, res.Metrics)
	assert.Equal(t, []Point{{0, 1}, {1, 4000}}, res.LightCurve)

	assert.False(t, Demo(nil, &seq{vals: []float64{0.5}}).IsExoplanet)
}
