package backend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleFeaturesHaveNoWarnings(t *testing.T) {
	f := SampleFeatures()
	assert.Equal(t, 615.8, *f.Depth, "depth is in ppm")
	assert.Empty(t, CheckFeatures(f))
	assert.Len(t, f.Numeric(), len(FeatureColumns))
}

func TestCheckFeaturesMissingIsAdvisory(t *testing.T) {
	f := Features{Period: ptr(9.4), Prad: ptr(2.2)}
	warnings := CheckFeatures(f)
	require.Len(t, warnings, 1)
	assert.Equal(t, "missing key features: koi_impact, koi_duration, koi_depth, koi_teq", warnings[0])
}

func TestCheckFeaturesRanges(t *testing.T) {
	cases := map[string]float64{
		"koi_period":   0.05,
		"koi_impact":   1.5,
		"koi_duration": 101,
		"koi_prad":     51,
		"koi_teq":      99,
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			f := SampleFeatures()
			require.NoError(t, f.Set(name, ptr(bad)))
			warnings := CheckFeatures(f)
			require.Len(t, warnings, 1)
			assert.Contains(t, warnings[0], name)
		})
	}
}

func TestCheckFeaturesBoundsInclusive(t *testing.T) {
	f := SampleFeatures()
	f.Impact = ptr(0)
	f.Depth = ptr(50000)
	f.Teq = ptr(3000)
	assert.Empty(t, CheckFeatures(f))
}

func TestParseFeatureForm(t *testing.T) {
	f, err := ParseFeatureForm(map[string]string{
		"koi_period": "9.488",
		"koi_impact": "",
		"koi_teq":    " 793 ",
		"unrelated":  "x",
	})
	require.NoError(t, err)
	require.NotNil(t, f.Period)
	assert.Equal(t, 9.488, *f.Period)
	assert.Nil(t, f.Impact)
	assert.Equal(t, 793.0, *f.Teq)

	_, err = ParseFeatureForm(map[string]string{"koi_prad": "big"})
	assert.ErrorIs(t, err, ErrValidation)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "koi_prad", ve.Field)
}

func TestWithMediansAndNumeric(t *testing.T) {
	f := Features{Prad: ptr(2.26)}.WithMedians()
	assert.Equal(t, 2.26, *f.Prad)
	assert.Equal(t, 10.0, *f.Period)
	assert.Len(t, f.Numeric(), len(FeatureColumns))

	assert.ErrorIs(t, (&Features{}).Set("koi_mass", ptr(1)), ErrUnknownFeature)
	assert.Nil(t, Features{}.Get("koi_mass"))
}
