package backend

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FeatureColumns are the KOI features the classifier was trained on, in
// model order.
var FeatureColumns = []string{
	"koi_period", "koi_impact", "koi_duration", "koi_depth",
	"koi_prad", "koi_teq", "koi_insol", "koi_model_snr",
	"koi_steff", "koi_slogg", "koi_srad", "koi_kepmag",
	"koi_fpflag_nt", "koi_fpflag_ss", "koi_fpflag_co", "koi_fpflag_ec",
}

// FeatureMedians are the training medians used for missing values.
var FeatureMedians = map[string]float64{
	"koi_period":    10.0,
	"koi_impact":    0.5,
	"koi_duration":  3.0,
	"koi_depth":     500.0,
	"koi_prad":      2.0,
	"koi_teq":       700.0,
	"koi_insol":     50.0,
	"koi_model_snr": 30.0,
	"koi_steff":     5500.0,
	"koi_slogg":     4.4,
	"koi_srad":      1.0,
	"koi_kepmag":    14.0,
	"koi_fpflag_nt": 0,
	"koi_fpflag_ss": 0,
	"koi_fpflag_co": 0,
	"koi_fpflag_ec": 0,
}

var (
	ErrValidation     = errors.New("invalid features")
	ErrUnknownFeature = errors.New("unknown feature")
)

// Features is the single-object request body. Missing values encode as null.
type Features struct {
	Period     *float64 `json:"koi_period"`
	Impact     *float64 `json:"koi_impact"`
	Duration   *float64 `json:"koi_duration"`
	Depth      *float64 `json:"koi_depth"`
	Prad       *float64 `json:"koi_prad"`
	Teq        *float64 `json:"koi_teq"`
	Insol      *float64 `json:"koi_insol"`
	ModelSNR   *float64 `json:"koi_model_snr"`
	Steff      *float64 `json:"koi_steff"`
	Slogg      *float64 `json:"koi_slogg"`
	Srad       *float64 `json:"koi_srad"`
	Kepmag     *float64 `json:"koi_kepmag"`
	FPFlagNT   *float64 `json:"koi_fpflag_nt"`
	FPFlagSS   *float64 `json:"koi_fpflag_ss"`
	FPFlagCO   *float64 `json:"koi_fpflag_co"`
	FPFlagEC   *float64 `json:"koi_fpflag_ec"`
}

func (f *Features) field(name string) **float64 {
	switch name {
	case "koi_period":
		return &f.Period
	case "koi_impact":
		return &f.Impact
	case "koi_duration":
		return &f.Duration
	case "koi_depth":
		return &f.Depth
	case "koi_prad":
		return &f.Prad
	case "koi_teq":
		return &f.Teq
	case "koi_insol":
		return &f.Insol
	case "koi_model_snr":
		return &f.ModelSNR
	case "koi_steff":
		return &f.Steff
	case "koi_slogg":
		return &f.Slogg
	case "koi_srad":
		return &f.Srad
	case "koi_kepmag":
		return &f.Kepmag
	case "koi_fpflag_nt":
		return &f.FPFlagNT
	case "koi_fpflag_ss":
		return &f.FPFlagSS
	case "koi_fpflag_co":
		return &f.FPFlagCO
	case "koi_fpflag_ec":
		return &f.FPFlagEC
	}
	return nil
}

// Get returns a feature by column name, nil when missing or unknown.
func (f Features) Get(name string) *float64 {
	if p := f.field(name); p != nil {
		return *p
	}
	return nil
}

// Set assigns a feature by column name.
func (f *Features) Set(name string, v *float64) error {
	p := f.field(name)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrUnknownFeature, name)
	}
	*p = v
	return nil
}

// Numeric returns the present features as plain numbers.
func (f Features) Numeric() map[string]float64 {
	out := make(map[string]float64, len(FeatureColumns))
	for _, name := range FeatureColumns {
		if v := f.Get(name); v != nil {
			out[name] = *v
		}
	}
	return out
}

// WithMedians fills every missing feature with its training median.
func (f Features) WithMedians() Features {
	out := f
	for _, name := range FeatureColumns {
		if out.Get(name) == nil {
			m := FeatureMedians[name]
			_ = out.Set(name, &m)
		}
	}
	return out
}

// ParseFeatureForm converts raw form values. Empty values become missing;
// unknown keys are ignored.
func ParseFeatureForm(form map[string]string) (Features, error) {
	var f Features
	for _, name := range FeatureColumns {
		raw, ok := form[name]
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Features{}, &ValidationError{Field: name, Message: fmt.Sprintf("%q is not a number", raw)}
		}
		_ = f.Set(name, &v)
	}
	return f, nil
}

type featureRange struct {
	name     string
	min, max float64
}

// plausibleRanges bound the features a user most often mistypes, in display
// order. koi_depth is in ppm and has no useful bound.
var plausibleRanges = []featureRange{
	{"koi_period", 0.1, 1000},
	{"koi_impact", 0, 1},
	{"koi_duration", 0.1, 100},
	{"koi_prad", 0.1, 50},
	{"koi_teq", 100, 3000},
}

// ValidationError reports a form value that is not a number.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// CheckFeatures returns advisory warnings for missing key features and
// implausible values. It never blocks a prediction: missing values are sent
// to the backend as null.
func CheckFeatures(f Features) []string {
	var warnings []string
	var missing []string
	for _, name := range []string{"koi_period", "koi_impact", "koi_duration", "koi_depth", "koi_prad", "koi_teq"} {
		if f.Get(name) == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		warnings = append(warnings, "missing key features: "+strings.Join(missing, ", "))
	}
	for _, r := range plausibleRanges {
		v := f.Get(r.name)
		if v == nil {
			continue
		}
		if *v < r.min || *v > r.max {
			warnings = append(warnings, fmt.Sprintf("%s: %g is outside the usual %g to %g", r.name, *v, r.min, r.max))
		}
	}
	return warnings
}

func ptr(v float64) *float64 { return &v }

// SampleFeatures is the confirmed planet Kepler-227 b.
func SampleFeatures() Features {
	return Features{
		Period:   ptr(9.488),
		Impact:   ptr(0.146),
		Duration: ptr(2.9575),
		Depth:    ptr(615.8),
		Prad:     ptr(2.26),
		Teq:      ptr(793),
		Insol:    ptr(93.59),
		ModelSNR: ptr(35.8),
		Steff:    ptr(5455),
		Slogg:    ptr(4.467),
		Srad:     ptr(0.927),
		Kepmag:   ptr(15.347),
		FPFlagNT: ptr(0),
		FPFlagSS: ptr(0),
		FPFlagCO: ptr(0),
		FPFlagEC: ptr(0),
	}
}
