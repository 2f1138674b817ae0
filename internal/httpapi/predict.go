package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/analysis"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/httpapi/response"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/infra/backend"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/lightcurve"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/metrics"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/visual"
)

// Analysis modes.
const (
	ModeBackend = "backend"
	ModeDemo    = "demo"
)

// Scene registry keys.
const (
	scenePredict = "predict"
	sceneUpload  = "upload"
)

// PredictionResult is the answer of /api/predict and /api/upload.
type PredictionResult struct {
	Mode          string                 `json:"mode"`
	Prediction    string                 `json:"prediction"`
	Probabilities map[string]float64     `json:"probabilities"`
	Features      map[string]float64     `json:"features"`
	Analysis      analysis.Narrative     `json:"analysis"`
	Scene         *visual.Scene          `json:"scene"`
	LightCurve    []lightcurve.Point     `json:"lightCurve,omitempty"`
	Demo          *lightcurve.DemoResult `json:"demo,omitempty"`
	Warnings      []string               `json:"warnings,omitempty"`
}

// formValues flattens a JSON body into form strings: numbers are formatted,
// null becomes empty.
func formValues(body map[string]interface{}) (map[string]string, error) {
	out := make(map[string]string, len(body))
	for k, v := range body {
		switch x := v.(type) {
		case nil:
			out[k] = ""
		case float64:
			out[k] = strconv.FormatFloat(x, 'g', -1, 64)
		case string:
			out[k] = x
		case bool:
			if x {
				out[k] = "1"
			} else {
				out[k] = "0"
			}
		default:
			return nil, fmt.Errorf("%w: %s has unsupported type %T", response.ErrBadRequest, k, v)
		}
	}
	return out, nil
}

func (s *Server) bindFeatures(c *gin.Context) (backend.Features, error) {
	var form map[string]string
	if c.ContentType() == gin.MIMEJSON {
		var body map[string]interface{}
		if err := c.ShouldBindJSON(&body); err != nil {
			return backend.Features{}, fmt.Errorf("%w: %v", response.ErrBadRequest, err)
		}
		var err error
		if form, err = formValues(body); err != nil {
			return backend.Features{}, err
		}
	} else {
		if err := c.Request.ParseForm(); err != nil {
			return backend.Features{}, fmt.Errorf("%w: %v", response.ErrBadRequest, err)
		}
		form = make(map[string]string, len(c.Request.PostForm))
		for k := range c.Request.PostForm {
			form[k] = c.Request.PostForm.Get(k)
		}
	}
	return backend.ParseFeatureForm(form)
}

func (s *Server) predict(c *gin.Context) {
	features, err := s.bindFeatures(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if s.d.Predictor == nil {
		response.RespondError(c, backend.ErrNotConfigured)
		return
	}

	ctx := c.Request.Context()
	resp, err := s.d.Predictor.Predict(ctx, features)
	if err != nil {
		s.d.Logger.Warn("Prediction failed", "error", err)
		response.RespondError(c, err)
		return
	}

	shown := resp.NumericFeatures()
	if len(shown) == 0 {
		shown = features.Numeric()
	}
	result := PredictionResult{
		Mode:          ModeBackend,
		Prediction:    resp.Prediction,
		Probabilities: resp.Probabilities,
		Features:      shown,
		Analysis: s.d.Narrator.Explain(ctx, analysis.Input{
			Features:        shown,
			Prediction:      resp.Prediction,
			Probabilities:   resp.Probabilities,
			BackendAnalysis: resp.LLMAnalysis,
		}),
		Scene:    visual.Build(shown, s.d.Random),
		Warnings: backend.CheckFeatures(features),
	}
	s.d.Scenes.Replace(scenePredict, result.Scene)
	response.RespondOK(c, result)
}

func (s *Server) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.d.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: multipart field \"file\" is required", response.ErrBadRequest))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, err)
		return
	}
	defer f.Close()

	table, err := lightcurve.Parse(f)
	if err != nil {
		s.d.Logger.Warn("CSV rejected", "file", fh.Filename, "error", err)
		response.RespondError(c, err)
		return
	}
	metrics.Get().RecordUpload()

	ctx := c.Request.Context()
	var result PredictionResult
	if s.d.Predictor == nil {
		demo := lightcurve.Demo(table.Rows, s.d.Random)
		label := "FALSE POSITIVE"
		if demo.IsExoplanet {
			label = "CANDIDATE"
		}
		result = PredictionResult{
			Mode:          ModeDemo,
			Prediction:    label,
			Probabilities: map[string]float64{label: demo.Confidence},
			Features: map[string]float64{
				"planetRadius": demo.Metrics.PlanetRadius,
				"koi_period":   demo.Metrics.OrbitalPeriod,
			},
			LightCurve: demo.LightCurve,
			Demo:       &demo,
		}
		result.Analysis = analysis.Narrative{Text: analysis.FallbackNarrative, Source: analysis.SourceFallback}
	} else {
		resp, err := s.d.Predictor.PredictLightCurve(ctx, table.Rows)
		if err != nil {
			s.d.Logger.Warn("Light-curve prediction failed", "file", fh.Filename, "error", err)
			response.RespondError(c, err)
			return
		}
		points := make([]lightcurve.Point, 0, len(resp.LightCurve))
		for _, p := range resp.LightCurve {
			points = append(points, lightcurve.Point{Time: p.Time, Flux: p.Flux})
		}
		if len(points) == 0 {
			points = lightcurve.Curve(table.Rows, lightcurve.DefaultLimit, s.d.Random)
		}
		shown := resp.NumericFeatures()
		result = PredictionResult{
			Mode:          ModeBackend,
			Prediction:    resp.Prediction,
			Probabilities: resp.Probabilities,
			Features:      shown,
			LightCurve:    points,
			Analysis: s.d.Narrator.Explain(ctx, analysis.Input{
				Features:        shown,
				Prediction:      resp.Prediction,
				Probabilities:   resp.Probabilities,
				BackendAnalysis: resp.LLMAnalysis,
			}),
		}
	}
	result.Scene = visual.Build(result.Features, s.d.Random)
	s.d.Scenes.Replace(sceneUpload, result.Scene)
	response.RespondOK(c, result)
}

func (s *Server) sampleFeatures(c *gin.Context) {
	response.RespondOK(c, gin.H{
		"features": backend.SampleFeatures(),
		"columns":  backend.FeatureColumns,
		"medians":  backend.FeatureMedians,
	})
}

func (s *Server) scene(c *gin.Context) {
	sc, ok := s.d.Scenes.Get(c.Param("key"))
	if !ok {
		response.RespondError(c, fmt.Errorf("%w: no scene %q", response.ErrNotFound, c.Param("key")))
		return
	}
	response.RespondOK(c, sc)
}

