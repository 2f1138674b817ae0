package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/mystery"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/engine"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/events"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/httpapi/response"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/infra/backend"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/infra/storage"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/network"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/logger"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/metrics"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/visual"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memStore struct {
	mu     sync.Mutex
	fields map[string]string
}

func (s *memStore) LoadFields(context.Context, string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.fields), nil
}

func (s *memStore) SaveFields(_ context.Context, _ string, f map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields = maps.Clone(f)
	return nil
}

type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

type fakePredictor struct {
	resp *backend.Response
	err  error
	got  backend.Features
	rows []map[string]interface{}
}

func (f *fakePredictor) Predict(_ context.Context, in backend.Features) (*backend.Response, error) {
	f.got = in
	return f.resp, f.err
}

func (f *fakePredictor) PredictLightCurve(_ context.Context, rows []map[string]interface{}) (*backend.Response, error) {
	f.rows = rows
	return f.resp, f.err
}

type fakeRecapper struct {
	since time.Time
}

func (f *fakeRecapper) GenerateRecap(_ context.Context, sessionID string, since time.Time) (*storage.Recap, error) {
	f.since = since
	return &storage.Recap{SessionID: sessionID, Events: []storage.RecapEvent{}}, nil
}

type fixture struct {
	router *gin.Engine
	engine *engine.Engine
	scenes *visual.Registry
	recap  *fakeRecapper
}

func newFixture(t *testing.T, predictor backend.Predictor) *fixture {
	t.Helper()
	catalog, err := mystery.LoadCatalog()
	require.NoError(t, err)
	el := events.NewEventLog(nil, nil)
	eng, err := engine.New(context.Background(), "kid", catalog, &memStore{fields: map[string]string{}},
		logger.NewNop(), engine.WithEventLog(el), engine.WithMetrics(metrics.New()))
	require.NoError(t, err)

	f := &fixture{engine: eng, scenes: visual.NewRegistry(), recap: &fakeRecapper{}}
	f.router = NewRouter(Deps{
		Hub:       network.NewHub(eng, el, network.HubConfig{}, logger.NewNop()),
		Game:      eng,
		EventLog:  el,
		Recapper:  f.recap,
		Predictor: predictor,
		Scenes:    f.scenes,
		Random:    fixedRand(0.75),
		Logger:    logger.NewNop(),
	})
	return f
}

func (f *fixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mode":"demo"`)
}

func TestKidsRoutes(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/api/kids/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view engine.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, engine.StepMysteries, view.Session.Step)
	require.NotEmpty(t, view.Available)

	w = f.do(http.MethodPost, "/api/kids/guess", map[string]string{"guess": "CONFIRMED"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.CodeInvalidTransition, decodeError(t, w).Error)

	w = f.do(http.MethodPost, "/api/kids/select", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/kids/select", map[string]int{"mystery_id": view.Available[0].ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, engine.StepInvestigate, f.engine.Session().Step)

	w = f.do(http.MethodPost, "/api/kids/redeem", map[string]string{"kind": "spaceship"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/kids/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"step":"investigate"`)

	w = f.do(http.MethodGet, "/api/kids/events?type=STEP_CHANGED", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var replay network.ReplayResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &replay))
	require.Equal(t, 2, replay.TotalEvents)

	w = f.do(http.MethodGet, "/api/kids/events/"+replay.Events[0].ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(http.MethodGet, "/api/kids/events/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/api/kids/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"STEP_CHANGED":2`)
}

func TestRecapRoute(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/api/kids/recap?since=2025-01-02T03:04:05Z", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"session_id":"kid"`)
	assert.Equal(t, 2025, f.recap.since.Year())

	w = f.do(http.MethodGet, "/api/kids/recap?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredict(t *testing.T) {
	pred := &fakePredictor{resp: &backend.Response{
		Success:       true,
		Prediction:    "CONFIRMED",
		Probabilities: map[string]float64{"CONFIRMED": 0.9},
		LLMAnalysis:   "Looks like a hot Jupiter.",
	}}
	f := newFixture(t, pred)

	w := f.do(http.MethodPost, "/api/predict", backend.SampleFeatures())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res PredictionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, ModeBackend, res.Mode)
	assert.Equal(t, "CONFIRMED", res.Prediction)
	assert.Equal(t, "Looks like a hot Jupiter.", res.Analysis.Text)
	require.NotNil(t, pred.got.Period)
	assert.Equal(t, *backend.SampleFeatures().Period, *pred.got.Period)

	_, ok := f.scenes.Get("predict")
	assert.True(t, ok)
	w = f.do(http.MethodGet, "/api/scene/predict", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(http.MethodGet, "/api/scene/upload", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPredictForwardsOutOfRangeAndPartialForms(t *testing.T) {
	pred := &fakePredictor{resp: &backend.Response{Success: true, Prediction: "CANDIDATE"}}
	f := newFixture(t, pred)

	body := backend.SampleFeatures()
	bad := 5.0
	body.Impact = &bad
	w := f.do(http.MethodPost, "/api/predict", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, pred.got.Depth)
	assert.Equal(t, 615.8, *pred.got.Depth)
	assert.Equal(t, 5.0, *pred.got.Impact)
	var res PredictionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "koi_impact")

	w = f.do(http.MethodPost, "/api/predict", map[string]interface{}{"koi_period": 9.4, "koi_prad": 2.2, "koi_depth": nil})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 9.4, *pred.got.Period)
	assert.Nil(t, pred.got.Impact)
	assert.Nil(t, pred.got.Depth)
	res = PredictionResult{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Contains(t, res.Warnings, "missing key features: koi_impact, koi_duration, koi_depth, koi_teq")

	pred.got = backend.Features{}
	w = f.do(http.MethodPost, "/api/predict", map[string]string{"koi_period": "ten"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeValidation, decodeError(t, w).Error)
	assert.Nil(t, pred.got.Period)
}

// startedFixture has a session past the menu so failed requests have state to
// disturb.
func startedFixture(t *testing.T, predictor backend.Predictor) (*fixture, engine.Session) {
	t.Helper()
	f := newFixture(t, predictor)
	require.NoError(t, f.engine.StartAdventure(context.Background()))
	return f, f.engine.Session()
}

func TestPredictBackendErrors(t *testing.T) {
	f, before := startedFixture(t, nil)
	w := f.do(http.MethodPost, "/api/predict", backend.SampleFeatures())
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, before, f.engine.Session())

	f, before = startedFixture(t, &fakePredictor{err: &backend.StatusError{Status: 500, Body: "boom"}})
	w = f.do(http.MethodPost, "/api/predict", backend.SampleFeatures())
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, response.CodeBackend, decodeError(t, w).Error)
	assert.Equal(t, before, f.engine.Session())
	_, ok := f.scenes.Get("predict")
	assert.False(t, ok)
}

func TestPredictUnsuccessfulBackendReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":false,"error":"model not loaded"}`))
	}))
	defer srv.Close()

	f, before := startedFixture(t, backend.NewClient(srv.URL))
	w := f.do(http.MethodPost, "/api/predict", backend.SampleFeatures())
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, response.CodeBackend, decodeError(t, w).Error)
	assert.Equal(t, before, f.engine.Session())

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, uploadRequest(t, "time,flux\n1,2\n"))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, before, f.engine.Session())
	_, ok := f.scenes.Get("upload")
	assert.False(t, ok)
}

func uploadRequest(t *testing.T, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "curve.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadDemoMode(t *testing.T) {
	f := newFixture(t, nil)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, uploadRequest(t, "TIME,FLUX\n1,5000\n2,0\n3,4990\n"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res PredictionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, ModeDemo, res.Mode)
	assert.Equal(t, "CANDIDATE", res.Prediction)
	require.Len(t, res.LightCurve, 3)
	assert.Equal(t, 5000.0, res.LightCurve[0].Flux)
	assert.Equal(t, 4750.0, res.LightCurve[1].Flux)
	require.NotNil(t, res.Demo)
	assert.Equal(t, 75.0, res.Demo.Confidence)

	_, ok := f.scenes.Get("upload")
	assert.True(t, ok)
}

func TestUploadWithBackend(t *testing.T) {
	pred := &fakePredictor{resp: &backend.Response{
		Success:    true,
		Prediction: "FALSE POSITIVE",
		LightCurve: []backend.CurvePoint{{Time: 1, Flux: 2}},
	}}
	f := newFixture(t, pred)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, uploadRequest(t, "time,flux,quality\n1,2,true\n"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, pred.rows, 1)
	assert.Equal(t, true, pred.rows[0]["quality"])
	assert.Contains(t, w.Body.String(), `"prediction":"FALSE POSITIVE"`)
}

func TestUploadRejectsBadInput(t *testing.T) {
	f, before := startedFixture(t, nil)

	for name, content := range map[string]string{
		"no flux column": "time,brightness\n1,2\n",
		"header only":    "time,flux\n",
		"empty":          "",
		"headless":       "1,2\n3,4\n",
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, uploadRequest(t, content))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, response.CodeInvalidCSV, decodeError(t, w).Error)
			assert.Equal(t, before, f.engine.Session())
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("x"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, before, f.engine.Session())
	_, ok := f.scenes.Get("upload")
	assert.False(t, ok)
}

func TestSampleFeaturesRoute(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodGet, "/api/features/sample", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"koi_period"`)
}
