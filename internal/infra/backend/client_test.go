package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictSendsFlatFeaturesWithNulls(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{"success":true,"prediction":"CONFIRMED","probabilities":{"CONFIRMED":91.2,"CANDIDATE":6.1,"FALSE POSITIVE":2.7},"features":{"koi_prad":1.2,"koi_teq":null},"llm_analysis":"Deep and regular."}`))
	}))
	defer srv.Close()

	f := SampleFeatures()
	f.Insol = nil
	resp, err := NewClient(srv.URL+"/").Predict(context.Background(), f)
	require.NoError(t, err)

	assert.Len(t, body, len(FeatureColumns))
	assert.Equal(t, 9.488, body["koi_period"])
	assert.Equal(t, 615.8, body["koi_depth"])
	v, present := body["koi_insol"]
	assert.True(t, present)
	assert.Nil(t, v)

	assert.Equal(t, "CONFIRMED", resp.Prediction)
	assert.InDelta(t, 91.2, resp.Probabilities["CONFIRMED"], 1e-9)
	assert.Equal(t, "Deep and regular.", resp.LLMAnalysis)
	assert.Equal(t, map[string]float64{"koi_prad": 1.2}, resp.NumericFeatures())
}

func TestPredictLightCurve(t *testing.T) {
	var body struct {
		Lightcurve []map[string]interface{} `json:"lightcurve"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{"success":true,"prediction":"CANDIDATE","probabilities":{},"features":{},"lightCurve":[{"time":0,"flux":4000.5}]}`))
	}))
	defer srv.Close()

	rows := []map[string]interface{}{{"TIME": 1.0, "FLUX": 4000.5}}
	resp, err := NewClient(srv.URL).PredictLightCurve(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, body.Lightcurve, 1)
	assert.Equal(t, 4000.5, body.Lightcurve[0]["FLUX"])
	require.Len(t, resp.LightCurve, 1)
	assert.Equal(t, 4000.5, resp.LightCurve[0].Flux)
}

func TestPredictLightCurveEmptySkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).PredictLightCurve(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyLightCurve)
	assert.Zero(t, calls.Load())
}

func TestPredictStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Predict(context.Background(), Features{})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)
	assert.Contains(t, se.Body, "model not loaded")
}

func TestPredictUnsuccessful(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"bad columns"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Predict(context.Background(), Features{})
	assert.ErrorIs(t, err, ErrPredictionFailed)
	assert.ErrorContains(t, err, "bad columns")
}

func TestPredictHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL).Predict(ctx, Features{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnconfiguredClient(t *testing.T) {
	_, err := NewClient("").Predict(context.Background(), Features{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
