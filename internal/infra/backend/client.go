// Package backend talks to the external classification service.
// A request is a single POST to {baseURL}/predict; there is no retry and no
// client-side timeout, so only the caller's context can cancel it.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/metrics"
)

var (
	ErrPredictionFailed = errors.New("prediction failed")
	ErrEmptyLightCurve  = errors.New("light curve has no rows")
	ErrNotConfigured    = errors.New("prediction backend not configured")
)

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// CurvePoint is one point of a light curve returned by the backend.
type CurvePoint struct {
	Time float64 `json:"time"`
	Flux float64 `json:"flux"`
}

// Response mirrors the backend's JSON answer.
type Response struct {
	Success       bool                   `json:"success"`
	Prediction    string                 `json:"prediction"`
	Probabilities map[string]float64     `json:"probabilities"`
	Features      map[string]interface{} `json:"features"`
	LLMAnalysis   string                 `json:"llm_analysis"`
	LightCurve    []CurvePoint           `json:"lightCurve,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

// NumericFeatures returns the finite numeric entries of Features.
func (r *Response) NumericFeatures() map[string]float64 {
	out := make(map[string]float64, len(r.Features))
	for k, v := range r.Features {
		var f float64
		switch n := v.(type) {
		case float64:
			f = n
		case int:
			f = float64(n)
		case json.Number:
			parsed, err := n.Float64()
			if err != nil {
				continue
			}
			f = parsed
		default:
			continue
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		out[k] = f
	}
	return out
}

// Predictor is what the HTTP layer needs from the backend.
type Predictor interface {
	Predict(ctx context.Context, f Features) (*Response, error)
	PredictLightCurve(ctx context.Context, rows []map[string]interface{}) (*Response, error)
}

// Client is the HTTP implementation of Predictor.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// Predict classifies a single object.
func (c *Client) Predict(ctx context.Context, f Features) (*Response, error) {
	return c.post(ctx, f)
}

// PredictLightCurve classifies an uploaded light curve.
func (c *Client) PredictLightCurve(ctx context.Context, rows []map[string]interface{}) (*Response, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyLightCurve
	}
	return c.post(ctx, map[string]interface{}{"lightcurve": rows})
}

func (c *Client) post(ctx context.Context, body interface{}) (resp *Response, err error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	start := time.Now()
	defer func() { metrics.Get().RecordPrediction(time.Since(start), err) }()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal predict request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predict request: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read predict response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &StatusError{Status: httpResp.StatusCode, Body: string(raw)}
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode predict response: %w", err)
	}
	if !out.Success {
		if out.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrPredictionFailed, out.Error)
		}
		return nil, ErrPredictionFailed
	}
	return &out, nil
}

var _ Predictor = (*Client)(nil)
