// Package metrics provides counters for the detective server: predictions,
// Kids Mode progression, storage writes, websocket traffic and LLM usage.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance metrics.
type Collector struct {
	// Prediction backend
	Predictions      int64
	PredictionErrors int64
	PredictLatSum    int64 // nanoseconds
	PredictLatMax    int64
	Uploads          int64

	// Progression
	Guesses        int64
	CorrectGuesses int64
	Redemptions    int64
	Denials        int64
	Rotations      int64
	HintsUsed      int64

	// Storage
	StoreWrites      int64
	StoreWriteErrors int64
	StoreWriteLatSum int64
	StoreWriteLatMax int64
	EventsWritten    int64
	EventWriteErrors int64

	// WebSocket
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// LLM
	LLMRequests   int64
	LLMErrors     int64
	LLMTokensUsed int64
	LLMLatencySum int64
	LLMCostUSD    float64

	StartTime time.Time
	mu        sync.RWMutex
}

var collector = New()

// New returns an empty collector. Production code shares Get().
func New() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// RecordPrediction records one call to the prediction backend.
func (c *Collector) RecordPrediction(latency time.Duration, err error) {
	atomic.AddInt64(&c.Predictions, 1)
	atomic.AddInt64(&c.PredictLatSum, int64(latency))
	storeMax(&c.PredictLatMax, int64(latency))
	if err != nil {
		atomic.AddInt64(&c.PredictionErrors, 1)
	}
}

// RecordUpload counts an accepted CSV upload.
func (c *Collector) RecordUpload() {
	atomic.AddInt64(&c.Uploads, 1)
}

// RecordGuess counts a judged guess.
func (c *Collector) RecordGuess(correct bool) {
	atomic.AddInt64(&c.Guesses, 1)
	if correct {
		atomic.AddInt64(&c.CorrectGuesses, 1)
	}
}

// RecordRedemption counts a redemption attempt.
func (c *Collector) RecordRedemption(granted bool) {
	if granted {
		atomic.AddInt64(&c.Redemptions, 1)
	} else {
		atomic.AddInt64(&c.Denials, 1)
	}
}

// RecordRotation counts a mystery set rotation.
func (c *Collector) RecordRotation() {
	atomic.AddInt64(&c.Rotations, 1)
}

// RecordHint counts a used hint.
func (c *Collector) RecordHint() {
	atomic.AddInt64(&c.HintsUsed, 1)
}

// RecordStoreWrite records one atomic session save.
func (c *Collector) RecordStoreWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.StoreWrites, 1)
	atomic.AddInt64(&c.StoreWriteLatSum, int64(latency))
	storeMax(&c.StoreWriteLatMax, int64(latency))
	if err != nil {
		atomic.AddInt64(&c.StoreWriteErrors, 1)
	}
}

// RecordEventWrite records an event row write.
func (c *Collector) RecordEventWrite(err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordLLMCall records an LLM API call.
func (c *Collector) RecordLLMCall(tokens int, cost float64, latency time.Duration, err error) {
	atomic.AddInt64(&c.LLMRequests, 1)
	atomic.AddInt64(&c.LLMTokensUsed, int64(tokens))
	atomic.AddInt64(&c.LLMLatencySum, int64(latency))
	if err != nil {
		atomic.AddInt64(&c.LLMErrors, 1)
	}

	c.mu.Lock()
	c.LLMCostUSD += cost
	c.mu.Unlock()
}

func avgMillis(sum, n int64) float64 {
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n) / 1e6
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	cost := c.LLMCostUSD
	c.mu.RUnlock()

	predictions := atomic.LoadInt64(&c.Predictions)
	writes := atomic.LoadInt64(&c.StoreWrites)
	llmRequests := atomic.LoadInt64(&c.LLMRequests)

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"predict": map[string]interface{}{
			"count":          predictions,
			"errors":         atomic.LoadInt64(&c.PredictionErrors),
			"uploads":        atomic.LoadInt64(&c.Uploads),
			"avg_latency_ms": avgMillis(atomic.LoadInt64(&c.PredictLatSum), predictions),
			"max_latency_ms": float64(atomic.LoadInt64(&c.PredictLatMax)) / 1e6,
		},

		"kids": map[string]interface{}{
			"guesses":         atomic.LoadInt64(&c.Guesses),
			"correct_guesses": atomic.LoadInt64(&c.CorrectGuesses),
			"redemptions":     atomic.LoadInt64(&c.Redemptions),
			"denials":         atomic.LoadInt64(&c.Denials),
			"rotations":       atomic.LoadInt64(&c.Rotations),
			"hints":           atomic.LoadInt64(&c.HintsUsed),
		},

		"store": map[string]interface{}{
			"writes":           writes,
			"errors":           atomic.LoadInt64(&c.StoreWriteErrors),
			"avg_write_lat_ms": avgMillis(atomic.LoadInt64(&c.StoreWriteLatSum), writes),
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.StoreWriteLatMax)) / 1e6,
			"events_written":   atomic.LoadInt64(&c.EventsWritten),
			"event_errors":     atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},

		"llm": map[string]interface{}{
			"requests":        llmRequests,
			"errors":          atomic.LoadInt64(&c.LLMErrors),
			"tokens_used":     atomic.LoadInt64(&c.LLMTokensUsed),
			"cost_usd":        cost,
			"avg_latency_sec": avgMillis(atomic.LoadInt64(&c.LLMLatencySum), llmRequests) / 1e3,
		},
	}
}

// WriteJSON encodes the snapshot.
func (c *Collector) WriteJSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(c.Snapshot())
}

func promMetric(w io.Writer, name, kind, help string, value interface{}) {
	fmt.Fprintf(w, "# HELP exoplanet_%s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE exoplanet_%s %s\n", name, kind)
	switch v := value.(type) {
	case float64:
		fmt.Fprintf(w, "exoplanet_%s %.4f\n\n", name, v)
	default:
		fmt.Fprintf(w, "exoplanet_%s %v\n\n", name, v)
	}
}

// WritePrometheus renders the counters in the Prometheus text format.
func (c *Collector) WritePrometheus(w io.Writer) {
	promMetric(w, "predictions_total", "counter", "Total prediction backend calls", atomic.LoadInt64(&c.Predictions))
	promMetric(w, "prediction_errors_total", "counter", "Failed prediction backend calls", atomic.LoadInt64(&c.PredictionErrors))
	promMetric(w, "prediction_latency_max_ms", "gauge", "Maximum prediction latency", float64(atomic.LoadInt64(&c.PredictLatMax))/1e6)
	promMetric(w, "uploads_total", "counter", "Accepted light-curve uploads", atomic.LoadInt64(&c.Uploads))

	promMetric(w, "kids_guesses_total", "counter", "Judged guesses", atomic.LoadInt64(&c.Guesses))
	promMetric(w, "kids_correct_guesses_total", "counter", "Correct guesses", atomic.LoadInt64(&c.CorrectGuesses))
	promMetric(w, "kids_redemptions_total", "counter", "Granted reward redemptions", atomic.LoadInt64(&c.Redemptions))
	promMetric(w, "kids_denials_total", "counter", "Denied reward redemptions", atomic.LoadInt64(&c.Denials))
	promMetric(w, "kids_rotations_total", "counter", "Mystery set rotations", atomic.LoadInt64(&c.Rotations))

	promMetric(w, "store_writes_total", "counter", "Atomic session saves", atomic.LoadInt64(&c.StoreWrites))
	promMetric(w, "store_write_errors_total", "counter", "Failed session saves", atomic.LoadInt64(&c.StoreWriteErrors))
	promMetric(w, "events_written_total", "counter", "Event rows written", atomic.LoadInt64(&c.EventsWritten))

	promMetric(w, "ws_connections", "gauge", "Active WebSocket connections", atomic.LoadInt64(&c.WSConnectionsActive))
	fmt.Fprintf(w, "# HELP exoplanet_ws_messages_total Total WebSocket messages\n")
	fmt.Fprintf(w, "# TYPE exoplanet_ws_messages_total counter\n")
	fmt.Fprintf(w, "exoplanet_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
	fmt.Fprintf(w, "exoplanet_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

	promMetric(w, "llm_requests_total", "counter", "Total LLM API requests", atomic.LoadInt64(&c.LLMRequests))
	promMetric(w, "llm_tokens_used_total", "counter", "Total tokens consumed", atomic.LoadInt64(&c.LLMTokensUsed))

	c.mu.RLock()
	promMetric(w, "llm_cost_usd", "counter", "Total LLM cost in USD", c.LLMCostUSD)
	c.mu.RUnlock()
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		_ = collector.WriteJSON(w)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		collector.WritePrometheus(w)
	}
}
