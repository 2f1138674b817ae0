// Package ai provides the LLM integration layer used to explain predictions.
// Providers are swappable: any OpenAI-compatible endpoint (OpenAI, Groq) or
// Anthropic's messages API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/metrics"
)

var (
	ErrNotConfigured  = errors.New("llm provider not configured")
	ErrBudgetExceeded = errors.New("llm budget limit exceeded")
	ErrEmptyResponse  = errors.New("llm returned no content")
)

// Message represents a chat message for the LLM.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// CompletionRequest is the input for LLM inference.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Model       string    `json:"model,omitempty"` // Override default model
}

// CompletionResponse is the output from LLM inference.
type CompletionResponse struct {
	Content      string        `json:"content"`
	Model        string        `json:"model"`
	PromptTokens int           `json:"prompt_tokens"`
	OutputTokens int           `json:"output_tokens"`
	TotalTokens  int           `json:"total_tokens"`
	Latency      time.Duration `json:"latency"`
	FinishReason string        `json:"finish_reason"`
}

// UsageStats tracks API usage for cost monitoring.
type UsageStats struct {
	TotalRequests   int       `json:"total_requests"`
	TotalTokens     int       `json:"total_tokens"`
	TotalCostUSD    float64   `json:"total_cost_usd"`
	BudgetRemaining float64   `json:"budget_remaining"`
	LastReset       time.Time `json:"last_reset"`
}

// LLMProvider is the agnostic interface for LLM backends.
type LLMProvider interface {
	// Complete sends a prompt and returns the LLM response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// GetUsageStats returns current API usage.
	GetUsageStats() UsageStats

	// ResetUsage resets the usage counters.
	ResetUsage()

	// Name returns the provider name (for logging).
	Name() string

	// IsAvailable checks if the provider is configured.
	IsAvailable() bool
}

// Provider kinds accepted by NewProvider.
const (
	KindOpenAI    = "openai"
	KindGroq      = "groq"
	KindAnthropic = "anthropic"
)

// GroqURL is Groq's OpenAI-compatible chat completions endpoint.
const GroqURL = "https://api.groq.com/openai/v1/chat/completions"

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	Kind    string
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewProvider builds the provider named by cfg.Kind.
func NewProvider(cfg ProviderConfig, gate *BudgetGate) (LLMProvider, error) {
	switch cfg.Kind {
	case KindGroq:
		if cfg.BaseURL == "" {
			cfg.BaseURL = GroqURL
		}
		if cfg.Model == "" {
			cfg.Model = "openai/gpt-oss-20b"
		}
		return NewOpenAIProvider(cfg, gate), nil
	case KindOpenAI, "":
		return NewOpenAIProvider(cfg, gate), nil
	case KindAnthropic:
		return NewAnthropicProvider(cfg, gate), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Kind)
	}
}

// BudgetGate controls spending limits for LLM calls.
type BudgetGate struct {
	DailyLimitUSD     float64
	MonthlyLimitUSD   float64
	CurrentDaySpend   float64
	CurrentMonthSpend float64
	LastDayReset      time.Time
	LastMonthReset    time.Time

	mu  sync.Mutex
	now func() time.Time
}

// NewBudgetGate creates a new budget controller.
func NewBudgetGate(dailyLimit, monthlyLimit float64) *BudgetGate {
	now := time.Now()
	return &BudgetGate{
		DailyLimitUSD:   dailyLimit,
		MonthlyLimitUSD: monthlyLimit,
		LastDayReset:    now,
		LastMonthReset:  now,
		now:             time.Now,
	}
}

// CanSpend checks if a cost is within budget.
func (bg *BudgetGate) CanSpend(costUSD float64) bool {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	bg.maybeReset()
	return (bg.CurrentDaySpend+costUSD <= bg.DailyLimitUSD) &&
		(bg.CurrentMonthSpend+costUSD <= bg.MonthlyLimitUSD)
}

// RecordSpend logs a cost.
func (bg *BudgetGate) RecordSpend(costUSD float64) {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	bg.maybeReset()
	bg.CurrentDaySpend += costUSD
	bg.CurrentMonthSpend += costUSD
}

// Remaining is what is left of the monthly budget.
func (bg *BudgetGate) Remaining() float64 {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	return bg.MonthlyLimitUSD - bg.CurrentMonthSpend
}

// maybeReset resets counters if day/month has changed. Caller holds mu.
func (bg *BudgetGate) maybeReset() {
	now := bg.now()

	if now.YearDay() != bg.LastDayReset.YearDay() || now.Year() != bg.LastDayReset.Year() {
		bg.CurrentDaySpend = 0
		bg.LastDayReset = now
	}

	if now.Month() != bg.LastMonthReset.Month() || now.Year() != bg.LastMonthReset.Year() {
		bg.CurrentMonthSpend = 0
		bg.LastMonthReset = now
	}
}

// GetStatus returns a human-readable budget status.
func (bg *BudgetGate) GetStatus() string {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	return fmt.Sprintf("Day: $%.2f/%.2f | Month: $%.2f/%.2f",
		bg.CurrentDaySpend, bg.DailyLimitUSD, bg.CurrentMonthSpend, bg.MonthlyLimitUSD)
}

// usageTracker is shared by the adapters.
type usageTracker struct {
	mu    sync.Mutex
	stats UsageStats
}

func (u *usageTracker) record(tokens int, cost float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.stats.TotalRequests++
	u.stats.TotalTokens += tokens
	u.stats.TotalCostUSD += cost
}

func (u *usageTracker) snapshot(gate *BudgetGate) UsageStats {
	u.mu.Lock()
	defer u.mu.Unlock()
	s := u.stats
	s.BudgetRemaining = gate.Remaining()
	return s
}

func (u *usageTracker) reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.stats = UsageStats{LastReset: time.Now()}
}

// postJSON sends body to url and decodes a 200 response into out.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func recordCall(tokens int, cost float64, start time.Time, err error) {
	metrics.Get().RecordLLMCall(tokens, cost, time.Since(start), err)
}
