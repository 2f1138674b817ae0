package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetGate(t *testing.T) {
	bg := NewBudgetGate(1.0, 5.0)
	assert.True(t, bg.CanSpend(0.5))
	bg.RecordSpend(0.9)
	assert.False(t, bg.CanSpend(0.2))
	assert.InDelta(t, 4.1, bg.Remaining(), 1e-9)
	assert.Equal(t, "Day: $0.90/1.00 | Month: $0.90/5.00", bg.GetStatus())
}

func TestBudgetGateDailyReset(t *testing.T) {
	bg := NewBudgetGate(1.0, 5.0)
	day := time.Date(2025, 10, 4, 23, 0, 0, 0, time.UTC)
	bg.now = func() time.Time { return day }
	bg.LastDayReset, bg.LastMonthReset = day, day

	bg.RecordSpend(1.0)
	assert.False(t, bg.CanSpend(0.1))

	day = day.Add(2 * time.Hour)
	assert.True(t, bg.CanSpend(0.1), "new day")
	assert.InDelta(t, 4.0, bg.Remaining(), 1e-9, "month keeps counting")
}

func TestOpenAIProviderComplete(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"model":"openai/gpt-oss-20b","choices":[{"message":{"content":"A deep transit."},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer srv.Close()

	p, err := NewProvider(ProviderConfig{Kind: KindGroq, APIKey: "k", BaseURL: srv.URL}, NewBudgetGate(1, 1))
	require.NoError(t, err)

	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages:  []Message{{Role: "user", Content: "why?"}},
		MaxTokens: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "A deep transit.", resp.Content)
	assert.Equal(t, 15, resp.TotalTokens)
	assert.Equal(t, "openai/gpt-oss-20b", got.Model)
	assert.Equal(t, 1, p.GetUsageStats().TotalRequests)
}

func TestOpenAIProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(ProviderConfig{APIKey: "k", BaseURL: srv.URL}, NewBudgetGate(1, 1))
	_, err := p.Complete(context.Background(), CompletionRequest{})
	assert.ErrorContains(t, err, "status 429")

	unconfigured := NewOpenAIProvider(ProviderConfig{}, NewBudgetGate(1, 1))
	_, err = unconfigured.Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	broke := NewOpenAIProvider(ProviderConfig{APIKey: "k", BaseURL: srv.URL}, NewBudgetGate(0, 0))
	_, err = broke.Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, ErrBudgetExceeded)
}

func TestAnthropicProviderMovesSystemPrompt(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"model":"m","content":[{"type":"text","text":"ok"}],"usage":{"input_tokens":3,"output_tokens":2}}`))
	}))
	defer srv.Close()

	p, err := NewProvider(ProviderConfig{Kind: KindAnthropic, APIKey: "k", BaseURL: srv.URL}, NewBudgetGate(1, 1))
	require.NoError(t, err)

	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: BuildExplanationMessages(ExplanationInput{Prediction: "CONFIRMED"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, ExplainerSystemPrompt, got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, 1024, got.MaxTokens)
}

func TestNewProviderUnknownKind(t *testing.T) {
	_, err := NewProvider(ProviderConfig{Kind: "mystery"}, NewBudgetGate(1, 1))
	assert.Error(t, err)
}

func TestBuildExplanationMessages(t *testing.T) {
	period := 45.6
	msgs := BuildExplanationMessages(ExplanationInput{
		Features:      []FeatureValue{{Name: "koi_period", Value: &period}, {Name: "koi_teq"}},
		Prediction:    "CANDIDATE",
		Probabilities: map[string]float64{"CONFIRMED": 30, "CANDIDATE": 70},
		Reference:     map[string]float64{"koi_period": 10},
	})
	require.Len(t, msgs, 2)
	user := msgs[1].Content
	assert.Contains(t, user, "- koi_period: 45.6 (typical: 10)")
	assert.Contains(t, user, "- koi_teq: not provided")
	assert.Contains(t, user, "- CANDIDATE: 70.0%")
	assert.Less(t, strings.Index(user, "CANDIDATE: 70"), strings.Index(user, "CONFIRMED: 30"), "classes sorted")
}

func TestCleanExplanation(t *testing.T) {
	assert.Equal(t, "hello", CleanExplanation("  ```markdown\nhello\n```  "))
	assert.Equal(t, "plain", CleanExplanation("plain\n"))
}
